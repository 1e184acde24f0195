// Package journal persists the per-frame sample stream to disk as NDJSON,
// one sample per line, so runs can be replayed and re-evaluated offline.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

// FileJournal appends samples to samples-<runID>.ndjson under its directory.
// The run summary lands next to it as summary-<runID>.json.
type FileJournal struct {
	mu        sync.Mutex
	dir       string
	runID     string
	file      *os.File
	writer    *bufio.Writer
	entries   int64
	sizeBytes int64
	closed    bool
}

func NewFileJournal(dir, runID string) (*FileJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := SamplesPath(dir, runID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileJournal{
		dir:    dir,
		runID:  runID,
		file:   f,
		writer: bufio.NewWriterSize(f, 1<<16),
	}, nil
}

// SamplesPath is the NDJSON sample file for a run inside dir.
func SamplesPath(dir, runID string) string {
	return filepath.Join(dir, fmt.Sprintf("samples-%s.ndjson", runID))
}

// SummaryPath is the run summary file for a run inside dir.
func SummaryPath(dir, runID string) string {
	return filepath.Join(dir, fmt.Sprintf("summary-%s.json", runID))
}

func (j *FileJournal) Append(s *domain.Sample) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errors.New("journal: closed")
	}

	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if _, err := j.writer.Write(b); err != nil {
		return err
	}
	if err := j.writer.WriteByte('\n'); err != nil {
		return err
	}
	j.entries++
	j.sizeBytes += int64(len(b) + 1)
	return nil
}

// WriteSummary persists the evaluated run outcome as a standalone JSON
// document next to the sample file.
func (j *FileJournal) WriteSummary(r *domain.RunResult) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(SummaryPath(j.dir, j.runID), append(b, '\n'), 0o644)
}

func (j *FileJournal) Stats() ports.JournalStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ports.JournalStats{
		Entries:   j.entries,
		SizeBytes: j.sizeBytes,
	}
}

// Close flushes buffered lines and closes the sample file.
func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if err := j.writer.Flush(); err != nil {
		j.file.Close()
		return err
	}
	return j.file.Close()
}

// ReadSamples loads every sample line from an NDJSON journal file, in the
// order it was appended. Used for offline replay of a recorded run.
func ReadSamples(path string) ([]domain.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var samples []domain.Sample
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var s domain.Sample
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("journal line %d: %w", line, err)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

var _ ports.SampleJournal = (*FileJournal)(nil)
