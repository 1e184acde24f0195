package ports

import "github.com/michaelmahersoftware/experimental-hub-test/internal/domain"

// SampleJournal is the structured per-sample diagnostic log consumed by a
// human operator. Entries are append-only and ordered by frame index.
type SampleJournal interface {
	Append(s *domain.Sample) error
	WriteSummary(result *domain.RunResult) error
	Stats() JournalStats
	Close() error
}

// JournalStats exposes journal metadata for observability.
type JournalStats struct {
	Entries   int64
	SizeBytes int64
}
