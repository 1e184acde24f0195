package latencytest

import (
	"errors"
	"testing"
	"time"
)

func TestNewCallbackSink(t *testing.T) {
	var gotResult *RunResult
	var gotSamples []Sample
	sink := NewCallbackSink("cb", func(result *RunResult, samples []Sample) error {
		gotResult = result
		gotSamples = samples
		return nil
	})

	result := &RunResult{RunID: "run-1", SampleCount: 1}
	samples := []Sample{{FrameIndex: 0, LatencyMs: 42.5}}

	if err := sink.WriteRun(result, samples); err != nil {
		t.Fatalf("WriteRun returned error: %v", err)
	}
	if gotResult.RunID != "run-1" {
		t.Fatalf("unexpected result: %+v", gotResult)
	}
	if len(gotSamples) != 1 || gotSamples[0].LatencyMs != 42.5 {
		t.Fatalf("unexpected samples: %+v", gotSamples)
	}

	// The sink hands the callback its own copy.
	gotSamples[0].LatencyMs = 0
	if samples[0].LatencyMs != 42.5 {
		t.Fatal("callback mutated the caller's sample slice")
	}
}

func TestNewCallbackSinkNilHandler(t *testing.T) {
	sink := NewCallbackSink("", nil)
	if sink.Name() != "callback" {
		t.Fatalf("expected default name callback, got %s", sink.Name())
	}
	if err := sink.WriteRun(&RunResult{}, nil); err == nil {
		t.Fatal("expected error when callback is nil")
	}
}

func TestNewChannelSink(t *testing.T) {
	sink, ch, closeFn := NewChannelSink("chan", 1)
	defer closeFn()

	result := &RunResult{RunID: "run-2"}
	errCh := make(chan error, 1)

	go func() {
		errCh <- sink.WriteRun(result, []Sample{{FrameIndex: 7}})
	}()

	var report RunReport
	select {
	case report = <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for run report")
	}

	if err := <-errCh; err != nil {
		t.Fatalf("WriteRun returned error: %v", err)
	}
	if report.Result.RunID != "run-2" || len(report.Samples) != 1 || report.Samples[0].FrameIndex != 7 {
		t.Fatalf("unexpected report: %+v", report)
	}

	closeFn()
	if err := sink.WriteRun(result, nil); !errors.Is(err, ErrChannelSinkClosed) {
		t.Fatalf("expected ErrChannelSinkClosed, got %v", err)
	}
}
