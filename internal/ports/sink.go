package ports

import "github.com/michaelmahersoftware/experimental-hub-test/internal/domain"

// ResultSink persists the outcome of a finished run together with the full
// sample series.
type ResultSink interface {
	WriteRun(result *domain.RunResult, samples []domain.Sample) error
	Name() string
}
