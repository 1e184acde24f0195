package ports

// Observability receives the harness's structured log events and run
// metrics. Metric names are fixed strings owned by the adapter; unknown
// names are ignored so callers never fail on instrumentation.
type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)
	SetGauge(name string, v float64)
}

// Field is one structured log attribute.
type Field struct {
	Key   string
	Value any
}
