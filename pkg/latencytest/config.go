package latencytest

import (
	"github.com/michaelmahersoftware/experimental-hub-test/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// SessionConfig identifies the session and participant under test.
	SessionConfig = config.SessionConfig
	// TestConfig holds frame rate, resolution, and barcode settings.
	TestConfig = config.TestConfig
	// ConnectionConfig selects and parameterizes the transport.
	ConnectionConfig = config.ConnectionConfig
	// HTTPConfig configures the diagnostic HTTP server.
	HTTPConfig = config.HTTPConfig
	// JournalConfig configures the on-disk sample journal.
	JournalConfig = config.JournalConfig
	// ResultsConfig configures the Postgres result sink.
	ResultsConfig = config.ResultsConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
