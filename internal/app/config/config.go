// Package config loads the YAML run configuration for the latency harness.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/app/harness"
)

type Config struct {
	Session    SessionConfig    `yaml:"session"`
	Test       TestConfig       `yaml:"test"`
	Connection ConnectionConfig `yaml:"connection"`
	HTTP       HTTPConfig       `yaml:"http"`
	Journal    JournalConfig    `yaml:"journal"`
	Results    ResultsConfig    `yaml:"results"`
}

type SessionConfig struct {
	SessionID     string `yaml:"session_id"`
	ParticipantID string `yaml:"participant_id"`
}

type TestConfig struct {
	FPS    int `yaml:"fps"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	QRSize int `yaml:"qr_size"`
	// Background draws the camera image behind the barcode overlay. Defaults
	// to true; a pointer distinguishes "unset" from an explicit false.
	Background *bool `yaml:"background"`
}

type ConnectionConfig struct {
	// Mode selects the transport: "loopback" or "webrtc".
	Mode string `yaml:"mode"`
	// FrameDelay applies to loopback mode only.
	FrameDelay int `yaml:"frame_delay"`
	// SignalingURL is the websocket signaling endpoint for webrtc mode.
	SignalingURL string   `yaml:"signaling_url"`
	STUNServers  []string `yaml:"stun_servers"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type ResultsConfig struct {
	ConnString   string `yaml:"conn_string"`
	RunsTable    string `yaml:"runs_table"`
	SamplesTable string `yaml:"samples_table"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Test.FPS == 0 {
		c.Test.FPS = 30
	}
	if c.Test.Width == 0 {
		c.Test.Width = 640
	}
	if c.Test.Height == 0 {
		c.Test.Height = 480
	}
	if c.Test.QRSize == 0 {
		c.Test.QRSize = 200
	}
	if c.Test.Background == nil {
		b := true
		c.Test.Background = &b
	}
	if c.Connection.Mode == "" {
		c.Connection.Mode = "loopback"
	}
	if c.Connection.Mode == "webrtc" && len(c.Connection.STUNServers) == 0 {
		c.Connection.STUNServers = []string{"stun:stun.l.google.com:19302"}
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = "./data/journal"
	}
	if c.Results.RunsTable == "" {
		c.Results.RunsTable = "latency_runs"
	}
	if c.Results.SamplesTable == "" {
		c.Results.SamplesTable = "latency_samples"
	}
}

func (c *Config) validate() error {
	switch c.Connection.Mode {
	case "loopback":
		if c.Connection.FrameDelay < 0 {
			return fmt.Errorf("connection.frame_delay must not be negative")
		}
	case "webrtc":
		if c.Connection.SignalingURL == "" {
			return fmt.Errorf("connection.signaling_url is required in webrtc mode")
		}
	default:
		return fmt.Errorf("connection.mode must be loopback or webrtc, got %q", c.Connection.Mode)
	}
	return c.validateTest()
}

func (c *Config) validateTest() error {
	if c.Test.FPS <= 0 {
		return fmt.Errorf("test.fps must be positive")
	}
	if c.Test.Width <= 0 || c.Test.Height <= 0 {
		return fmt.Errorf("test resolution must be positive")
	}
	if c.Test.QRSize <= 0 {
		return fmt.Errorf("test.qr_size must be positive")
	}
	region := harness.OverlayRegion(c.Test.QRSize)
	if region.Dx() > c.Test.Width || region.Dy() > c.Test.Height {
		return fmt.Errorf("test.qr_size %d does not fit a %dx%d frame", c.Test.QRSize, c.Test.Width, c.Test.Height)
	}
	return nil
}

// Harness translates the file schema into the controller's run settings.
func (c *Config) Harness() harness.Config {
	background := true
	if c.Test.Background != nil {
		background = *c.Test.Background
	}
	return harness.Config{
		SessionID:     c.Session.SessionID,
		ParticipantID: c.Session.ParticipantID,
		FPS:           c.Test.FPS,
		Width:         c.Test.Width,
		Height:        c.Test.Height,
		QRSize:        c.Test.QRSize,
		Background:    background,
	}
}
