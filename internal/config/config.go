package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zing-audio/zing/internal/protocol"
)

// Environment variables read by ApplyEnv.
const (
	EnvSocket         = "ZING_SOCKET"
	EnvHTTPAddr       = "ZING_HTTP_ADDR"
	EnvHTTPOrigins    = "ZING_HTTP_ORIGINS"
	EnvLogLevel       = "ZING_LOG_LEVEL"
	EnvSampleRate     = "ZING_SAMPLE_RATE"
	EnvPlayFinalChord = "ZING_PLAY_FINAL_CHORD"
)

// Duration is a time.Duration that reads and writes as "100ms" in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds the daemon settings.
type Config struct {
	SocketPath      string      `json:"socketPath"`
	SocketMode      fs.FileMode `json:"socketMode"`
	HTTPAddr        string      `json:"httpAddr,omitempty"`
	HTTPOrigins     []string    `json:"httpOrigins,omitempty"` // browser origins allowed to use the HTTP API
	SampleRate      int         `json:"sampleRate"`
	LogLevel        string      `json:"logLevel"`
	PlayFinalChord  bool        `json:"playFinalChord,omitempty"`
	ReadTimeout     Duration    `json:"readTimeout"`
	MaxMessageBytes int64       `json:"maxMessageBytes"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		SocketPath:      protocol.DefaultSocketPath,
		SocketMode:      0o666,
		SampleRate:      48000,
		LogLevel:        "info",
		ReadTimeout:     Duration(5 * time.Second),
		MaxMessageBytes: 16 << 20,
	}
}

// Load reads a JSON config file over the defaults. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from ZING_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvSocket); v != "" {
		c.SocketPath = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv(EnvHTTPOrigins); v != "" {
		c.HTTPOrigins = splitList(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvSampleRate); v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSampleRate, err)
		}
		c.SampleRate = rate
	}
	if v := os.Getenv(EnvPlayFinalChord); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPlayFinalChord, err)
		}
		c.PlayFinalChord = b
	}
	return nil
}

// splitList splits a comma separated list, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.SocketPath == "" {
		return errors.New("socket path must not be empty")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.ReadTimeout <= 0 {
		return errors.New("read timeout must be positive")
	}
	if c.MaxMessageBytes <= 0 {
		return errors.New("max message size must be positive")
	}
	return nil
}

// SocketPath returns the client's socket path: ZING_SOCKET if set, else the
// default.
func SocketPath() string {
	if v := os.Getenv(EnvSocket); v != "" {
		return v
	}
	return protocol.DefaultSocketPath
}
