// ABOUTME: Configuration for telemetry setup with environment overrides and validation
// ABOUTME: Controls sampling, export interval and the stdout exporter destination

package telemetry

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for the telemetry provider.
type Config struct {
	// ServiceName identifies the service in telemetry data
	ServiceName string

	// ServiceVersion identifies the service version in telemetry data
	ServiceVersion string

	// Enabled controls whether telemetry is active; when false New returns
	// the no-op implementation
	Enabled bool

	// SampleRate controls trace sampling (0.0 to 1.0)
	SampleRate float64

	// MetricInterval controls how often metrics are exported
	MetricInterval time.Duration

	// Writer is the destination for the stdout exporters; nil means os.Stdout
	Writer io.Writer
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "nvstore",
		ServiceVersion: "development",
		Enabled:        false,
		SampleRate:     1.0,
		MetricInterval: 30 * time.Second,
	}
}

// LoadFromEnv loads configuration from environment variables, overriding the
// receiver's values.
func (c *Config) LoadFromEnv() {
	if val := os.Getenv("NVSTORE_TELEMETRY_SERVICE_NAME"); val != "" {
		c.ServiceName = val
	}
	if val := os.Getenv("NVSTORE_TELEMETRY_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Enabled = enabled
		}
	}
	if val := os.Getenv("NVSTORE_TELEMETRY_SAMPLE_RATE"); val != "" {
		if rate, err := strconv.ParseFloat(val, 64); err == nil {
			c.SampleRate = rate
		}
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name must not be empty")
	}
	if c.SampleRate < 0.0 || c.SampleRate > 1.0 {
		return fmt.Errorf("sample rate %f out of range [0.0, 1.0]", c.SampleRate)
	}
	if c.MetricInterval <= 0 {
		return fmt.Errorf("metric interval must be positive, got %v", c.MetricInterval)
	}
	return nil
}

// writer returns the configured writer or os.Stdout.
func (c *Config) writer() io.Writer {
	if c.Writer != nil {
		return c.Writer
	}
	return os.Stdout
}
