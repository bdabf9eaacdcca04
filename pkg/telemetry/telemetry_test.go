package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

func TestNoopTelemetry(t *testing.T) {
	tel := NewNoop()
	ctx := context.Background()

	// None of these may panic or block.
	tel.RecordCounter(ctx, "test.counter", 1, attribute.String(AttrComponent, "settings"))
	tel.RecordHistogram(ctx, "test.histogram", 0.5)
	spanCtx, span := tel.StartSpan(ctx, "test.span")
	span.End()
	if spanCtx == nil {
		t.Fatal("StartSpan returned nil context")
	}
	if err := tel.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
}

func TestNewDisabledReturnsNoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	tel, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if _, ok := tel.(*NoopTelemetry); !ok {
		t.Errorf("expected NoopTelemetry, got %T", tel)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"empty service name", func(c *Config) { c.ServiceName = "" }, true},
		{"negative sample rate", func(c *Config) { c.SampleRate = -0.1 }, true},
		{"sample rate above one", func(c *Config) { c.SampleRate = 1.5 }, true},
		{"zero metric interval", func(c *Config) { c.MetricInterval = 0 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigLoadFromEnv(t *testing.T) {
	t.Setenv("NVSTORE_TELEMETRY_ENABLED", "true")
	t.Setenv("NVSTORE_TELEMETRY_SAMPLE_RATE", "0.25")
	t.Setenv("NVSTORE_TELEMETRY_SERVICE_NAME", "nvstore-test")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	if !cfg.Enabled {
		t.Error("expected Enabled true from env")
	}
	if cfg.SampleRate != 0.25 {
		t.Errorf("SampleRate = %f, want 0.25", cfg.SampleRate)
	}
	if cfg.ServiceName != "nvstore-test" {
		t.Errorf("ServiceName = %q, want nvstore-test", cfg.ServiceName)
	}
}

func TestProviderExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Writer = &buf
	cfg.MetricInterval = time.Hour // only flush on shutdown

	tel, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	spanCtx, span := tel.StartSpan(ctx, "settings.save", attribute.Int("entries", 3))
	tel.RecordCounter(spanCtx, "settings.save.bytes", 4096)
	RecordDuration(spanCtx, tel, "settings.save.duration", time.Now())
	span.End()

	if err := tel.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "settings.save") {
		t.Errorf("exported data missing span name:\n%s", out)
	}
	if !strings.Contains(out, "settings.save.bytes") {
		t.Errorf("exported data missing counter name:\n%s", out)
	}
}
