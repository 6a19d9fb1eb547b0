package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerFormatsOutput(t *testing.T) {
	tests := []struct {
		name       string
		format     string
		level      string
		assertions func(t *testing.T, output string)
	}{
		{
			name:   "console format is human readable",
			format: "console",
			level:  "info",
			assertions: func(t *testing.T, output string) {
				if strings.HasPrefix(output, "{") || !strings.Contains(output, "hello") {
					t.Fatalf("expected console output, got %q", output)
				}
			},
		},
		{
			name:   "json format carries service and message",
			format: "json",
			level:  "debug",
			assertions: func(t *testing.T, output string) {
				if !strings.HasPrefix(strings.TrimSpace(output), "{") {
					t.Fatalf("expected json output to start with '{', got %q", output)
				}
				if !strings.Contains(output, `"service":"bankledger"`) || !strings.Contains(output, `"message":"hello"`) {
					t.Fatalf("expected service and message fields, got %q", output)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Format: tt.format, Level: tt.level, Output: &buf})
			log.Info().Msg("hello")

			if buf.Len() == 0 {
				t.Fatalf("expected log output, got empty string")
			}

			tt.assertions(t, buf.String())
		})
	}
}

func TestNewLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Level: "warn", Output: &buf})

	log.Info().Msg("ignored")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %q", buf.String())
	}

	log.Warn().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("expected warn message, got %q", buf.String())
	}
}

func TestNewLoggerStampsDriver(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Output: &buf, Driver: "postgres"})

	log.Info().Str("account_id", "42").Msg("balance reconciled")

	out := buf.String()
	for _, want := range []string{`"persistence":"postgres"`, `"account_id":"42"`, `"service":"bankledger"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %q", want, out)
		}
	}
}

func TestNewLoggerOmitsEmptyDriver(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Output: &buf, Service: "bankledger-worker"})

	log.Info().Msg("hello")

	if strings.Contains(buf.String(), "persistence") {
		t.Fatalf("expected no persistence field, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), `"service":"bankledger-worker"`) {
		t.Fatalf("expected custom service, got %q", buf.String())
	}
}
