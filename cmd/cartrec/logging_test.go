package main

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/rushteam/cartrec/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" INFO ":  zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	l := newLogger(config.LogConfig{Level: "warn"})
	if l.GetLevel() != zerolog.WarnLevel {
		t.Errorf("logger level = %v, want warn", l.GetLevel())
	}
}
