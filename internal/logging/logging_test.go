package logging

import "testing"

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"bogus":   LevelInfo,
		"ERROR":   LevelError,
	}

	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestLevelString(t *testing.T) {
	if LevelDebug.String() != "debug" {
		t.Errorf("expected 'debug', got %s", LevelDebug.String())
	}
	if LevelError.String() != "error" {
		t.Errorf("expected 'error', got %s", LevelError.String())
	}
	if LogLevel(42).String() != "unknown(42)" {
		t.Errorf("expected 'unknown(42)', got %s", LogLevel(42).String())
	}
}
