package config

import (
	"testing"
	"time"
)

func TestLoadDebugDefaults(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		debug string
		want  bool
	}{
		{name: "dev defaults on", env: "dev", want: true},
		{name: "test defaults on", env: "test", want: true},
		{name: "prod defaults off", env: "prod", want: false},
		{name: "prod explicit on", env: "prod", debug: "true", want: true},
		{name: "dev explicit off", env: "dev", debug: "false", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", tt.env)
			t.Setenv("DEBUG", tt.debug)
			if got := Load().Debug; got != tt.want {
				t.Errorf("Debug = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadTablePrefix(t *testing.T) {
	t.Setenv("TABLE_PREFIX", "")

	tests := []struct {
		env  string
		want string
	}{
		{env: "dev", want: "dev_"},
		{env: "test", want: "test_"},
		{env: "prod", want: "prod_"},
	}
	for _, tt := range tests {
		t.Setenv("ENVIRONMENT", tt.env)
		if got := Load().TablePrefix; got != tt.want {
			t.Errorf("env %s: prefix = %q, want %q", tt.env, got, tt.want)
		}
	}

	t.Setenv("TABLE_PREFIX", "custom_")
	if got := Load().TablePrefix; got != "custom_" {
		t.Errorf("override: prefix = %q, want custom_", got)
	}
}

func TestLoadIdleTimeout(t *testing.T) {
	t.Setenv("IDLE_TIMEOUT", "")
	if got := Load().IdleTimeout; got != 15*time.Minute {
		t.Errorf("default idle timeout = %v, want 15m", got)
	}

	t.Setenv("IDLE_TIMEOUT", "90s")
	if got := Load().IdleTimeout; got != 90*time.Second {
		t.Errorf("idle timeout = %v, want 90s", got)
	}

	// Garbage and non-positive values fall back to the default.
	for _, bad := range []string{"soon", "-5m", "0"} {
		t.Setenv("IDLE_TIMEOUT", bad)
		if got := Load().IdleTimeout; got != 15*time.Minute {
			t.Errorf("IDLE_TIMEOUT=%q: got %v, want default", bad, got)
		}
	}
}
