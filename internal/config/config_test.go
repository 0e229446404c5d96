package config

import (
	"os"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestGetenv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		def       string
		shouldSet bool
		want      string
	}{
		{
			name:      "variable set",
			key:       "TEST_GETENV",
			value:     "from_env",
			def:       "fallback",
			shouldSet: true,
			want:      "from_env",
		},
		{
			name: "variable missing uses default",
			key:  "TEST_GETENV_MISSING",
			def:  "fallback",
			want: "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.value)
			}
			if got := getenv(tt.key, tt.def); got != tt.want {
				t.Errorf("getenv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		def       int
		shouldSet bool
		want      int
	}{
		{
			name:      "valid integer",
			key:       "TEST_INT",
			value:     "42",
			def:       5,
			shouldSet: true,
			want:      42,
		},
		{
			name:      "garbage falls back to default",
			key:       "TEST_INT_BAD",
			value:     "not_a_number",
			def:       5,
			shouldSet: true,
			want:      5,
		},
		{
			name: "missing falls back to default",
			key:  "TEST_INT_MISSING",
			def:  7,
			want: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.value)
			}
			if got := getenvInt(tt.key, tt.def); got != tt.want {
				t.Errorf("getenvInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		def       time.Duration
		shouldSet bool
		want      time.Duration
	}{
		{
			name:      "valid duration",
			key:       "TEST_DUR",
			value:     "90s",
			def:       time.Second,
			shouldSet: true,
			want:      90 * time.Second,
		},
		{
			name:      "garbage falls back to default",
			key:       "TEST_DUR_BAD",
			value:     "ninety",
			def:       2 * time.Second,
			shouldSet: true,
			want:      2 * time.Second,
		},
		{
			name: "missing falls back to default",
			key:  "TEST_DUR_MISSING",
			def:  time.Minute,
			want: time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.value)
			}
			if got := mustDuration(tt.key, tt.def); got != tt.want {
				t.Errorf("mustDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		def       bool
		shouldSet bool
		want      bool
	}{
		{
			name:      "explicit false",
			key:       "TEST_BOOL",
			value:     "false",
			def:       true,
			shouldSet: true,
			want:      false,
		},
		{
			name:      "garbage falls back to default",
			key:       "TEST_BOOL_BAD",
			value:     "yep",
			def:       true,
			shouldSet: true,
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.value)
			}
			if got := mustBool(tt.key, tt.def); got != tt.want {
				t.Errorf("mustBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("MKC_ENCRYPTION_SECRET", "secret")
	t.Setenv("MKC_REDIS_ADDR", "localhost:6379")
	t.Setenv("MKC_PARALLEL_CHECKS", "0")

	defer func() {
		if r := recover(); r == nil {
			t.Error("Load() with MKC_PARALLEL_CHECKS=0 should panic")
		}
	}()
	Load()
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MKC_ENCRYPTION_SECRET", "secret")
	t.Setenv("MKC_REDIS_ADDR", "localhost:6379")

	cfg := Load()
	if cfg.ListenPort != ":8080" {
		t.Errorf("ListenPort = %q, want :8080", cfg.ListenPort)
	}
	if cfg.ParallelChecks != 5 {
		t.Errorf("ParallelChecks = %d, want 5", cfg.ParallelChecks)
	}
	if cfg.MaxChecksPerAccount != 10 {
		t.Errorf("MaxChecksPerAccount = %d, want 10", cfg.MaxChecksPerAccount)
	}
	if cfg.CooldownPeriod != time.Hour {
		t.Errorf("CooldownPeriod = %v, want 1h", cfg.CooldownPeriod)
	}
	if !cfg.EgressEnabled {
		t.Error("EgressEnabled should default to true")
	}
	if cfg.EgressDefaultService != "Custom VPN" {
		t.Errorf("EgressDefaultService = %q", cfg.EgressDefaultService)
	}
}
