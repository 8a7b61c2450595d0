package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func newViper(t *testing.T, env map[string]any) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	for k, val := range env {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg, err := fromViper(newViper(t, map[string]any{"DEBUG": true}))
	if err != nil {
		t.Fatalf("fromViper: %v", err)
	}

	if cfg.Week.Weekday != "saturday" || cfg.Week.Hour != 1 {
		t.Errorf("week interval = %s %d, want saturday 1", cfg.Week.Weekday, cfg.Week.Hour)
	}
	if cfg.Ordering.Length != 56*time.Hour {
		t.Errorf("ordering length = %v, want 56h", cfg.Ordering.Length)
	}
	if cfg.DefaultUserFund.String() != "1.3" {
		t.Errorf("default fund = %s, want 1.3", cfg.DefaultUserFund)
	}
	if cfg.TimeZone != "Europe/Warsaw" {
		t.Errorf("time zone = %s", cfg.TimeZone)
	}
	if cfg.SecretKey != debugSecretKey {
		t.Errorf("secret = %q, want the debug key", cfg.SecretKey)
	}
}

func TestFromViperRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]any
	}{
		{"Given no secret outside debug When loading Then fails", map[string]any{}},
		{"Given short secret When loading Then fails", map[string]any{"SECRET_KEY": "short"}},
		{"Given bad fund When loading Then fails", map[string]any{"DEBUG": true, "DEFAULT_USER_FUND": "abc"}},
		{"Given hour out of range When loading Then fails", map[string]any{"DEBUG": true, "KOOP_WEEK_INTERVAL_START_HOUR": 25}},
		{"Given zero ordering length When loading Then fails", map[string]any{"DEBUG": true, "KOOP_ORDERING_INTERVAL_LENGTH": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fromViper(newViper(t, tt.env)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
