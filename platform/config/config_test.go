package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/leads")
	t.Setenv("TWILIO_AUTH_TOKEN", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GetChaseFollowupDelay() != 4*time.Hour {
		t.Errorf("followup delay = %s, want 4h", cfg.GetChaseFollowupDelay())
	}
	if !cfg.GetAutoChase() || !cfg.GetTwilioWebhookValidate() {
		t.Error("auto chase and webhook validation default to on")
	}
	if cfg.GetTwilioTimeout() != 10*time.Second {
		t.Errorf("twilio timeout = %s", cfg.GetTwilioTimeout())
	}
	if cfg.GetDefaultRegion() != "GB" || cfg.GetAsynqQueueName() != "default" {
		t.Errorf("region=%q queue=%q", cfg.GetDefaultRegion(), cfg.GetAsynqQueueName())
	}
	if cfg.IsTwilioEnabled() {
		t.Error("twilio needs sid, token and number to be enabled")
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing database", map[string]string{"DATABASE_URL": ""}, "DATABASE_URL"},
		{"wildcard cors with credentials", map[string]string{"CORS_ORIGINS": "*", "CORS_ALLOW_CREDENTIALS": "true"}, "CORS_ALLOW_CREDENTIALS"},
		{"webhook validation without token", map[string]string{"TWILIO_AUTH_TOKEN": ""}, "TWILIO_AUTH_TOKEN"},
		{"non-positive followup", map[string]string{"CHASE_FOLLOWUP_DELAY": "0s"}, "CHASE_FOLLOWUP_DELAY"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Load error = %v, want mention of %s", err, tc.want)
			}
		})
	}
}
