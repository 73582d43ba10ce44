package config

import (
	"strings"
	"testing"
	"time"
)

func TestParse_DevDefaults(t *testing.T) {
	cfg, err := Parse([]byte("log:\n  level: debug\n"), true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Payment.Mock.Rate() != 0.85 {
		t.Errorf("expected default success rate 0.85, got %v", cfg.Payment.Mock.Rate())
	}
	if cfg.Webhook.Mode != "sync" {
		t.Errorf("expected sync webhook mode, got %q", cfg.Webhook.Mode)
	}
	if cfg.Webhook.URL != "http://127.0.0.1:8080/webhooks/payment" {
		t.Errorf("unexpected loopback url %q", cfg.Webhook.URL)
	}
	if len(cfg.Entitlement.SignalsPlans) != 1 || cfg.Entitlement.SignalsPlans[0] != "MONTHLY" {
		t.Errorf("expected MONTHLY signals plan default, got %v", cfg.Entitlement.SignalsPlans)
	}
	if cfg.Billing.Dunning.Enabled {
		t.Error("dunning must be off by default")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected explicit log level to survive, got %q", cfg.Log.Level)
	}
	if cfg.RateLimit.IngressPerMinute != 600 || cfg.RateLimit.IngressBurst != 60 {
		t.Errorf("unexpected ingress limits %+v", cfg.RateLimit)
	}
}

func TestParse_IngressLimits(t *testing.T) {
	cfg, err := Parse([]byte("rate_limit:\n  ingress_per_minute: 6000\n  ingress_burst: 500\n"), true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.RateLimit.IngressPerMinute != 6000 || cfg.RateLimit.IngressBurst != 500 {
		t.Errorf("expected configured ingress limits, got %+v", cfg.RateLimit)
	}
	if cfg.RateLimit.ConfirmPerMinute != 20 {
		t.Errorf("expected the confirm default, got %d", cfg.RateLimit.ConfirmPerMinute)
	}
}

func TestParse_ProductionRequiresBackends(t *testing.T) {
	_, err := Parse([]byte("http:\n  port: 9000\n"), false)
	if err == nil || !strings.Contains(err.Error(), "database.url") {
		t.Fatalf("expected database.url error, got %v", err)
	}

	full := `
database:
  url: postgres://localhost/academy
redis:
  url: localhost:6379
auth:
  jwt_secret: s3cret
webhook:
  mode: QUEUE
  backoff: 2s
`
	cfg, err := Parse([]byte(full), false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Webhook.Mode != "queue" {
		t.Errorf("expected mode to be normalized, got %q", cfg.Webhook.Mode)
	}
	if cfg.Webhook.Backoff != 2*time.Second {
		t.Errorf("expected 2s backoff, got %v", cfg.Webhook.Backoff)
	}
}

func TestParse_RejectsUnknownWebhookMode(t *testing.T) {
	if _, err := Parse([]byte("webhook:\n  mode: kafka\n"), true); err == nil {
		t.Fatal("expected an error for unknown webhook mode")
	}
}

func TestNormalizeRate(t *testing.T) {
	if got := NormalizeRate(nil); got != 0.85 {
		t.Errorf("NormalizeRate(nil) = %v, want 0.85", got)
	}
	cases := map[float64]float64{
		0:    0,
		-1:   0,
		0.5:  0.5,
		1:    1,
		100:  1,
		85:   0.85,
		5000: 1,
	}
	for in, want := range cases {
		in := in
		if got := NormalizeRate(&in); got != want {
			t.Errorf("NormalizeRate(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestParse_ZeroSuccessRateIsKept(t *testing.T) {
	cfg, err := Parse([]byte("payment:\n  mock:\n    success_rate: 0\n"), true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Payment.Mock.Rate() != 0 {
		t.Errorf("explicit 0 must stay 0, got %v", cfg.Payment.Mock.Rate())
	}
}
