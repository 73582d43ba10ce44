//go:build !integration

package metrics

import (
	"testing"

	"trading-academy/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(intentsTotal.WithLabelValues("succeeded"))
	IncPayment(" Succeeded ")
	if got := testutil.ToFloat64(intentsTotal.WithLabelValues("succeeded")); got != before+1 {
		t.Errorf("intents_total{succeeded} = %v, want %v", got, before+1)
	}

	AddPaymentRevenue("USD", 4900)
	if got := testutil.ToFloat64(settledAmountTotal.WithLabelValues("usd")); got < 4900 {
		t.Errorf("expected amount under lower-case currency, got %v", got)
	}

	IncDecline("")
	if got := testutil.ToFloat64(declinesTotal.WithLabelValues("unknown")); got < 1 {
		t.Errorf("empty decline code should count as unknown, got %v", got)
	}

	SetSubscriptionsTotal(map[model.SubscriptionStatus]int{model.SubscriptionStatusActive: 3})
	if got := testutil.ToFloat64(subscriptionsTotal.WithLabelValues("ACTIVE")); got != 3 {
		t.Errorf("subscriptions_total{ACTIVE} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(subscriptionsTotal.WithLabelValues("EXPIRED")); got != 0 {
		t.Errorf("absent statuses must be reset to 0, got %v", got)
	}
}

func TestBuildInfo(t *testing.T) {
	SetBuildInfo("", "abc123")
	SetBuildInfo("1.2.0", "def456")
	if n := testutil.CollectAndCount(buildInfo); n != 1 {
		t.Fatalf("build_info series = %d, want 1 after reset", n)
	}
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// a second pass must tolerate collectors that are already present
	if err := Register(reg); err != nil {
		t.Fatalf("Register twice: %v", err)
	}

	IncJobRun("renewal_sweep", "ok")
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "academy_scheduled_job_runs_total" {
			found = true
		}
	}
	if !found {
		t.Error("namespaced job counter not exported")
	}
}

func TestMustRegister_Idempotent(t *testing.T) {
	MustRegister()
	MustRegister()
}
