package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if metrics == nil {
		t.Fatal("NewMetrics returned nil")
	}
	if metrics.LoginsTotal == nil {
		t.Error("LoginsTotal is nil")
	}
	if metrics.LoginDuration == nil {
		t.Error("LoginDuration is nil")
	}
	if metrics.PendingRejections == nil {
		t.Error("PendingRejections is nil")
	}
	if metrics.AccountsCreated == nil {
		t.Error("AccountsCreated is nil")
	}
	if metrics.AccountCreateRace == nil {
		t.Error("AccountCreateRace is nil")
	}
	if metrics.DirectoryOpsTotal == nil {
		t.Error("DirectoryOpsTotal is nil")
	}
	if metrics.CacheHitsTotal == nil {
		t.Error("CacheHitsTotal is nil")
	}
	if metrics.CacheMissesTotal == nil {
		t.Error("CacheMissesTotal is nil")
	}
}

func TestMetrics_ObserveLogin(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.ObserveLogin("federated", "acme", "success", 25*time.Millisecond)
	metrics.ObserveLogin("federated", "acme", "success", 40*time.Millisecond)
	metrics.ObserveLogin("preauth", "", "failure", 5*time.Millisecond)

	got := testutil.ToFloat64(metrics.LoginsTotal.WithLabelValues("federated", "acme", "success"))
	if got != 2 {
		t.Errorf("Expected 2 federated successes, got %v", got)
	}
	got = testutil.ToFloat64(metrics.LoginsTotal.WithLabelValues("preauth", "", "failure"))
	if got != 1 {
		t.Errorf("Expected 1 preauth failure, got %v", got)
	}
}

func TestMetrics_ObserveLogin_NilReceiver(t *testing.T) {
	var metrics *Metrics
	// Must not panic when metrics are disabled.
	metrics.ObserveLogin("federated", "acme", "success", time.Millisecond)
	metrics.ObserveDirectoryOp("find", "ok", time.Millisecond)
}

func TestMetrics_ObserveDirectoryOp(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.ObserveDirectoryOp("insert", "duplicate", 10*time.Millisecond)

	got := testutil.ToFloat64(metrics.DirectoryOpsTotal.WithLabelValues("insert", "duplicate"))
	if got != 1 {
		t.Errorf("Expected 1 duplicate insert, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	metrics.ObserveLogin("federated", "acme", "success", time.Millisecond)

	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), "idgate_logins_total") {
		t.Error("scrape output missing idgate_logins_total")
	}
}
