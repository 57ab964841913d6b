package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は指定名・ラベルに一致するメトリクスを探す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("GET", "/achievements/{id}", 200, 30*time.Millisecond)
	c.RecordHTTPRequest("GET", "/achievements/{id}", 200, 10*time.Millisecond)
	c.RecordHTTPRequest("POST", "/achievements/{id}/like", 303, time.Millisecond)

	m := findMetric(t, reg, "successledger_http_requests_total",
		map[string]string{"method": "GET", "route": "/achievements/{id}", "status_code": "200"})
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("http_requests_total = %v, want 2", got)
	}

	h := findMetric(t, reg, "successledger_http_request_duration_seconds",
		map[string]string{"method": "GET", "route": "/achievements/{id}"})
	if got := h.GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("sample count = %d, want 2", got)
	}
}

func TestRecordAction(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAction("like", OutcomeSuccess)
	c.RecordAction("like", OutcomeSuccess)
	c.RecordAction("like", OutcomeFailure)

	if got := findMetric(t, reg, "successledger_actions_total",
		map[string]string{"action": "like", "outcome": "success"}).GetCounter().GetValue(); got != 2 {
		t.Errorf("success = %v, want 2", got)
	}
	if got := findMetric(t, reg, "successledger_actions_total",
		map[string]string{"action": "like", "outcome": "failure"}).GetCounter().GetValue(); got != 1 {
		t.Errorf("failure = %v, want 1", got)
	}
}

func TestRecordPageCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPageCache(true)
	c.RecordPageCache(false)
	c.RecordPageCache(false)

	if got := findMetric(t, reg, "successledger_page_cache_total",
		map[string]string{"result": "hit"}).GetCounter().GetValue(); got != 1 {
		t.Errorf("hit = %v, want 1", got)
	}
	if got := findMetric(t, reg, "successledger_page_cache_total",
		map[string]string{"result": "miss"}).GetCounter().GetValue(); got != 2 {
		t.Errorf("miss = %v, want 2", got)
	}
}

func TestRecordCleanup(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCleanup("sessions", 3)
	c.RecordCleanup("sessions", 4)
	c.RecordCleanup("shares", 0)

	if got := findMetric(t, reg, "successledger_cleanup_deleted_total",
		map[string]string{"kind": "sessions"}).GetCounter().GetValue(); got != 7 {
		t.Errorf("sessions = %v, want 7", got)
	}
}

func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("同じレジストリへの二重登録はpanicすること")
		}
	}()
	NewCollector(reg)
}
