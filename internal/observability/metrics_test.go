package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("", reg)

	m.RecordCycle(nil, 2*time.Second)
	m.RecordCycle(errors.New("boom"), time.Second)
	m.RecordTickSkipped()
	m.RecordAdapterFetch("dexscreener", nil, 100*time.Millisecond)
	m.RecordAdapterSkip("dexscreener", "decode")
	m.RecordCandidates("accepted", 3)
	m.RecordCandidates("duplicate", 0)
	m.RecordEnrichment(true)
	m.RecordEnrichment(false)
	m.RecordActivityError()
	m.RecordRPCLatency("getAccountInfo", 10*time.Millisecond, nil)
	m.RecordAnalyzed("safe")
	m.RecordEviction()
	m.UpdateSizes(7, 12)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"cycles success", testutil.ToFloat64(m.CyclesTotal.WithLabelValues("success")), 1},
		{"cycles error", testutil.ToFloat64(m.CyclesTotal.WithLabelValues("error")), 1},
		{"ticks skipped", testutil.ToFloat64(m.TicksSkipped), 1},
		{"adapter fetches", testutil.ToFloat64(m.AdapterFetches.WithLabelValues("dexscreener", "success")), 1},
		{"adapter skips", testutil.ToFloat64(m.AdapterSkipped.WithLabelValues("dexscreener", "decode")), 1},
		{"accepted", testutil.ToFloat64(m.Candidates.WithLabelValues("accepted")), 3},
		{"fallback", testutil.ToFloat64(m.EnrichmentResults.WithLabelValues("fallback")), 1},
		{"ok", testutil.ToFloat64(m.EnrichmentResults.WithLabelValues("ok")), 1},
		{"activity errors", testutil.ToFloat64(m.ActivityErrors), 1},
		{"analyzed", testutil.ToFloat64(m.TokensAnalyzed.WithLabelValues("safe")), 1},
		{"evictions", testutil.ToFloat64(m.CacheEvictions), 1},
		{"cache size", testutil.ToFloat64(m.CacheSize), 7},
		{"seen size", testutil.ToFloat64(m.SeenSetSize), 12},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if n := testutil.CollectAndCount(m.RPCCallLatency); n != 1 {
		t.Errorf("rpc latency series = %d, want 1", n)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordCycle(nil, time.Second)
	m.RecordTickSkipped()
	m.RecordAdapterFetch("a", nil, 0)
	m.RecordAdapterSkip("a", "decode")
	m.RecordCandidates("accepted", 1)
	m.RecordEnrichment(true)
	m.RecordActivityError()
	m.RecordRPCLatency("getSlot", 0, nil)
	m.RecordAnalyzed("safe")
	m.RecordEviction()
	m.UpdateSizes(1, 1)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.RecordTickSkipped()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(string(body), "test_pipeline_ticks_skipped_total 1") {
		t.Errorf("metrics output missing ticks counter:\n%s", body)
	}
}
