package observability_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cinema_catalog/internal/adapters/observability"
)

func scrape(t *testing.T) string {
	t.Helper()
	mh := observability.MetricsHandler(observability.InitRegistry())
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	return string(body)
}

func TestMetricsRegistryAndHandler(t *testing.T) {
	// record one sample so counters are non-zero
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)

	out := scrape(t)
	if !strings.Contains(out, "catalog_http_requests_total") {
		t.Fatalf("expected catalog_http_requests_total in output")
	}
}

func TestPipelineMetrics(t *testing.T) {
	observability.ObserveRun("ok")
	observability.ObserveStage("organize", 120*time.Millisecond)
	observability.ObserveSource("kinoA", nil)
	observability.ObserveSource("kinoB", errors.New("boom"))
	observability.ObserveInvalid("movie", 2)

	out := scrape(t)
	for _, want := range []string{
		`catalog_update_runs_total{outcome="ok"}`,
		`catalog_update_stage_duration_seconds_bucket{stage="organize"`,
		`catalog_source_fetches_total{result="none",source="kinoA"}`,
		`catalog_source_fetches_total{result="*errors.errorString",source="kinoB"}`,
		`catalog_invalid_records_total{kind="movie"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}
