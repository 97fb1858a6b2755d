package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/jobsight/jobtracker/internal/metrics"
)

func TestMetricsRecordsRoutePattern(t *testing.T) {
	metrics.Init()

	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/postings/{company}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	for _, path := range []string{"/postings/acme", "/postings/globex", "/missing"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		if err := resp.Body.Close(); err != nil {
			t.Log(err)
		}
	}

	exposition := scrapeMetrics(t)

	// The histogram is labeled by the chi route pattern, not the raw path.
	if !strings.Contains(exposition, `route="/postings/{company}"`) {
		t.Error("Expected request duration labeled by route pattern /postings/{company}")
	}
	if strings.Contains(exposition, `route="/postings/acme"`) {
		t.Error("Raw request paths must not leak into metric labels")
	}
	if !strings.Contains(exposition, `code="404"`) {
		t.Error("Expected the 404 response to be counted")
	}
}

func scrapeMetrics(t *testing.T) string {
	t.Helper()

	ts := httptest.NewServer(metrics.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if errInner := resp.Body.Close(); errInner != nil {
			t.Log(errInner)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}
