package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if scrapePagesTotal == nil || postingUpsertsTotal == nil ||
		postingsDeactivatedTotal == nil || scrapeRunsTotal == nil ||
		duplicateGroupsTotal == nil || postingsSupersededTotal == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObservePage("https://jobs.test.com/search", "fetched")
	if val := testutil.ToFloat64(scrapePagesTotal.WithLabelValues("jobs.test.com", "fetched")); val != 1 {
		t.Errorf("Expected scrapePagesTotal to be 1, got %f", val)
	}

	ObserveUpsert("created")
	if val := testutil.ToFloat64(postingUpsertsTotal.WithLabelValues("created")); val != 1 {
		t.Errorf("Expected postingUpsertsTotal to be 1, got %f", val)
	}

	ObserveSweep(3)
	ObserveSweep(0)
	if val := testutil.ToFloat64(postingsDeactivatedTotal); val != 3 {
		t.Errorf("Expected postingsDeactivatedTotal to be 3, got %f", val)
	}

	ObserveDuplicateGroup(2)
	if val := testutil.ToFloat64(duplicateGroupsTotal); val != 1 {
		t.Errorf("Expected duplicateGroupsTotal to be 1, got %f", val)
	}
	if val := testutil.ToFloat64(postingsSupersededTotal); val != 2 {
		t.Errorf("Expected postingsSupersededTotal to be 2, got %f", val)
	}

	ObserveRun("completed")
	if val := testutil.ToFloat64(scrapeRunsTotal.WithLabelValues("completed")); val != 1 {
		t.Errorf("Expected scrapeRunsTotal to be 1, got %f", val)
	}

	ObserveHTTPRequest("GET", "/postings", 200, 25*time.Millisecond)
	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")); val != 1 {
		t.Errorf("Expected httpRequestsTotal to be 1, got %f", val)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	Init()
	ObservePage("https://jobs.test.com/search", "fetched")

	ts := httptest.NewServer(Handler())
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

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "jobtracker_pages_total") {
		t.Error("Expected metrics output to contain jobtracker_pages_total")
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
