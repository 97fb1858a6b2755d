package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobsight/jobtracker/internal/jobs"
	"github.com/jobsight/jobtracker/internal/metrics"
	"github.com/jobsight/jobtracker/internal/storage/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.PostingRepository, *memory.RunStore) {
	t.Helper()
	metrics.Init()
	repo := memory.NewPostingRepository()
	runs := memory.NewRunStore()
	return NewServer(repo, runs, nil), repo, runs
}

func seedPosting(t *testing.T, repo *memory.PostingRepository, url, company string, status jobs.Status) jobs.JobPosting {
	t.Helper()
	p := jobs.JobPosting{
		URL:         url,
		Title:       "Software Engineer",
		Company:     company,
		FirstSeen:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		LastSeen:    time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
		ScrapeCount: 2,
		Status:      status,
	}
	require.NoError(t, repo.Put(context.Background(), p))
	return p
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = doRequest(t, s, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListPostingsByCompany(t *testing.T) {
	t.Parallel()

	s, repo, _ := newTestServer(t)
	seedPosting(t, repo, "https://acme.example/jobs/1", "acme", jobs.StatusActive)
	seedPosting(t, repo, "https://acme.example/jobs/2", "acme", jobs.StatusAbsent)
	seedPosting(t, repo, "https://globex.example/jobs/1", "globex", jobs.StatusActive)

	rec := doRequest(t, s, http.MethodGet, "/v1/postings?company=acme")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count    int               `json:"count"`
		Postings []jobs.JobPosting `json:"postings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)

	rec = doRequest(t, s, http.MethodGet, "/v1/postings?company=acme&status=active")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	require.Equal(t, "https://acme.example/jobs/1", body.Postings[0].URL)
}

func TestListPostingsValidation(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/v1/postings")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/v1/postings?company=acme&status=bogus")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLookupPostingFollowsCanonical(t *testing.T) {
	t.Parallel()

	s, repo, _ := newTestServer(t)
	canonical := seedPosting(t, repo, "https://acme.example/jobs/1", "acme", jobs.StatusActive)
	dup := seedPosting(t, repo, "https://acme.example/jobs/2", "acme", jobs.StatusSuperseded)
	dup.DuplicateOf = canonical.URL
	require.NoError(t, repo.Put(context.Background(), dup))

	rec := doRequest(t, s, http.MethodGet, "/v1/postings/lookup?url=https://acme.example/jobs/2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Posting   jobs.JobPosting  `json:"posting"`
		Canonical *jobs.JobPosting `json:"canonical"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, dup.URL, body.Posting.URL)
	require.NotNil(t, body.Canonical)
	require.Equal(t, canonical.URL, body.Canonical.URL)

	rec = doRequest(t, s, http.MethodGet, "/v1/postings/lookup?url=https://acme.example/jobs/404")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/v1/postings/lookup")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	s, _, runs := newTestServer(t)
	require.NoError(t, runs.CreateRun(context.Background(), jobs.ScrapeRun{
		ID:        "run-1",
		StartedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Status:    jobs.RunStatusCompleted,
	}))
	require.NoError(t, runs.CreateRun(context.Background(), jobs.ScrapeRun{
		ID:        "run-2",
		StartedAt: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
		Status:    jobs.RunStatusRunning,
	}))

	rec := doRequest(t, s, http.MethodGet, "/v1/runs?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []jobs.ScrapeRun `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	require.Equal(t, "run-2", body.Runs[0].ID)

	rec = doRequest(t, s, http.MethodGet, "/v1/runs?limit=zero")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Body.String())
}

func TestListCompanies(t *testing.T) {
	t.Parallel()

	s, repo, _ := newTestServer(t)
	seedPosting(t, repo, "https://acme.example/jobs/1", "acme", jobs.StatusActive)
	seedPosting(t, repo, "https://globex.example/jobs/1", "globex", jobs.StatusActive)

	rec := doRequest(t, s, http.MethodGet, "/v1/companies")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Companies []string `json:"companies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []string{"acme", "globex"}, body.Companies)
}
