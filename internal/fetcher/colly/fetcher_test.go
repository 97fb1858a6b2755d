package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobsight/jobtracker/internal/fetcher/headless"
	"github.com/jobsight/jobtracker/internal/headless/detector"
	"github.com/jobsight/jobtracker/internal/jobs"
	"github.com/jobsight/jobtracker/internal/policy/ratelimit"
)

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

const listingPage = `<!DOCTYPE html>
<html><body>
<article>
  <h3><a href="/careers/JobDetail/Senior-Software-Engineer/12345">Senior Software Engineer</a></h3>
  <span class="list-item-location">New York, NY</span>
</article>
<article>
  <h3><a href="/careers/FolderDetail/Data-Analyst/67890">Data Analyst</a></h3>
  <div class="Location">Remote</div>
</article>
<article>
  <p>Not a posting, no detail link here.</p>
</article>
</body></html>`

func TestFetchPageExtractsRecords(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := New(Config{UserAgent: "jobtracker-test"}, fixedClock{at: now}, nil)

	result, err := src.FetchPage(context.Background(), jobs.Site{Company: "acme", BaseURL: srv.URL}, 1)
	require.NoError(t, err)
	require.False(t, result.Unavailable)
	require.Len(t, result.Records, 2)

	first := result.Records[0]
	require.Equal(t, srv.URL+"/careers/JobDetail/Senior-Software-Engineer/12345", first.URL)
	require.Equal(t, "12345", first.JobID)
	require.Equal(t, "Senior Software Engineer", first.Title)
	require.Equal(t, "New York, NY", first.Location)
	require.Equal(t, "acme", first.Company)
	require.Equal(t, now, first.ObservedAt)

	second := result.Records[1]
	require.Equal(t, "67890", second.JobID)
	require.Equal(t, "Remote", second.Location)
}

func TestFetchPageEmptyIsEndOfSite(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>No openings.</p></body></html>`))
	}))
	defer srv.Close()

	src := New(Config{}, fixedClock{at: time.Now()}, nil)
	result, err := src.FetchPage(context.Background(), jobs.Site{Company: "acme", BaseURL: srv.URL}, 1)
	require.NoError(t, err)
	require.False(t, result.Unavailable)
	require.Empty(t, result.Records)
}

func TestFetchPageUnavailableOnServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := New(Config{}, fixedClock{at: time.Now()}, nil)
	result, err := src.FetchPage(context.Background(), jobs.Site{Company: "acme", BaseURL: srv.URL}, 3)
	require.NoError(t, err)
	require.True(t, result.Unavailable)
	require.Equal(t, 3, result.Page)
}

func TestFetchPageCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := New(Config{}, fixedClock{at: time.Now()}, nil)
	_, err := src.FetchPage(ctx, jobs.Site{Company: "acme", BaseURL: "http://127.0.0.1:1"}, 1)
	if err == nil {
		// The visit goroutine may lose the race against the canceled
		// context and report the page as unavailable instead.
		return
	}
	require.ErrorIs(t, err, context.Canceled)
}

type fakeRenderer struct {
	page headless.RenderedPage
	err  error
}

func (r fakeRenderer) Render(_ context.Context, _ string) (headless.RenderedPage, error) {
	return r.page, r.err
}

func TestFetchPagePromotesScriptBuiltListing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div id="root"></div><script>render()</script></body></html>`))
	}))
	defer srv.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := New(Config{}, fixedClock{at: now}, nil)
	src.UseRenderer(fakeRenderer{page: headless.RenderedPage{
		HTML:       listingPage,
		StatusCode: 200,
		FinalURL:   srv.URL + "/careers",
	}}, detector.NewHeuristic(0))

	result, err := src.FetchPage(context.Background(), jobs.Site{Company: "acme", BaseURL: srv.URL}, 1)
	require.NoError(t, err)
	require.False(t, result.Unavailable)
	require.Len(t, result.Records, 2)
	require.Equal(t, srv.URL+"/careers/JobDetail/Senior-Software-Engineer/12345", result.Records[0].URL)
	require.Equal(t, now, result.Records[0].ObservedAt)
}

func TestFetchPageRenderFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div id="app"></div></body></html>`))
	}))
	defer srv.Close()

	src := New(Config{}, fixedClock{at: time.Now()}, nil)
	src.UseRenderer(fakeRenderer{err: errors.New("browser crashed")}, detector.NewHeuristic(0))

	result, err := src.FetchPage(context.Background(), jobs.Site{Company: "acme", BaseURL: srv.URL}, 2)
	require.NoError(t, err)
	require.True(t, result.Unavailable)
	require.Equal(t, 2, result.Page)
}

func TestFetchPageStaticEmptyNeverPromotes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>No openings right now, check back soon.</p></body></html>`))
	}))
	defer srv.Close()

	src := New(Config{}, fixedClock{at: time.Now()}, nil)
	src.UseRenderer(fakeRenderer{page: headless.RenderedPage{HTML: listingPage, StatusCode: 200}}, detector.NewHeuristic(10))

	result, err := src.FetchPage(context.Background(), jobs.Site{Company: "acme", BaseURL: srv.URL}, 1)
	require.NoError(t, err)
	require.False(t, result.Unavailable)
	require.Empty(t, result.Records)
}

func TestFetchPageHonorsLimiter(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	src := New(Config{}, fixedClock{at: time.Now()}, nil)
	src.UseLimiter(ratelimit.New(ratelimit.Config{RPS: 10, Burst: 1}))

	site := jobs.Site{Company: "acme", BaseURL: srv.URL}
	_, err := src.FetchPage(context.Background(), site, 1)
	require.NoError(t, err)

	start := time.Now()
	_, err = src.FetchPage(context.Background(), site, 2)
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	require.Equal(t, 2, hits)
}
