// Package collyfetcher implements the listing page source using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/jobsight/jobtracker/internal/fetcher/extract"
	"github.com/jobsight/jobtracker/internal/fetcher/headless"
	"github.com/jobsight/jobtracker/internal/jobs"
	"github.com/jobsight/jobtracker/internal/policy/ratelimit"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// Renderer produces a fully rendered DOM for pages that build their listing
// in JavaScript.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (headless.RenderedPage, error)
}

// Detector decides whether a static fetch should be promoted to a headless
// render.
type Detector interface {
	ShouldPromote(statusCode int, body []byte) bool
}

// Source implements jobs.PageSource against Avature-style career sites:
// each listing page renders postings as article elements whose detail link
// ends in the numeric job ID.
type Source struct {
	cfg           Config
	baseCollector *colly.Collector
	clock         jobs.Clock
	limiter       *ratelimit.Limiter
	renderer      Renderer
	detector      Detector
	logger        *zap.Logger
}

// New builds a Source.
func New(cfg Config, clock jobs.Clock, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())

	return &Source{
		cfg:           cfg,
		baseCollector: c,
		clock:         clock,
		logger:        logger,
	}
}

// UseLimiter paces page fetches per host.
func (s *Source) UseLimiter(limiter *ratelimit.Limiter) {
	s.limiter = limiter
}

// UseRenderer promotes script-built listing pages to a headless render when
// the detector flags them. Both must be set for promotion to happen.
func (s *Source) UseRenderer(renderer Renderer, detector Detector) {
	s.renderer = renderer
	s.detector = detector
}

// FetchPage fetches one listing page and extracts its raw records. A page
// that cannot be fetched comes back as Unavailable, never as an error; the
// error return is reserved for context cancellation.
func (s *Source) FetchPage(ctx context.Context, site jobs.Site, page int) (jobs.PageResult, error) {
	pageURL := extract.PageURL(site.BaseURL, page)

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, pageURL); err != nil {
			return jobs.PageResult{}, err
		}
	}

	collector := s.buildCollector()

	var (
		records  []jobs.RawJobRecord
		body     []byte
		status   int
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	collector.OnHTML("article", func(e *colly.HTMLElement) {
		if rec, ok := extract.Record(e.DOM, e.Request.URL, site, s.clock.Now()); ok {
			records = append(records, rec)
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(pageURL)
	}()

	select {
	case <-ctx.Done():
		return jobs.PageResult{}, fmt.Errorf("page fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err == nil {
			err = fetchErr
		}
		if err != nil {
			s.logger.Warn("page fetch failed",
				zap.String("url", pageURL),
				zap.Int("page", page),
				zap.Error(err),
			)
			return jobs.PageResult{Page: page, Unavailable: true}, nil
		}
	}

	if len(records) == 0 && s.renderer != nil && s.detector != nil && s.detector.ShouldPromote(status, body) {
		return s.renderPage(ctx, site, page, pageURL)
	}
	return jobs.PageResult{Page: page, Records: records}, nil
}

// renderPage re-fetches a script-built page with the headless renderer and
// extracts records from the rendered DOM.
func (s *Source) renderPage(ctx context.Context, site jobs.Site, page int, pageURL string) (jobs.PageResult, error) {
	s.logger.Debug("page promoted to headless render",
		zap.String("url", pageURL),
		zap.Int("page", page),
	)
	rendered, err := s.renderer.Render(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return jobs.PageResult{}, fmt.Errorf("page render canceled: %w", ctx.Err())
		}
		s.logger.Warn("page render failed",
			zap.String("url", pageURL),
			zap.Int("page", page),
			zap.Error(err),
		)
		return jobs.PageResult{Page: page, Unavailable: true}, nil
	}
	if rendered.StatusCode >= 400 {
		return jobs.PageResult{Page: page, Unavailable: true}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered.HTML))
	if err != nil {
		s.logger.Warn("rendered page unparsable",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return jobs.PageResult{Page: page, Unavailable: true}, nil
	}

	base, err := url.Parse(rendered.FinalURL)
	if err != nil || base.Hostname() == "" {
		base, _ = url.Parse(pageURL)
	}
	records := extract.Records(doc.Selection, base, site, s.clock.Now())
	return jobs.PageResult{Page: page, Records: records}, nil
}

func (s *Source) buildCollector() *colly.Collector {
	collector := s.baseCollector.Clone()
	if s.cfg.UserAgent != "" {
		collector.UserAgent = s.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !s.cfg.RespectRobots
	timeout := s.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	return collector
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
