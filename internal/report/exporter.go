// Package report exports run reports as JSON artifacts to blob storage.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jobsight/jobtracker/internal/hash/sha256"
	"github.com/jobsight/jobtracker/internal/jobs"
)

// BlobStore is where exported reports land: local filesystem, GCS, or an
// in-memory store in tests.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Document is the exported artifact: the run record plus the active posting
// set it left behind.
type Document struct {
	Run      jobs.ScrapeRun    `json:"run"`
	Postings []jobs.JobPosting `json:"postings"`
}

// Export describes one stored report.
type Export struct {
	URI    string `json:"uri"`
	SHA256 string `json:"sha256"`
}

// Exporter marshals run reports and writes them to a blob store.
type Exporter struct {
	store  BlobStore
	hasher *sha256.Hasher
	logger *zap.Logger
}

// New constructs an Exporter.
func New(store BlobStore, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		store:  store,
		hasher: sha256.New(),
		logger: logger,
	}
}

// Export writes one run's report under runs/<run-id>.json and returns the
// artifact URI and content digest.
func (e *Exporter) Export(ctx context.Context, run jobs.ScrapeRun, postings []jobs.JobPosting) (Export, error) {
	doc := Document{Run: run, Postings: postings}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Export{}, fmt.Errorf("marshal run report: %w", err)
	}

	path := fmt.Sprintf("runs/%s.json", run.ID)
	uri, err := e.store.PutObject(ctx, path, "application/json", bytes.NewReader(data))
	if err != nil {
		return Export{}, fmt.Errorf("store run report: %w", err)
	}

	export := Export{URI: uri, SHA256: e.hasher.Hash(data)}
	e.logger.Info("run report exported",
		zap.String("run_id", run.ID),
		zap.String("uri", export.URI),
		zap.String("sha256", export.SHA256),
		zap.Int("postings", len(postings)),
	)
	return export, nil
}
