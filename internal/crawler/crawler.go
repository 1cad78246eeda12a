// Package crawler runs one crawl: list the source site, keep a snapshot of
// what was found, and import it into the store.
package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/chida-tennis/chida-crawler/internal/inserter"
	"github.com/chida-tennis/chida-crawler/internal/logger"
	"github.com/chida-tennis/chida-crawler/internal/snapshot"
	"github.com/chida-tennis/chida-crawler/internal/tournament"
)

// Lister produces the tournaments of one crawl.
type Lister interface {
	ListTournaments(ctx context.Context) ([]*tournament.CrawledTournament, error)
}

// Importer writes crawled tournaments to the store.
type Importer interface {
	InsertBatch(ctx context.Context, tournaments []*tournament.CrawledTournament) *inserter.BatchReport
}

// RunReport summarizes one crawl.
type RunReport struct {
	StartedAt    time.Time             `json:"started_at"`
	FinishedAt   time.Time             `json:"finished_at"`
	Found        int                   `json:"found"`
	SnapshotPath string                `json:"snapshot_path,omitempty"`
	Batch        *inserter.BatchReport `json:"batch,omitempty"`
}

// Crawler wires a Lister to an Importer.
type Crawler struct {
	lister    Lister
	importer  Importer
	snapshots *snapshot.Storage
	source    string
	now       func() time.Time
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithSnapshots saves every crawl's tournaments to s before importing.
func WithSnapshots(s *snapshot.Storage, source string) Option {
	return func(c *Crawler) {
		c.snapshots = s
		c.source = source
	}
}

// WithClock overrides the clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) { c.now = now }
}

// New creates a Crawler.
func New(lister Lister, importer Importer, opts ...Option) *Crawler {
	c := &Crawler{lister: lister, importer: importer, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run performs one crawl. It returns an error only when the listing fails;
// per-tournament failures are reported in the batch report.
func (c *Crawler) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{StartedAt: c.now()}
	logger.Info("Crawl started", logger.Fields{"started_at": report.StartedAt.Format(time.RFC3339)})

	tournaments, err := c.lister.ListTournaments(ctx)
	if err != nil {
		report.FinishedAt = c.now()
		return report, fmt.Errorf("listing tournaments: %w", err)
	}
	report.Found = len(tournaments)

	if len(tournaments) == 0 {
		report.FinishedAt = c.now()
		logger.Warn("No tournaments found, nothing to import", nil)
		return report, nil
	}

	if c.snapshots != nil {
		path, err := c.snapshots.Save(snapshot.New(c.source, report.StartedAt, tournaments))
		if err != nil {
			logger.Warn("Saving snapshot failed", logger.Fields{"error": err.Error()})
		} else {
			report.SnapshotPath = path
		}
	}

	report.Batch = c.importer.InsertBatch(ctx, tournaments)
	report.FinishedAt = c.now()

	for _, res := range report.Batch.Failures() {
		logger.Warn("Import failure", logger.Fields{"title": res.Title, "message": res.Message})
	}
	logger.Info("Crawl finished", logger.Fields{
		"found":    report.Found,
		"success":  report.Batch.Success,
		"skipped":  report.Batch.Skipped,
		"failed":   report.Batch.Failed,
		"duration": report.FinishedAt.Sub(report.StartedAt).String(),
		"metrics":  logger.DefaultMetrics().Snapshot(),
	})
	return report, nil
}
