// Package miner drives a mining run over one source: discovery of the current
// listing, reconciliation of each listed posting against the store, and
// staleness marking of postings that disappeared. It also hosts the
// independently schedulable verification sweep.
//
// Runs are deliberately single-threaded. The binding constraint is politeness
// toward the source site and the extraction service quota, not throughput;
// fanning out across postings would defeat both.
package miner

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"azubimine/internal/config"
	"azubimine/internal/errors"
	"azubimine/internal/models"
	"azubimine/internal/salary"
	"azubimine/internal/scraper"
	"azubimine/internal/store"
	"azubimine/internal/telemetry"
)

// Analyzer turns a fetched page into a canonical posting, or nil when even
// the degraded path finds nothing usable.
type Analyzer interface {
	Analyze(ctx context.Context, rawHTML, cleanedText, sourceURL, sourcePlatform string) *models.JobPosting
}

// SalaryResolver is the full, network-using resolution chain.
type SalaryResolver interface {
	Resolve(ctx context.Context, in salary.Input) salary.Resolution
}

// ArtifactStore keeps raw pages alive while an item is in flight.
type ArtifactStore interface {
	Put(ctx context.Context, originalLink, rawHTML string) error
	Delete(ctx context.Context, originalLink string)
}

// Publisher announces posting lifecycle events.
type Publisher interface {
	PublishNewPosting(ctx context.Context, posting *models.JobPosting) error
	PublishInactive(ctx context.Context, id, originalLink string) error
}

// Stats summarizes one mining run.
type Stats struct {
	Discovered     int
	Processed      int
	Inserted       int
	Updated        int
	Refreshed      int
	Skipped        int
	Failed         int
	MarkedInactive int
	EmptyListing   bool
}

// SweepStats summarizes one verification sweep.
type SweepStats struct {
	Checked        int
	Unchanged      int
	Updated        int
	MarkedInactive int
	Failed         int
}

type Miner struct {
	scraper   scraper.Scraper
	extractor Analyzer
	resolver  SalaryResolver
	store     store.JobStore
	artifacts ArtifactStore
	events    Publisher
	cfg       *config.Config
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func New(
	sc scraper.Scraper,
	extractor Analyzer,
	resolver SalaryResolver,
	jobs store.JobStore,
	artifacts ArtifactStore,
	events Publisher,
	cfg *config.Config,
	logger *zap.Logger,
) *Miner {
	return &Miner{
		scraper:   sc,
		extractor: extractor,
		resolver:  resolver,
		store:     jobs,
		artifacts: artifacts,
		events:    events,
		cfg:       cfg,
		logger:    logger,
		tracer:    telemetry.GetTracer("azubimine/miner"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one full mining run. Phases are strictly sequential: staleness
// marking in phase 3 is only sound against the complete listing gathered in
// phase 1. Item-level failures are absorbed; only a failed discovery or a
// store-level boundary failure aborts the run.
func (m *Miner) Run(ctx context.Context) (Stats, error) {
	ctx, span := m.tracer.Start(ctx, "MiningRun")
	defer span.End()

	var stats Stats

	listings, err := m.scraper.ListCurrentPostings(ctx)
	if err != nil {
		span.RecordError(err)
		return stats, errors.Transient("listing discovery failed", err)
	}
	stats.Discovered = len(listings)

	if len(listings) == 0 {
		// A totally empty listing is more likely a source hiccup than a
		// market collapse. Ending here, before phase 3, prevents marking
		// every stored posting inactive off a bad fetch.
		stats.EmptyListing = true
		m.logger.Warn("empty listing, ending run without staleness marking")
		return stats, nil
	}

	currentLinks := make(map[string]bool, len(listings))
	for _, l := range listings {
		currentLinks[l.URL] = true
	}

	limit := m.cfg.MaxItemsPerRun
	for i, listing := range listings {
		if limit > 0 && i >= limit {
			m.logger.Info("per-run item cap reached",
				zap.Int("cap", limit),
				zap.Int("remaining", len(listings)-i))
			break
		}
		stats.Processed++
		m.reconcileItem(ctx, listing, &stats)
	}

	marked, err := m.markStale(ctx, currentLinks)
	if err != nil {
		span.RecordError(err)
		return stats, err
	}
	stats.MarkedInactive = marked

	m.logger.Info("mining run complete",
		zap.Int("discovered", stats.Discovered),
		zap.Int("inserted", stats.Inserted),
		zap.Int("updated", stats.Updated),
		zap.Int("refreshed", stats.Refreshed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int("marked_inactive", stats.MarkedInactive))
	return stats, nil
}

// reconcileItem handles one listed posting. Every failure path ends in "skip
// and continue": a single bad posting must never block the rest of the run.
func (m *Miner) reconcileItem(ctx context.Context, listing models.Listing, stats *Stats) {
	ctx, span := m.tracer.Start(ctx, "ReconcileItem")
	defer span.End()
	span.SetAttributes(telemetry.String("posting.url", listing.URL))

	existing, err := m.store.GetByLink(ctx, listing.URL)
	switch {
	case err == nil:
		m.refreshExisting(ctx, listing, existing, stats)
	case errors.IsNotFound(err):
		m.mineNew(ctx, listing, stats)
	default:
		span.RecordError(err)
		m.logger.Warn("store lookup failed, skipping item",
			zap.String("url", listing.URL),
			zap.Error(err))
		stats.Failed++
	}
}

// refreshExisting updates an already-stored posting from its listing entry
// alone. No re-fetch, no re-extraction: the listing only carries the vacancy
// count, and everything else is the verification sweep's job.
func (m *Miner) refreshExisting(ctx context.Context, listing models.Listing, existing *models.JobPosting, stats *Stats) {
	fields := map[string]any{"last_checked_at": m.now()}

	if existing.VacancyCount == nil || *existing.VacancyCount != listing.VacancyCount {
		fields["vacancy_count"] = listing.VacancyCount
	}

	if err := m.store.UpdateFields(ctx, listing.URL, fields); err != nil {
		m.logger.Warn("refresh failed, skipping item",
			zap.String("url", listing.URL),
			zap.Error(err))
		stats.Failed++
		return
	}

	if len(fields) > 1 {
		stats.Updated++
	} else {
		stats.Refreshed++
	}
}

// mineNew fetches, extracts and inserts a posting seen for the first time.
// The raw page lives in the artifact store from before extraction until the
// item is durably saved or permanently abandoned.
func (m *Miner) mineNew(ctx context.Context, listing models.Listing, stats *Stats) {
	rawHTML, err := m.scraper.FetchFullPage(ctx, listing.URL)
	if err != nil {
		m.logger.Warn("page fetch failed, skipping item",
			zap.String("url", listing.URL),
			zap.Bool("permanent", errors.IsNotFound(err)),
			zap.Error(err))
		stats.Failed++
		return
	}

	if err := m.artifacts.Put(ctx, listing.URL, rawHTML); err != nil {
		// The artifact is an audit aid, not a prerequisite.
		m.logger.Warn("artifact store failed, continuing without audit copy",
			zap.String("url", listing.URL),
			zap.Error(err))
	}

	posting := m.extractor.Analyze(ctx, rawHTML, m.scraper.CleanToText(rawHTML), listing.URL, m.cfg.SourcePlatform)
	if posting == nil {
		m.logger.Warn("extraction yielded nothing, abandoning item",
			zap.String("url", listing.URL))
		m.artifacts.Delete(ctx, listing.URL)
		stats.Failed++
		return
	}

	if posting.VacancyCount == nil && listing.VacancyCount > 0 {
		count := listing.VacancyCount
		posting.VacancyCount = &count
	}

	m.enrichSalary(ctx, posting)

	if err := m.store.Insert(ctx, posting); err != nil {
		if errors.IsDuplicate(err) {
			// Another path already stored this link; the item is covered.
			m.logger.Debug("duplicate insert, item already covered",
				zap.String("url", listing.URL))
			m.artifacts.Delete(ctx, listing.URL)
			stats.Skipped++
			return
		}
		// Transient store failure: the artifact stays for inspection and
		// expires via TTL; the next run will retry the item.
		m.logger.Warn("insert failed, skipping item",
			zap.String("url", listing.URL),
			zap.Error(err))
		stats.Failed++
		return
	}

	if err := m.events.PublishNewPosting(ctx, posting); err != nil {
		m.logger.Warn("new posting event not published",
			zap.String("id", posting.ID),
			zap.Error(err))
	}

	m.artifacts.Delete(ctx, listing.URL)
	stats.Inserted++
}

// enrichSalary runs the full resolver, company-website probe included, when
// the fast path left no first-year figure but a tariff is on record. The
// result only replaces the stored salary when it actually found one.
func (m *Miner) enrichSalary(ctx context.Context, posting *models.JobPosting) {
	if posting.Salary.FirstYearSalary != nil {
		return
	}
	if posting.TariffType == "" || posting.TariffType == models.TariffNone {
		return
	}

	res := m.resolver.Resolve(ctx, salary.Input{
		TariffType:  posting.TariffType,
		CompanyName: posting.CompanyName,
		SourceURL:   posting.OriginalLink,
	})
	if res.FirstYearSalary == nil {
		return
	}
	posting.Salary = res.Salary()
}

// markStale flags every stored active posting whose link is absent from the
// fresh listing. Nothing is ever deleted; inactive postings stay queryable.
func (m *Miner) markStale(ctx context.Context, currentLinks map[string]bool) (int, error) {
	activeLinks, err := m.store.ActiveLinks(ctx)
	if err != nil {
		return 0, err
	}

	var stale []string
	for _, link := range activeLinks {
		if !currentLinks[link] {
			stale = append(stale, link)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	marked, err := m.store.MarkInactive(ctx, stale)
	if err != nil {
		return 0, err
	}

	for _, link := range stale {
		if err := m.events.PublishInactive(ctx, models.PostingID(link), link); err != nil {
			m.logger.Warn("inactive event not published",
				zap.String("link", link),
				zap.Error(err))
		}
	}

	return int(marked), nil
}
