package miner

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"azubimine/internal/config"
	"azubimine/internal/errors"
	"azubimine/internal/models"
	"azubimine/internal/salary"
)

type fakeScraper struct {
	listings   []models.Listing
	listErr    error
	pages      map[string]string
	fetchErrs  map[string]error
	fetchCalls []string
}

func (f *fakeScraper) ListCurrentPostings(ctx context.Context) ([]models.Listing, error) {
	return f.listings, f.listErr
}

func (f *fakeScraper) FetchFullPage(ctx context.Context, url string) (string, error) {
	f.fetchCalls = append(f.fetchCalls, url)
	if err, ok := f.fetchErrs[url]; ok {
		return "", err
	}
	if page, ok := f.pages[url]; ok {
		return page, nil
	}
	return "<html>default</html>", nil
}

func (f *fakeScraper) CleanToText(rawHTML string) string { return rawHTML }

type fakeAnalyzer struct {
	postings map[string]*models.JobPosting
	calls    int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, rawHTML, cleanedText, sourceURL, sourcePlatform string) *models.JobPosting {
	f.calls++
	return f.postings[sourceURL]
}

type fakeResolver struct {
	resolution salary.Resolution
	calls      int
}

func (f *fakeResolver) Resolve(ctx context.Context, in salary.Input) salary.Resolution {
	f.calls++
	return f.resolution
}

type fakeStore struct {
	postings     map[string]*models.JobPosting
	inserted     []*models.JobPosting
	insertErr    error
	updates      map[string]map[string]any
	markedStale  []string
	staleCutoffs []time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		postings: make(map[string]*models.JobPosting),
		updates:  make(map[string]map[string]any),
	}
}

func (f *fakeStore) GetByLink(ctx context.Context, link string) (*models.JobPosting, error) {
	if p, ok := f.postings[link]; ok {
		return p, nil
	}
	return nil, errors.NotFound("posting not stored", nil)
}

func (f *fakeStore) Insert(ctx context.Context, posting *models.JobPosting) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.postings[posting.OriginalLink]; ok {
		return errors.Duplicate("posting already stored", nil)
	}
	f.postings[posting.OriginalLink] = posting
	f.inserted = append(f.inserted, posting)
	return nil
}

func (f *fakeStore) UpdateFields(ctx context.Context, link string, fields map[string]any) error {
	if _, ok := f.postings[link]; !ok {
		return errors.NotFound("posting not stored", nil)
	}
	f.updates[link] = fields
	return nil
}

func (f *fakeStore) ActiveLinks(ctx context.Context) ([]string, error) {
	var links []string
	for link, p := range f.postings {
		if p.IsActive {
			links = append(links, link)
		}
	}
	return links, nil
}

func (f *fakeStore) MarkInactive(ctx context.Context, links []string) (int64, error) {
	f.markedStale = append(f.markedStale, links...)
	for _, link := range links {
		if p, ok := f.postings[link]; ok {
			p.IsActive = false
		}
	}
	return int64(len(links)), nil
}

func (f *fakeStore) NotCheckedSince(ctx context.Context, cutoff time.Time) ([]models.JobPosting, error) {
	f.staleCutoffs = append(f.staleCutoffs, cutoff)
	var out []models.JobPosting
	for _, p := range f.postings {
		if p.IsActive && (p.LastCheckedAt == nil || p.LastCheckedAt.Before(cutoff)) {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeArtifacts struct {
	put     []string
	deleted []string
}

func (f *fakeArtifacts) Put(ctx context.Context, link, rawHTML string) error {
	f.put = append(f.put, link)
	return nil
}

func (f *fakeArtifacts) Delete(ctx context.Context, link string) {
	f.deleted = append(f.deleted, link)
}

type fakePublisher struct {
	newPostings []string
	inactive    []string
}

func (f *fakePublisher) PublishNewPosting(ctx context.Context, posting *models.JobPosting) error {
	f.newPostings = append(f.newPostings, posting.OriginalLink)
	return nil
}

func (f *fakePublisher) PublishInactive(ctx context.Context, id, originalLink string) error {
	f.inactive = append(f.inactive, originalLink)
	return nil
}

type fixture struct {
	miner     *Miner
	scraper   *fakeScraper
	analyzer  *fakeAnalyzer
	resolver  *fakeResolver
	store     *fakeStore
	artifacts *fakeArtifacts
	events    *fakePublisher
}

func newFixture() *fixture {
	f := &fixture{
		scraper:   &fakeScraper{pages: map[string]string{}, fetchErrs: map[string]error{}},
		analyzer:  &fakeAnalyzer{postings: map[string]*models.JobPosting{}},
		resolver:  &fakeResolver{},
		store:     newFakeStore(),
		artifacts: &fakeArtifacts{},
		events:    &fakePublisher{},
	}
	cfg := &config.Config{
		SourcePlatform:       "ausbildung.de",
		MaxItemsPerRun:       200,
		VerificationInterval: 720 * time.Hour,
	}
	f.miner = New(f.scraper, f.analyzer, f.resolver, f.store, f.artifacts, f.events, cfg, zap.NewNop())
	return f
}

func minimalPosting(link string) *models.JobPosting {
	return &models.JobPosting{
		ID:               models.PostingID(link),
		OriginalLink:     link,
		SourcePlatform:   "ausbildung.de",
		Title:            "Ausbildung zur Fachkraft",
		CompanyName:      "Test AG",
		Salary:           models.Salary{Currency: "EUR"},
		TariffType:       models.TariffNone,
		IsActive:         true,
		ExtractionMethod: models.ExtractedByLLM,
	}
}

func TestRunEmptyListingEndsEarlyWithoutStalenessMarking(t *testing.T) {
	f := newFixture()
	stored := minimalPosting("https://x.de/old")
	f.store.postings[stored.OriginalLink] = stored

	stats, err := f.miner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !stats.EmptyListing {
		t.Error("empty listing not flagged")
	}
	if len(f.store.markedStale) != 0 {
		t.Errorf("staleness marking ran on empty listing: %v", f.store.markedStale)
	}
	if !stored.IsActive {
		t.Error("stored posting deactivated by empty listing")
	}
}

func TestRunDiscoveryFailureAbortsRun(t *testing.T) {
	f := newFixture()
	f.scraper.listErr = errors.Transient("boom", nil)

	if _, err := f.miner.Run(context.Background()); err == nil {
		t.Fatal("expected error when discovery fails")
	}
	if len(f.store.markedStale) != 0 {
		t.Error("staleness marking ran after failed discovery")
	}
}

func TestRunInsertsNewPosting(t *testing.T) {
	f := newFixture()
	link := "https://x.de/1"
	f.scraper.listings = []models.Listing{{URL: link, VacancyCount: 2}}
	f.analyzer.postings[link] = minimalPosting(link)

	stats, err := f.miner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Inserted != 1 {
		t.Errorf("inserted = %d, want 1", stats.Inserted)
	}
	if len(f.store.inserted) != 1 {
		t.Fatalf("store got %d inserts", len(f.store.inserted))
	}
	got := f.store.inserted[0]
	if got.VacancyCount == nil || *got.VacancyCount != 2 {
		t.Errorf("vacancy count not taken from listing: %v", got.VacancyCount)
	}
	if len(f.events.newPostings) != 1 || f.events.newPostings[0] != link {
		t.Errorf("new posting event = %v", f.events.newPostings)
	}
	// Artifact lifecycle: stored before extraction, dropped after the save.
	if len(f.artifacts.put) != 1 || len(f.artifacts.deleted) != 1 {
		t.Errorf("artifact put/deleted = %v/%v", f.artifacts.put, f.artifacts.deleted)
	}
}

func TestRunRefreshesExistingWithoutRefetch(t *testing.T) {
	f := newFixture()
	link := "https://x.de/1"
	stored := minimalPosting(link)
	count := 2
	stored.VacancyCount = &count
	f.store.postings[link] = stored
	f.scraper.listings = []models.Listing{{URL: link, VacancyCount: 2}}

	stats, err := f.miner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Refreshed != 1 || stats.Updated != 0 {
		t.Errorf("refreshed/updated = %d/%d, want 1/0", stats.Refreshed, stats.Updated)
	}
	if len(f.scraper.fetchCalls) != 0 {
		t.Errorf("existing posting re-fetched: %v", f.scraper.fetchCalls)
	}
	if f.analyzer.calls != 0 {
		t.Error("existing posting re-extracted")
	}
	if _, ok := f.store.updates[link]["last_checked_at"]; !ok {
		t.Error("check timestamp not refreshed")
	}
}

func TestRunUpdatesChangedVacancyCount(t *testing.T) {
	f := newFixture()
	link := "https://x.de/1"
	stored := minimalPosting(link)
	count := 1
	stored.VacancyCount = &count
	f.store.postings[link] = stored
	f.scraper.listings = []models.Listing{{URL: link, VacancyCount: 4}}

	stats, err := f.miner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Updated != 1 {
		t.Errorf("updated = %d, want 1", stats.Updated)
	}
	if got := f.store.updates[link]["vacancy_count"]; got != 4 {
		t.Errorf("vacancy_count update = %v, want 4", got)
	}
}

func TestRunMarksAbsentPostingsInactive(t *testing.T) {
	f := newFixture()
	present := minimalPosting("https://x.de/present")
	absent := minimalPosting("https://x.de/absent")
	f.store.postings[present.OriginalLink] = present
	f.store.postings[absent.OriginalLink] = absent
	f.scraper.listings = []models.Listing{{URL: present.OriginalLink, VacancyCount: 1}}

	stats, err := f.miner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.MarkedInactive != 1 {
		t.Errorf("marked inactive = %d, want 1", stats.MarkedInactive)
	}
	if absent.IsActive {
		t.Error("absent posting still active")
	}
	if present.IsActive == false {
		t.Error("present posting deactivated")
	}
	if len(f.events.inactive) != 1 || f.events.inactive[0] != absent.OriginalLink {
		t.Errorf("inactive events = %v", f.events.inactive)
	}
}

func TestRunItemFailuresDoNotHaltRun(t *testing.T) {
	f := newFixture()
	bad := "https://x.de/bad"
	good := "https://x.de/good"
	f.scraper.listings = []models.Listing{
		{URL: bad, VacancyCount: 1},
		{URL: good, VacancyCount: 1},
	}
	f.scraper.fetchErrs[bad] = errors.Transient("fetch failed", nil)
	f.analyzer.postings[good] = minimalPosting(good)

	stats, err := f.miner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Failed != 1 || stats.Inserted != 1 {
		t.Errorf("failed/inserted = %d/%d, want 1/1", stats.Failed, stats.Inserted)
	}
}

func TestRunAbandonedExtractionDropsArtifact(t *testing.T) {
	f := newFixture()
	link := "https://x.de/1"
	f.scraper.listings = []models.Listing{{URL: link, VacancyCount: 1}}
	// Analyzer returns nil: even the heuristic found nothing.

	stats, err := f.miner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("failed = %d, want 1", stats.Failed)
	}
	if len(f.artifacts.deleted) != 1 {
		t.Errorf("artifact not dropped on abandonment: %v", f.artifacts.deleted)
	}
}

func TestRunDuplicateInsertIsSkippedNotFailed(t *testing.T) {
	f := newFixture()
	link := "https://x.de/1"
	f.scraper.listings = []models.Listing{{URL: link, VacancyCount: 1}}
	f.analyzer.postings[link] = minimalPosting(link)
	f.store.insertErr = errors.Duplicate("posting already stored", nil)

	stats, err := f.miner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Skipped != 1 || stats.Failed != 0 {
		t.Errorf("skipped/failed = %d/%d, want 1/0", stats.Skipped, stats.Failed)
	}
	if len(f.artifacts.deleted) != 1 {
		t.Error("artifact not dropped on duplicate")
	}
}

func TestRunItemCapBindsProcessingNotStaleness(t *testing.T) {
	f := newFixture()
	f.miner.cfg = &config.Config{SourcePlatform: "ausbildung.de", MaxItemsPerRun: 1}
	first := "https://x.de/1"
	second := "https://x.de/2"
	f.scraper.listings = []models.Listing{
		{URL: first, VacancyCount: 1},
		{URL: second, VacancyCount: 1},
	}
	f.analyzer.postings[first] = minimalPosting(first)
	// The second link is stored and still listed; the cap must not cause it
	// to be treated as stale.
	f.store.postings[second] = minimalPosting(second)

	stats, err := f.miner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Processed != 1 {
		t.Errorf("processed = %d, want 1", stats.Processed)
	}
	if stats.MarkedInactive != 0 {
		t.Errorf("capped item marked inactive: %v", f.store.markedStale)
	}
}

func TestRunEnrichesSalaryViaFullResolver(t *testing.T) {
	f := newFixture()
	link := "https://x.de/1"
	posting := minimalPosting(link)
	posting.TariffType = models.TariffOther
	f.scraper.listings = []models.Listing{{URL: link, VacancyCount: 1}}
	f.analyzer.postings[link] = posting

	firstYear := 1250
	avg := 1250
	f.resolver.resolution = salary.Resolution{
		FirstYearSalary: &firstYear,
		Average:         &avg,
		Source:          salary.SourceCompanyWebsite,
		TariffUsed:      models.TariffOther,
	}

	if _, err := f.miner.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if f.resolver.calls != 1 {
		t.Fatalf("resolver called %d times, want 1", f.resolver.calls)
	}
	got := f.store.inserted[0]
	if got.Salary.FirstYearSalary == nil || *got.Salary.FirstYearSalary != 1250 {
		t.Errorf("salary not enriched: %+v", got.Salary)
	}
}

func TestRunSkipsEnrichmentWithoutTariff(t *testing.T) {
	f := newFixture()
	link := "https://x.de/1"
	f.scraper.listings = []models.Listing{{URL: link, VacancyCount: 1}}
	f.analyzer.postings[link] = minimalPosting(link) // TariffNone, no salary

	if _, err := f.miner.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if f.resolver.calls != 0 {
		t.Errorf("resolver called %d times without a tariff, want 0", f.resolver.calls)
	}
}
