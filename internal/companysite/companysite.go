// Package companysite probes an employer's own website for apprenticeship
// salary evidence. The probe is strictly best-effort: it guesses career-page
// URLs from the company name, gives up quickly, and caches whatever it finds
// so the same employer is not probed on every run.
package companysite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"azubimine/internal/config"
	"azubimine/internal/mapping"
	"azubimine/internal/models"
	"azubimine/internal/salary"
)

const cacheKeyPrefix = "companysite:"

// candidate paths tried on the guessed domain, most specific first.
var probePaths = []string{"/ausbildung", "/karriere/ausbildung", "/karriere", "/jobs"}

var (
	// "1. Lehrjahr: 1.100 €", "Ausbildungsvergütung von 1100 Euro", etc.
	salaryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)1\.\s*(?:Lehr|Ausbildungs)jahr[^0-9€]{0,60}?(\d{1,2}\.\d{3}|\d{3,4})\s*(?:€|EUR|Euro)`),
		regexp.MustCompile(`(?i)Ausbildungsvergütung[^0-9€]{0,80}?(\d{1,2}\.\d{3}|\d{3,4})\s*(?:€|EUR|Euro)`),
	}

	tariffContextPattern = regexp.MustCompile(`(?i)(?:nach|gemäß)?\s*Tarif(?:vertrag)?[^.]{0,80}`)

	nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]+`)

	// Legal-form suffixes dropped before guessing a domain.
	legalSuffixes = []string{"gmbh & co. kg", "gmbh & co kg", "se & co. kg", "gmbh", "ag", "kg", "se", "e.v.", "ohg", "mbh"}
)

type Prober struct {
	http     *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

var _ salary.CompanySiteFetcher = (*Prober)(nil)

func New(cfg *config.Config, cache *redis.Client, logger *zap.Logger) *Prober {
	return &Prober{
		http:     &http.Client{Timeout: cfg.CompanySiteTimeout},
		cache:    cache,
		cacheTTL: cfg.CacheTTL,
		logger:   logger,
	}
}

// Fetch probes the employer's website for salary evidence. A cached answer,
// positive or negative, short-circuits the network entirely.
func (p *Prober) Fetch(ctx context.Context, companyName, knownURL string) (*salary.CompanyEvidence, error) {
	slug := domainSlug(companyName)
	if slug == "" {
		return nil, nil
	}

	if evidence, ok := p.cached(ctx, slug); ok {
		return evidence, nil
	}

	evidence := p.probe(ctx, slug)
	p.store(ctx, slug, evidence)
	return evidence, nil
}

func (p *Prober) probe(ctx context.Context, slug string) *salary.CompanyEvidence {
	base := fmt.Sprintf("https://www.%s.de", slug)
	for _, path := range probePaths {
		body, err := p.get(ctx, base+path)
		if err != nil {
			continue
		}
		if evidence := parseEvidence(body); evidence != nil {
			p.logger.Debug("company site evidence found",
				zap.String("url", base+path),
				zap.Intp("first_year", evidence.FirstYearSalary))
			return evidence
		}
	}
	return nil
}

func (p *Prober) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (p *Prober) cached(ctx context.Context, slug string) (*salary.CompanyEvidence, bool) {
	if p.cache == nil {
		return nil, false
	}
	raw, err := p.cache.Get(ctx, cacheKeyPrefix+slug).Result()
	if err != nil {
		return nil, false
	}
	if raw == "null" {
		// Cached negative: we looked and found nothing.
		return nil, true
	}
	var evidence salary.CompanyEvidence
	if err := json.Unmarshal([]byte(raw), &evidence); err != nil {
		return nil, false
	}
	return &evidence, true
}

func (p *Prober) store(ctx context.Context, slug string, evidence *salary.CompanyEvidence) {
	if p.cache == nil {
		return
	}
	raw, err := json.Marshal(evidence)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, cacheKeyPrefix+slug, raw, p.cacheTTL).Err(); err != nil {
		p.logger.Debug("company site cache write failed", zap.Error(err))
	}
}

// parseEvidence pulls a first-year figure and a tariff mention out of a page.
// Returns nil when the page names no salary; a tariff mention alone is not
// evidence.
func parseEvidence(body string) *salary.CompanyEvidence {
	for _, pattern := range salaryPatterns {
		m := pattern.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		value, err := strconv.Atoi(strings.ReplaceAll(m[1], ".", ""))
		if err != nil || value < 400 || value > 3000 {
			// Outside any plausible first-year range, likely a false match.
			continue
		}
		evidence := &salary.CompanyEvidence{FirstYearSalary: &value}
		if tariff := tariffContextPattern.FindString(body); tariff != "" {
			evidence.TariffType = mapping.MapTariffType(tariff)
		} else {
			evidence.TariffType = models.TariffNone
		}
		return evidence
	}
	return nil
}

// domainSlug turns "Müller Metallbau GmbH & Co. KG" into "muellermetallbau"
// for a www.<slug>.de guess.
func domainSlug(companyName string) string {
	name := strings.ToLower(strings.TrimSpace(companyName))
	for _, suffix := range legalSuffixes {
		name = strings.TrimSuffix(name, " "+suffix)
	}
	replacer := strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")
	name = replacer.Replace(name)
	return nonAlnumPattern.ReplaceAllString(name, "")
}
