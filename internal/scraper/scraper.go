// Package scraper is the thin adapter over the source job board. It exposes
// exactly the capability the mining core needs: the current listing, a full
// detail page, and a text-cleaned view of raw HTML.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"azubimine/internal/config"
	"azubimine/internal/errors"
	"azubimine/internal/models"
)

// Scraper is what the orchestrator consumes.
type Scraper interface {
	// ListCurrentPostings returns every currently advertised posting on the
	// source's listing pages: URL plus the lightweight listing fields.
	ListCurrentPostings(ctx context.Context) ([]models.Listing, error)
	// FetchFullPage returns the raw HTML of one detail page, or a NotFound
	// error when the page is definitively gone (permanent failure), or a
	// Transient error otherwise.
	FetchFullPage(ctx context.Context, url string) (string, error)
	// CleanToText strips raw HTML down to plain text for the extractor.
	CleanToText(rawHTML string) string
}

type collyScraper struct {
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) Scraper {
	return &collyScraper{
		baseURL: cfg.SourceBaseURL,
		timeout: cfg.FetchTimeout,
		logger:  logger,
	}
}

const listingPath = "/suche?seite=%d"

func (s *collyScraper) newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (X11; Linux x86_64) azubimine/1.0"),
	)
	c.SetRequestTimeout(s.timeout)
	return c
}

var vacancyPattern = regexp.MustCompile(`(\d+)\s*(?:freie[rs]?\s+)?(?:Pl(?:atz|ätze)|Stellen?)`)

func (s *collyScraper) ListCurrentPostings(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	seen := make(map[string]bool)

	for page := 1; ; page++ {
		pageListings, err := s.listPage(ctx, page)
		if err != nil {
			if page == 1 {
				return nil, errors.Transient("listing fetch failed", err)
			}
			// A failing later page truncates discovery but does not lose
			// the pages already gathered.
			s.logger.Warn("listing page fetch failed, stopping pagination",
				zap.Int("page", page), zap.Error(err))
			break
		}
		if len(pageListings) == 0 {
			break
		}
		for _, l := range pageListings {
			if seen[l.URL] {
				continue
			}
			seen[l.URL] = true
			listings = append(listings, l)
		}
	}

	s.logger.Info("listing discovery complete", zap.Int("postings", len(listings)))
	return listings, nil
}

func (s *collyScraper) listPage(ctx context.Context, page int) ([]models.Listing, error) {
	var listings []models.Listing
	var visitErr error

	c := s.newCollector()
	c.OnHTML("article.job-posting", func(e *colly.HTMLElement) {
		link := e.Request.AbsoluteURL(e.ChildAttr("a[href]", "href"))
		if link == "" {
			return
		}
		listing := models.Listing{
			URL:          link,
			Title:        strings.TrimSpace(e.ChildText("h2, h3, .job-title")),
			Company:      strings.TrimSpace(e.ChildText(".company, .company-name")),
			VacancyCount: parseVacancyCount(e.ChildText(".vacancies, .positions")),
		}
		listings = append(listings, listing)
	})
	c.OnError(func(r *colly.Response, err error) {
		visitErr = err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	url := s.baseURL + fmt.Sprintf(listingPath, page)
	if err := c.Visit(url); err != nil {
		return nil, err
	}
	c.Wait()

	if visitErr != nil {
		return nil, visitErr
	}
	return listings, nil
}

func (s *collyScraper) FetchFullPage(ctx context.Context, url string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	var html string
	var status int
	var visitErr error

	c := s.newCollector()
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		html = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		visitErr = err
	})

	if err := c.Visit(url); err != nil {
		visitErr = err
	}
	c.Wait()

	if status == http.StatusNotFound || status == http.StatusGone {
		return "", errors.NotFound("page gone", visitErr)
	}
	if visitErr != nil {
		return "", errors.Transient("page fetch failed", visitErr)
	}
	if html == "" {
		return "", errors.Transient("empty page body", nil)
	}
	return html, nil
}

var (
	dropBlockPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`),
		regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`),
		regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`),
	}
	htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
)

// CleanToText strips scripts, styles and chrome elements, drops all
// remaining tags and collapses whitespace.
func (s *collyScraper) CleanToText(rawHTML string) string {
	text := rawHTML
	for _, pattern := range dropBlockPatterns {
		text = pattern.ReplaceAllString(text, " ")
	}
	text = htmlTagPattern.ReplaceAllString(text, " ")
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}

func parseVacancyCount(text string) int {
	if m := vacancyPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 1
}
