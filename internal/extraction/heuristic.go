package extraction

import (
	"html"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"azubimine/internal/mapping"
	"azubimine/internal/models"
)

var (
	titleTagPattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	ogTitlePattern  = regexp.MustCompile(`(?i)<meta[^>]+property=["']og:title["'][^>]+content=["']([^"']+)["']`)
	h1Pattern       = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	tagPattern      = regexp.MustCompile(`<[^>]+>`)

	// "Ausbildung zum Mechatroniker (m/w/d) bei Siemens" and the common
	// "Role - Company" / "Role | Company" separators.
	companyAfterBei = regexp.MustCompile(`(?i)\b(?:bei|at)\s+([^|–\-,]+)$`)
	titleSeparator  = regexp.MustCompile(`^(.+?)\s+[|–\-]\s+(.+)$`)

	// "in 80331 München" or "in München".
	locationPattern = regexp.MustCompile(`\bin\s+(?:(\d{5})\s+)?([A-ZÄÖÜ][a-zäöüß]+(?:[ -][A-ZÄÖÜ][a-zäöüß]+)?)`)

	genderSuffix = regexp.MustCompile(`\s*\((?:m/w/d|w/m/d|m/w/x|gn)\)\s*`)
)

// HeuristicParser is the degraded fallback when no extraction service is
// available or every key is exhausted. It pulls title, company and location
// out of the raw HTML with naive patterns; its records are flagged as
// heuristic so consumers can treat them as provisional.
type HeuristicParser struct {
	logger *zap.Logger
}

func NewHeuristicParser(logger *zap.Logger) *HeuristicParser {
	return &HeuristicParser{logger: logger}
}

// Parse extracts a minimal posting from raw HTML. It returns nil when it
// cannot find both a title and a company; a record without those is not
// worth keeping even as provisional data.
func (p *HeuristicParser) Parse(rawHTML, sourceURL, sourcePlatform string) *models.JobPosting {
	title := p.extractTitle(rawHTML)
	if title == "" {
		p.logger.Debug("heuristic parse found no title", zap.String("url", sourceURL))
		return nil
	}

	title, company := splitTitleCompany(title)
	if company == "" {
		p.logger.Debug("heuristic parse found no company", zap.String("url", sourceURL))
		return nil
	}

	now := time.Now().UTC()
	posting := &models.JobPosting{
		ID:             models.PostingID(sourceURL),
		OriginalLink:   sourceURL,
		SourcePlatform: sourcePlatform,

		Title:       title,
		CompanyName: company,
		Locations:   datatypes.NewJSONSlice(extractLocations(rawHTML)),

		DurationMonths: defaultDurationMonths,
		PostedAt:       now,

		GermanLevelRequirement:  mapping.MapLanguageLevel(""),
		EnglishLevelRequirement: mapping.MapLanguageLevel(""),
		EducationRequired:       mapping.MapEducationLevel(""),
		TechStack:               datatypes.NewJSONSlice([]string{}),

		Salary:     models.Salary{Currency: "EUR"},
		TariffType: models.TariffNone,

		Benefits:     datatypes.NewJSONSlice([]string{}),
		BenefitsTags: datatypes.NewJSONSlice([]string{}),

		IsActive:         true,
		ExtractionMethod: models.ExtractedByHeuristic,
	}

	return posting
}

// extractTitle tries og:title first (usually the cleanest), then <h1>, then
// the <title> tag.
func (p *HeuristicParser) extractTitle(rawHTML string) string {
	for _, pattern := range []*regexp.Regexp{ogTitlePattern, h1Pattern, titleTagPattern} {
		if m := pattern.FindStringSubmatch(rawHTML); m != nil {
			title := cleanFragment(m[1])
			if title != "" {
				return title
			}
		}
	}
	return ""
}

// splitTitleCompany pulls the employer out of a combined title line. It
// understands "… bei Company", "… at Company" and the separator forms
// "Role - Company" / "Role | Company".
func splitTitleCompany(combined string) (title, company string) {
	combined = genderSuffix.ReplaceAllString(combined, " ")
	combined = strings.TrimSpace(combined)

	if m := companyAfterBei.FindStringSubmatch(combined); m != nil {
		company = strings.TrimSpace(m[1])
		title = strings.TrimSpace(companyAfterBei.ReplaceAllString(combined, ""))
		return title, company
	}

	if m := titleSeparator.FindStringSubmatch(combined); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}

	return combined, ""
}

func extractLocations(rawHTML string) []models.Location {
	text := cleanFragment(rawHTML)
	seen := make(map[string]bool)
	var locations []models.Location
	for _, m := range locationPattern.FindAllStringSubmatch(text, 5) {
		city := strings.TrimSpace(m[2])
		if city == "" || seen[city] {
			continue
		}
		seen[city] = true
		locations = append(locations, models.Location{City: city, ZipCode: m[1]})
	}
	if locations == nil {
		locations = []models.Location{}
	}
	return locations
}

func cleanFragment(fragment string) string {
	fragment = tagPattern.ReplaceAllString(fragment, " ")
	fragment = html.UnescapeString(fragment)
	fragment = strings.Join(strings.Fields(fragment), " ")
	return strings.TrimSpace(fragment)
}
