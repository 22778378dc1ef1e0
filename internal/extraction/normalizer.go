package extraction

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"azubimine/internal/errors"
	"azubimine/internal/mapping"
	"azubimine/internal/models"
	"azubimine/internal/normalize"
	"azubimine/internal/salary"
)

const defaultDurationMonths = 36

// Trigger phrases that force visa_sponsorship to true even when the
// extractor's boolean flag missed it. Applicants treat this field as
// critical, so the OR-combination trades false positives for fewer false
// negatives.
var visaTriggerPhrases = []string{
	"visa sponsorship",
	"visum",
	"work permit",
	"arbeitserlaubnis",
	"relocation support",
	"internationale bewerber",
	"international applicants",
}

// ReplyNormalizer converts the extraction service's raw JSON reply into the
// canonical posting shape, running the field mappers, the benefit/tech
// normalizers, the date parser and the fast salary resolver in sequence.
type ReplyNormalizer struct {
	resolver *salary.Resolver
	logger   *zap.Logger
}

func NewReplyNormalizer(resolver *salary.Resolver, logger *zap.Logger) *ReplyNormalizer {
	return &ReplyNormalizer{
		resolver: resolver,
		logger:   logger,
	}
}

// Normalize validates and coerces one raw reply. A missing title, company or
// location list rejects the whole reply (nil result), never a partial record.
// Unparsable JSON is a structural extraction failure for the item.
func (n *ReplyNormalizer) Normalize(rawReply, sourceURL, sourcePlatform string) (*models.JobPosting, error) {
	payload := stripCodeFence(rawReply)

	var reply models.ExtractionReply
	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		return nil, errors.Extraction("unparsable extraction reply", err)
	}

	title := deref(reply.Title)
	company := deref(reply.CompanyName)
	locations := coerceLocations(reply.Locations)
	if title == "" || company == "" || len(locations) == 0 {
		n.logger.Debug("extraction reply rejected: required field missing",
			zap.String("url", sourceURL),
			zap.Bool("has_title", title != ""),
			zap.Bool("has_company", company != ""),
			zap.Int("locations", len(locations)))
		return nil, errors.Extraction("reply missing title, company or locations", nil)
	}

	snippet := deref(reply.DescriptionSnippet)
	tariff := mapping.MapTariffType(deref(reply.TariffType))

	resolution := n.resolver.ResolveFast(salary.Input{
		ScrapedFirstYear: replySalaryFirst(reply.Salary),
		ScrapedThirdYear: replySalaryThird(reply.Salary),
		TariffType:       tariff,
		CompanyName:      company,
		SourceURL:        sourceURL,
	})

	duration := defaultDurationMonths
	if reply.DurationMonths != nil && *reply.DurationMonths > 0 {
		duration = *reply.DurationMonths
	}

	now := time.Now().UTC()
	posting := &models.JobPosting{
		ID:             models.PostingID(sourceURL),
		OriginalLink:   sourceURL,
		SourcePlatform: sourcePlatform,

		Title:       title,
		CompanyName: company,
		Locations:   datatypes.NewJSONSlice(locations),

		StartDate:           normalize.NormalizeDate(deref(reply.StartDate)),
		DurationMonths:      duration,
		ApplicationDeadline: normalize.NormalizeDate(deref(reply.ApplicationDeadline)),
		PostedAt:            now,

		GermanLevelRequirement:  mapping.MapLanguageLevel(deref(reply.GermanLevel)),
		EnglishLevelRequirement: mapping.MapLanguageLevel(deref(reply.EnglishLevel)),
		EducationRequired:       mapping.MapEducationLevel(deref(reply.EducationRequired)),
		TechStack:               datatypes.NewJSONSlice(normalize.NormalizeTechStack(reply.TechStack)),
		DrivingLicenseRequired:  derefBool(reply.DrivingLicense),

		Salary:     resolution.Salary(),
		TariffType: tariff,

		VisaSponsorship: derefBool(reply.VisaSponsorship) || containsVisaTrigger(snippet),
		Relocation:      coerceRelocation(reply.Relocation),

		Benefits:           datatypes.NewJSONSlice(cleanBenefits(reply.Benefits)),
		BenefitsTags:       datatypes.NewJSONSlice(normalize.NormalizeBenefits(reply.Benefits)),
		DescriptionSnippet: snippet,

		Contact: coerceContact(reply.Contact),

		VacancyCount:     reply.AvailablePositions,
		IsActive:         true,
		ExtractionMethod: models.ExtractedByLLM,
	}

	return posting, nil
}

// stripCodeFence removes a markdown fence (```json ... ```) the service
// sometimes wraps around its reply.
func stripCodeFence(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func containsVisaTrigger(snippet string) bool {
	lowered := strings.ToLower(snippet)
	for _, phrase := range visaTriggerPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

func coerceLocations(raw []models.ReplyLocation) []models.Location {
	locations := make([]models.Location, 0, len(raw))
	for _, loc := range raw {
		city := strings.TrimSpace(deref(loc.City))
		if city == "" {
			continue
		}
		locations = append(locations, models.Location{
			City:    city,
			ZipCode: deref(loc.ZipCode),
			Address: deref(loc.Address),
			State:   deref(loc.State),
		})
	}
	return locations
}

func coerceRelocation(raw *models.ReplyRelocation) models.RelocationSupport {
	if raw == nil {
		return models.RelocationSupport{}
	}
	return models.RelocationSupport{
		Offered:           derefBool(raw.Offered),
		RentSubsidy:       raw.RentSubsidy,
		FreeAccommodation: raw.FreeAccommodation,
		MovingCostCovered: raw.MovingCostCovered,
		TemporaryHousing:  raw.TemporaryHousing,
		RelocationBonus:   raw.RelocationBonus,
		Details:           deref(raw.Details),
	}
}

func coerceContact(raw *models.ReplyContact) models.Contact {
	if raw == nil {
		return models.Contact{}
	}
	return models.Contact{
		Name:  deref(raw.Name),
		Email: deref(raw.Email),
		Phone: deref(raw.Phone),
		Role:  deref(raw.Role),
	}
}

func cleanBenefits(raw []string) []string {
	benefits := make([]string, 0, len(raw))
	for _, b := range raw {
		b = strings.TrimSpace(b)
		if b != "" {
			benefits = append(benefits, b)
		}
	}
	return benefits
}

func replySalaryFirst(s *models.ReplySalary) *int {
	if s == nil {
		return nil
	}
	return s.FirstYearSalary
}

func replySalaryThird(s *models.ReplySalary) *int {
	if s == nil {
		return nil
	}
	return s.ThirdYearSalary
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func derefBool(b *bool) bool {
	return b != nil && *b
}
