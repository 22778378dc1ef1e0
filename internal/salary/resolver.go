package salary

import (
	"context"

	"go.uber.org/zap"

	"azubimine/internal/models"
)

// Source names where a resolved salary came from.
type Source string

const (
	SourceScraped        Source = "scraped"
	SourceCompanyWebsite Source = "company_website"
	SourceTariffStandard Source = "tariff_standard"
	SourceNone           Source = "none"
)

// Resolution is the resolver's full answer. Average, when set, is always the
// resolver's own mean for the winning source.
type Resolution struct {
	FirstYearSalary *int
	ThirdYearSalary *int
	Average         *int
	Source          Source
	TariffUsed      models.TariffType
}

// Salary converts the resolution into the persisted shape.
func (r Resolution) Salary() models.Salary {
	return models.Salary{
		FirstYearSalary: r.FirstYearSalary,
		ThirdYearSalary: r.ThirdYearSalary,
		Average:         r.Average,
		Currency:        "EUR",
	}
}

// CompanyEvidence is what a best-effort probe of the employer's own website
// turned up.
type CompanyEvidence struct {
	FirstYearSalary *int
	Benefits        []string
	TariffType      models.TariffType
}

// CompanySiteFetcher probes the employer's website for salary evidence.
// It may fail or time out; the resolver swallows every error.
type CompanySiteFetcher interface {
	Fetch(ctx context.Context, companyName, knownURL string) (*CompanyEvidence, error)
}

// Input carries everything the resolver may consider.
type Input struct {
	ScrapedFirstYear *int
	ScrapedThirdYear *int
	TariffType       models.TariffType
	CompanyName      string
	SourceURL        string
}

type Resolver struct {
	companySite CompanySiteFetcher
	logger      *zap.Logger
}

func NewResolver(companySite CompanySiteFetcher, logger *zap.Logger) *Resolver {
	return &Resolver{
		companySite: companySite,
		logger:      logger,
	}
}

// ResolveFast is the synchronous variant used on the hot batch path. It
// skips the company-website probe entirely and otherwise follows the same
// priority chain, so it agrees with Resolve whenever the probe would have
// found nothing.
func (r *Resolver) ResolveFast(in Input) Resolution {
	if res, done := r.resolveLocal(in); done {
		return res
	}
	return r.tariffFallback(in)
}

// Resolve runs the full priority chain including the company-website probe.
// Probe failures are treated as "not found", never propagated: resolution
// always completes with a defined Source.
func (r *Resolver) Resolve(ctx context.Context, in Input) Resolution {
	if res, done := r.resolveLocal(in); done {
		return res
	}

	if r.companySite != nil {
		evidence, err := r.companySite.Fetch(ctx, in.CompanyName, in.SourceURL)
		if err != nil {
			r.logger.Debug("company website probe failed, falling through",
				zap.String("company", in.CompanyName),
				zap.Error(err))
		} else if evidence != nil && evidence.FirstYearSalary != nil {
			return Resolution{
				FirstYearSalary: evidence.FirstYearSalary,
				ThirdYearSalary: in.ScrapedThirdYear,
				Average:         average(evidence.FirstYearSalary, in.ScrapedThirdYear),
				Source:          SourceCompanyWebsite,
				TariffUsed:      in.TariffType,
			}
		}
	}

	return r.tariffFallback(in)
}

// resolveLocal handles the two short-circuit branches shared by both
// variants: a scraped figure wins outright, and no tariff means no guessing.
func (r *Resolver) resolveLocal(in Input) (Resolution, bool) {
	if in.ScrapedFirstYear != nil {
		return Resolution{
			FirstYearSalary: in.ScrapedFirstYear,
			ThirdYearSalary: in.ScrapedThirdYear,
			Average:         average(in.ScrapedFirstYear, in.ScrapedThirdYear),
			Source:          SourceScraped,
			TariffUsed:      in.TariffType,
		}, true
	}

	if in.TariffType == "" || in.TariffType == models.TariffNone {
		return Resolution{Source: SourceNone}, true
	}

	return Resolution{}, false
}

func (r *Resolver) tariffFallback(in Input) Resolution {
	if standard := StandardFirstYearSalary(in.TariffType); standard != nil {
		return Resolution{
			FirstYearSalary: standard,
			Average:         average(standard, nil),
			Source:          SourceTariffStandard,
			TariffUsed:      in.TariffType,
		}
	}
	// Tariff recognized but no standard value defined: still no guessing.
	return Resolution{Source: SourceNone, TariffUsed: in.TariffType}
}

// average is round((first+third)/2) when both are present, first when only
// first is present, nil when neither is.
func average(first, third *int) *int {
	if first == nil {
		return nil
	}
	if third == nil {
		v := *first
		return &v
	}
	v := (*first + *third + 1) / 2
	return &v
}
