package miner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"azubimine/internal/errors"
	"azubimine/internal/models"
	"azubimine/internal/telemetry"
)

// VerificationSweep revisits active postings not checked within the
// configured interval. A gone page marks the posting inactive; a live page is
// re-extracted and overwritten only where key fields actually changed. Either
// way the check timestamp moves forward so the posting is not revisited
// immediately.
func (m *Miner) VerificationSweep(ctx context.Context) (SweepStats, error) {
	ctx, span := m.tracer.Start(ctx, "VerificationSweep")
	defer span.End()

	var stats SweepStats

	cutoff := m.now().Add(-m.cfg.VerificationInterval)
	postings, err := m.store.NotCheckedSince(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		return stats, err
	}

	limit := m.cfg.MaxItemsPerRun
	for i := range postings {
		if limit > 0 && i >= limit {
			break
		}
		stats.Checked++
		m.verifyItem(ctx, &postings[i], &stats)
	}

	m.logger.Info("verification sweep complete",
		zap.Int("checked", stats.Checked),
		zap.Int("unchanged", stats.Unchanged),
		zap.Int("updated", stats.Updated),
		zap.Int("marked_inactive", stats.MarkedInactive),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

func (m *Miner) verifyItem(ctx context.Context, stored *models.JobPosting, stats *SweepStats) {
	ctx, span := m.tracer.Start(ctx, "VerifyItem")
	defer span.End()
	span.SetAttributes(telemetry.String("posting.url", stored.OriginalLink))

	rawHTML, err := m.scraper.FetchFullPage(ctx, stored.OriginalLink)
	if errors.IsNotFound(err) {
		if _, err := m.store.MarkInactive(ctx, []string{stored.OriginalLink}); err != nil {
			m.logger.Warn("marking gone posting inactive failed",
				zap.String("url", stored.OriginalLink),
				zap.Error(err))
			stats.Failed++
			return
		}
		if err := m.events.PublishInactive(ctx, stored.ID, stored.OriginalLink); err != nil {
			m.logger.Warn("inactive event not published",
				zap.String("id", stored.ID),
				zap.Error(err))
		}
		stats.MarkedInactive++
		return
	}
	if err != nil {
		// Transient: leave the timestamp alone so the next sweep retries.
		m.logger.Warn("verification fetch failed, will retry next sweep",
			zap.String("url", stored.OriginalLink),
			zap.Error(err))
		stats.Failed++
		return
	}

	fields := map[string]any{"last_checked_at": m.now()}

	fresh := m.extractor.Analyze(ctx, rawHTML, m.scraper.CleanToText(rawHTML), stored.OriginalLink, stored.SourcePlatform)
	if fresh != nil && !degradesStored(stored, fresh) {
		for column, value := range diffKeyFields(stored, fresh) {
			fields[column] = value
		}
	}

	if err := m.store.UpdateFields(ctx, stored.OriginalLink, fields); err != nil {
		m.logger.Warn("verification update failed",
			zap.String("url", stored.OriginalLink),
			zap.Error(err))
		stats.Failed++
		return
	}

	if len(fields) > 1 {
		stats.Updated++
	} else {
		stats.Unchanged++
	}
}

// degradesStored reports whether overwriting with the fresh extraction would
// replace full extraction data with provisional heuristic data.
func degradesStored(stored, fresh *models.JobPosting) bool {
	return stored.ExtractionMethod == models.ExtractedByLLM &&
		fresh.ExtractionMethod == models.ExtractedByHeuristic
}

// diffKeyFields compares the fields the sweep is allowed to overwrite and
// returns column/value pairs for the ones that changed. An empty map means
// the posting is unchanged.
func diffKeyFields(stored, fresh *models.JobPosting) map[string]any {
	fields := make(map[string]any)

	if fresh.Title != "" && fresh.Title != stored.Title {
		fields["title"] = fresh.Title
	}
	if fresh.CompanyName != "" && fresh.CompanyName != stored.CompanyName {
		fields["company_name"] = fresh.CompanyName
	}

	if !eqIntPtr(fresh.Salary.FirstYearSalary, stored.Salary.FirstYearSalary) {
		fields["salary_first_year_salary"] = fresh.Salary.FirstYearSalary
	}
	if !eqIntPtr(fresh.Salary.ThirdYearSalary, stored.Salary.ThirdYearSalary) {
		fields["salary_third_year_salary"] = fresh.Salary.ThirdYearSalary
	}
	if !eqIntPtr(fresh.Salary.Average, stored.Salary.Average) {
		fields["salary_average"] = fresh.Salary.Average
	}

	if !eqTimePtr(fresh.ApplicationDeadline, stored.ApplicationDeadline) {
		fields["application_deadline"] = fresh.ApplicationDeadline
	}
	if !eqIntPtr(fresh.VacancyCount, stored.VacancyCount) && fresh.VacancyCount != nil {
		fields["vacancy_count"] = fresh.VacancyCount
	}

	if fresh.GermanLevelRequirement != stored.GermanLevelRequirement {
		fields["german_level_requirement"] = fresh.GermanLevelRequirement
	}
	if fresh.EnglishLevelRequirement != stored.EnglishLevelRequirement {
		fields["english_level_requirement"] = fresh.EnglishLevelRequirement
	}
	if fresh.EducationRequired != stored.EducationRequired {
		fields["education_required"] = fresh.EducationRequired
	}

	if !eqStringSlice(fresh.TechStack, stored.TechStack) {
		fields["tech_stack"] = fresh.TechStack
	}
	if !eqStringSlice(fresh.BenefitsTags, stored.BenefitsTags) {
		fields["benefits_tags"] = fresh.BenefitsTags
	}

	return fields
}

func eqIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func eqStringSlice(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
