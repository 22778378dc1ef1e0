// Package normalize holds the deterministic post-processing that runs on
// every extraction reply: benefit tagging, tech-stack cleanup and date
// parsing. All of it is pure; the same input always yields the same output.
package normalize

import (
	"sort"
	"strings"
)

// Benefit tags form a fixed vocabulary. Raw phrases that match nothing are
// dropped rather than promoted to new tags, so the tag set never grows at
// runtime.
const (
	TagVacation30       = "VACATION_30"
	TagHomeOffice       = "HOME_OFFICE"
	TagVacationBonus    = "VACATION_BONUS"
	TagChristmasBonus   = "CHRISTMAS_BONUS"
	TagThirteenthSalary = "THIRTEENTH_SALARY"
	TagJobTicket        = "JOB_TICKET"
	TagGym              = "GYM"
	TagCanteen          = "CANTEEN"
	TagTakeover         = "TAKEOVER_GUARANTEE"
	TagTravelAllowance  = "TRAVEL_ALLOWANCE"
	TagWorkEquipment    = "WORK_EQUIPMENT"
	TagHousing          = "HOUSING"
	TagBonus            = "BONUS"
	TagPension          = "PENSION"
	TagFlexibleHours    = "FLEXIBLE_HOURS"
	TagTrainingBudget   = "TRAINING_BUDGET"
	TagEmployeeDiscount = "EMPLOYEE_DISCOUNT"
)

type benefitRule struct {
	key string
	tag string
}

// Ordered: first match wins per phrase. Keys are lowercase; matching is
// bidirectional substring containment, so "urlaub 30 tage" still hits the
// "30 tage urlaub" key via the reverse direction on short phrases.
var benefitRules = []benefitRule{
	{"30 tage urlaub", TagVacation30},
	{"30 urlaubstage", TagVacation30},
	{"30 tage", TagVacation30},
	{"home office", TagHomeOffice},
	{"homeoffice", TagHomeOffice},
	{"mobiles arbeiten", TagHomeOffice},
	{"remote", TagHomeOffice},
	{"urlaubsgeld", TagVacationBonus},
	{"weihnachtsgeld", TagChristmasBonus},
	{"13. gehalt", TagThirteenthSalary},
	{"13. monatsgehalt", TagThirteenthSalary},
	{"deutschlandticket", TagJobTicket},
	{"jobticket", TagJobTicket},
	{"fahrkarte", TagJobTicket},
	{"fitnessstudio", TagGym},
	{"fitness", TagGym},
	{"gym", TagGym},
	{"kantine", TagCanteen},
	{"mensa", TagCanteen},
	{"essenszuschuss", TagCanteen},
	{"übernahmegarantie", TagTakeover},
	{"übernahme", TagTakeover},
	{"fahrtkostenzuschuss", TagTravelAllowance},
	{"fahrtkosten", TagTravelAllowance},
	{"laptop", TagWorkEquipment},
	{"notebook", TagWorkEquipment},
	{"tablet", TagWorkEquipment},
	{"diensthandy", TagWorkEquipment},
	{"wohnheim", TagHousing},
	{"unterkunft", TagHousing},
	{"wohnung", TagHousing},
	{"betriebliche altersvorsorge", TagPension},
	{"altersvorsorge", TagPension},
	{"prämie", TagBonus},
	{"bonus", TagBonus},
	{"gleitzeit", TagFlexibleHours},
	{"flexible arbeitszeit", TagFlexibleHours},
	{"weiterbildung", TagTrainingBudget},
	{"schulungen", TagTrainingBudget},
	{"mitarbeiterrabatt", TagEmployeeDiscount},
	{"personalrabatt", TagEmployeeDiscount},
	{"corporate benefits", TagEmployeeDiscount},
}

// NormalizeBenefits maps raw benefit phrases onto the fixed tag vocabulary.
// Output is a sorted, deduplicated tag list; input order is irrelevant.
// Unmatched phrases are dropped. An empty input yields an empty result.
func NormalizeBenefits(raw []string) []string {
	seen := make(map[string]bool)
	for _, phrase := range raw {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		if tag, ok := matchBenefit(phrase); ok {
			seen[tag] = true
		}
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func matchBenefit(phrase string) (string, bool) {
	for _, rule := range benefitRules {
		if strings.Contains(phrase, rule.key) || strings.Contains(rule.key, phrase) {
			return rule.tag, true
		}
	}
	return "", false
}
