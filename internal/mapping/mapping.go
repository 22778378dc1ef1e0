// Package mapping turns the free-text attribute snippets returned by the
// extraction service into closed enum values. Mappers are total: they never
// fail and always return a defined value, falling back to a conservative
// default when nothing matches.
package mapping

import (
	"strings"

	"azubimine/internal/models"
)

// sentinels the extraction service uses (or leaks) for "no information".
var absentValues = map[string]bool{
	"":              true,
	"null":          true,
	"none":          true,
	"nil":           true,
	"n/a":           true,
	"unknown":       true,
	"not mentioned": true,
	"not specified": true,
	"nicht erwähnt": true,
	"keine angabe":  true,
}

func isAbsent(text string) bool {
	return absentValues[text]
}

type languageRule struct {
	keywords []string
	level    models.LanguageLevel
}

// Ordered most-specific first: "c2" and "muttersprache" must win before the
// broader fluency words underneath them are tried.
var languageRules = []languageRule{
	{[]string{"muttersprache", "native", "c2"}, models.LevelNative},
	{[]string{"verhandlungssicher", "fließend", "fliessend", "fluent", "c1"}, models.LevelC1},
	{[]string{"sehr gut", "very good", "b2"}, models.LevelB2},
	{[]string{"gute kenntnisse", "gut", "good", "b1"}, models.LevelB1},
	{[]string{"grundkenntnisse", "basic", "a2"}, models.LevelA2},
	{[]string{"anfänger", "beginner", "a1"}, models.LevelA1},
	{[]string{"keine", "nicht erforderlich", "not required"}, models.LevelNone},
}

// MapLanguageLevel maps a free-text language requirement onto the closed
// level enum. Absent or unmatched input yields NONE.
func MapLanguageLevel(text string) models.LanguageLevel {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if isAbsent(normalized) {
		return models.LevelNone
	}
	for _, rule := range languageRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(normalized, keyword) {
				return rule.level
			}
		}
	}
	return models.LevelNone
}

type educationRule struct {
	keywords []string
	level    models.EducationLevel
}

// "fachabitur" has to be tried before "abitur" matches inside it.
var educationRules = []educationRule{
	{[]string{"fachabitur", "fachhochschulreife"}, models.EducationFachabitur},
	{[]string{"abitur", "hochschulreife", "gymnasium"}, models.EducationAbitur},
	{[]string{"realschul", "mittlere reife", "mittlerer schulabschluss"}, models.EducationRealschule},
	{[]string{"hauptschul", "berufsreife", "erster schulabschluss"}, models.EducationHauptschule},
	{[]string{"kein abschluss", "ohne abschluss", "kein schulabschluss"}, models.EducationNone},
}

// MapEducationLevel maps a free-text school requirement onto the closed
// education enum. Absent or unmatched input yields REALSCHULE, the most
// common requirement for apprenticeships.
func MapEducationLevel(text string) models.EducationLevel {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if isAbsent(normalized) {
		return models.EducationRealschule
	}
	for _, rule := range educationRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(normalized, keyword) {
				return rule.level
			}
		}
	}
	return models.EducationRealschule
}

type tariffRule struct {
	keywords []string
	tariff   models.TariffType
}

// "gesamtmetall" before the bare "metall" of IG Metall; "ig bau" before the
// generic "tarif" catch-all at the bottom.
var tariffRules = []tariffRule{
	{[]string{"gesamtmetall"}, models.TariffGesamtmetall},
	{[]string{"ig metall", "ig-metall", "metall- und elektro", "metall"}, models.TariffIGMetall},
	{[]string{"ver.di", "verdi"}, models.TariffVerdi},
	{[]string{"ig bce", "bce", "chemie"}, models.TariffIGBCE},
	{[]string{"tvaöd", "tvöd", "öffentlicher dienst", "öffentlichen dienst"}, models.TariffTVAoeD},
	{[]string{"ig bau", "bauhauptgewerbe", "baugewerbe"}, models.TariffIGBau},
	{[]string{"dehoga", "gastgewerbe", "hotel- und gaststätten"}, models.TariffDehoga},
	{[]string{"handwerk"}, models.TariffHandwerk},
	{[]string{"tarifvertrag", "tariflich", "tarif"}, models.TariffOther},
}

// MapTariffType maps a free-text collective-agreement mention onto the
// closed tariff enum. Absent or unmatched input yields NONE.
func MapTariffType(text string) models.TariffType {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if isAbsent(normalized) {
		return models.TariffNone
	}
	for _, rule := range tariffRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(normalized, keyword) {
				return rule.tariff
			}
		}
	}
	return models.TariffNone
}
