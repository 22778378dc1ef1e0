package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LanguageLevel is a CEFR-style requirement level. Levels are totally
// ordered; a user satisfies a requirement when Rank(requirement) <= Rank(user).
type LanguageLevel string

const (
	LevelNone   LanguageLevel = "NONE"
	LevelA1     LanguageLevel = "A1"
	LevelA2     LanguageLevel = "A2"
	LevelB1     LanguageLevel = "B1"
	LevelB2     LanguageLevel = "B2"
	LevelC1     LanguageLevel = "C1"
	LevelC2     LanguageLevel = "C2"
	LevelNative LanguageLevel = "NATIVE"
)

var levelRanks = map[LanguageLevel]int{
	LevelNone:   0,
	LevelA1:     1,
	LevelA2:     2,
	LevelB1:     3,
	LevelB2:     4,
	LevelC1:     5,
	LevelC2:     6,
	LevelNative: 7,
}

// Rank returns the position of the level in the total order. Unknown values
// rank as NONE.
func (l LanguageLevel) Rank() int {
	return levelRanks[l]
}

// Satisfies reports whether a user at level l meets the given requirement.
func (l LanguageLevel) Satisfies(requirement LanguageLevel) bool {
	return requirement.Rank() <= l.Rank()
}

// EducationLevel is the German school qualification a posting requires.
type EducationLevel string

const (
	EducationNone        EducationLevel = "NONE"
	EducationHauptschule EducationLevel = "HAUPTSCHULE"
	EducationRealschule  EducationLevel = "REALSCHULE"
	EducationAbitur      EducationLevel = "ABITUR"
	EducationFachabitur  EducationLevel = "FACHABITUR"
)

// TariffType names the collective-bargaining agreement a posting pays under.
type TariffType string

const (
	TariffNone         TariffType = "NONE"
	TariffIGMetall     TariffType = "IG_METALL"
	TariffVerdi        TariffType = "VERDI"
	TariffIGBCE        TariffType = "IG_BCE"
	TariffGesamtmetall TariffType = "GESAMTMETALL"
	TariffTVAoeD       TariffType = "TVAOED"
	TariffHandwerk     TariffType = "HANDWERK"
	TariffDehoga       TariffType = "DEHOGA"
	TariffIGBau        TariffType = "IG_BAU"
	TariffOther        TariffType = "OTHER"
)

// ExtractionMethod flags how a posting's fields were obtained. Heuristic
// records are provisional, low-confidence data.
const (
	ExtractedByLLM       = "llm"
	ExtractedByHeuristic = "heuristic"
)

type Location struct {
	City    string `json:"city"`
	ZipCode string `json:"zip_code,omitempty"`
	Address string `json:"address,omitempty"`
	State   string `json:"state,omitempty"`
}

// Salary is the resolved monthly apprenticeship pay in EUR. Figures are only
// ever set by the salary resolver; Average is the resolver's declared mean
// for the winning source, never computed independently.
type Salary struct {
	FirstYearSalary *int   `json:"first_year_salary,omitempty"`
	ThirdYearSalary *int   `json:"third_year_salary,omitempty"`
	Average         *int   `json:"average,omitempty"`
	Currency        string `json:"currency"`
}

type RelocationSupport struct {
	Offered           bool   `json:"offered"`
	RentSubsidy       *bool  `json:"rent_subsidy,omitempty"`
	FreeAccommodation *bool  `json:"free_accommodation,omitempty"`
	MovingCostCovered *bool  `json:"moving_cost_covered,omitempty"`
	TemporaryHousing  *bool  `json:"temporary_housing,omitempty"`
	RelocationBonus   *bool  `json:"relocation_bonus,omitempty"`
	Details           string `json:"details,omitempty"`
}

type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

// JobPosting is the canonical persisted record. OriginalLink is the natural
// key: a posting is created once on first extraction and only ever updated
// afterwards, never recreated and never hard-deleted. IsActive is the only
// soft-delete marker.
type JobPosting struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	OriginalLink   string `gorm:"uniqueIndex;not null" json:"original_link"`
	SourcePlatform string `json:"source_platform"`

	Title       string                        `gorm:"not null" json:"title"`
	CompanyName string                        `gorm:"not null" json:"company_name"`
	Locations   datatypes.JSONSlice[Location] `json:"locations"`

	StartDate           *time.Time `json:"start_date,omitempty"`
	DurationMonths      int        `json:"duration_months"`
	ApplicationDeadline *time.Time `json:"application_deadline,omitempty"`
	PostedAt            time.Time  `json:"posted_at"`
	LastCheckedAt       *time.Time `json:"last_checked_at,omitempty"`

	GermanLevelRequirement  LanguageLevel               `json:"german_level_requirement"`
	EnglishLevelRequirement LanguageLevel               `json:"english_level_requirement"`
	EducationRequired       EducationLevel              `json:"education_required"`
	TechStack               datatypes.JSONSlice[string] `json:"tech_stack"`
	DrivingLicenseRequired  bool                        `json:"driving_license_required"`

	Salary     Salary     `gorm:"embedded;embeddedPrefix:salary_" json:"salary"`
	TariffType TariffType `json:"tariff_type"`

	VisaSponsorship bool              `json:"visa_sponsorship"`
	Relocation      RelocationSupport `gorm:"embedded;embeddedPrefix:relocation_" json:"relocation_support"`

	Benefits            datatypes.JSONSlice[string] `json:"benefits"`
	BenefitsTags        datatypes.JSONSlice[string] `json:"benefits_tags"`
	BenefitsVerified    bool                        `json:"benefits_verified"`
	BenefitsLastUpdated *time.Time                  `json:"benefits_last_updated,omitempty"`
	DescriptionFull     string                      `gorm:"type:text" json:"description_full,omitempty"`
	DescriptionSnippet  string                      `gorm:"type:text" json:"description_snippet,omitempty"`

	Contact Contact `gorm:"embedded;embeddedPrefix:contact_" json:"contact_person"`

	VacancyCount     *int   `json:"vacancy_count,omitempty"`
	IsActive         bool   `gorm:"default:true" json:"is_active"`
	ExtractionMethod string `json:"extraction_method"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var postingNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// PostingID derives a stable UUID from the source URL so re-discovering the
// same posting never mints a second identity.
func PostingID(originalLink string) string {
	return uuid.NewSHA1(postingNamespace, []byte(originalLink)).String()
}

// Listing is one entry of a source's search-results page: the lightweight
// view the discovery phase works from, before any detail page is fetched.
type Listing struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	Company      string `json:"company"`
	VacancyCount int    `json:"vacancy_count"`
}
