package models

// ExtractionReply is the strict schema for the extraction service's JSON
// answer. Every field is optional; absent information is null on the wire,
// never an empty string or a missing key. The reply is validated and coerced
// at the boundary, before any field mapper runs.
type ExtractionReply struct {
	Title               *string            `json:"title"`
	CompanyName         *string            `json:"company_name"`
	Locations           []ReplyLocation    `json:"locations"`
	StartDate           *string            `json:"start_date"`
	DurationMonths      *int               `json:"duration_months"`
	ApplicationDeadline *string            `json:"application_deadline"`
	AvailablePositions  *int               `json:"available_positions"`
	GermanLevel         *string            `json:"german_level_requirement"`
	EnglishLevel        *string            `json:"english_level_requirement"`
	EducationRequired   *string            `json:"education_required"`
	TechStack           []string           `json:"tech_stack"`
	DrivingLicense      *bool              `json:"driving_license_required"`
	Salary              *ReplySalary       `json:"salary"`
	TariffType          *string            `json:"tariff_type"`
	VisaSponsorship     *bool              `json:"visa_sponsorship"`
	Relocation          *ReplyRelocation   `json:"relocation_support"`
	Benefits            []string           `json:"benefits"`
	DescriptionSnippet  *string            `json:"description_snippet"`
	Contact             *ReplyContact      `json:"contact_person"`
}

type ReplyLocation struct {
	City    *string `json:"city"`
	ZipCode *string `json:"zip_code"`
	Address *string `json:"address"`
	State   *string `json:"state"`
}

type ReplySalary struct {
	FirstYearSalary *int `json:"firstYearSalary"`
	ThirdYearSalary *int `json:"thirdYearSalary"`
}

type ReplyRelocation struct {
	Offered           *bool   `json:"offered"`
	RentSubsidy       *bool   `json:"rent_subsidy"`
	FreeAccommodation *bool   `json:"free_accommodation"`
	MovingCostCovered *bool   `json:"moving_cost_covered"`
	TemporaryHousing  *bool   `json:"temporary_housing"`
	RelocationBonus   *bool   `json:"relocation_bonus"`
	Details           *string `json:"details"`
}

type ReplyContact struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	Role  *string `json:"role"`
}
