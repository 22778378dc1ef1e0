// Package salary resolves apprenticeship pay through a strict priority
// chain: scraped figures beat company-website evidence beat the tariff
// standard, and when none of those exist the result is explicitly empty.
// The resolver never invents a number.
package salary

import "azubimine/internal/models"

// standardFirstYear is policy data: the standard first-year monthly wage in
// EUR per collective agreement. Values are maintained, not computed; treat
// this table as a versioned constant.
var standardFirstYear = map[models.TariffType]int{
	models.TariffIGMetall:     1150,
	models.TariffVerdi:        1100,
	models.TariffIGBCE:        1120,
	models.TariffGesamtmetall: 1130,
	models.TariffTVAoeD:       1068,
	models.TariffHandwerk:     900,
	models.TariffDehoga:       1000,
	models.TariffIGBau:        1080,
}

// StandardFirstYearSalary returns the standard first-year monthly wage for
// the given agreement, or nil when no standard value is defined. NONE, OTHER
// and unrecognized types have no standard value.
func StandardFirstYearSalary(tariff models.TariffType) *int {
	if wage, ok := standardFirstYear[tariff]; ok {
		return &wage
	}
	return nil
}
