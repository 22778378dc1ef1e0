package mapping

import (
	"testing"

	"azubimine/internal/models"
)

func TestMapLanguageLevel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want models.LanguageLevel
	}{
		{"empty", "", models.LevelNone},
		{"literal null", "null", models.LevelNone},
		{"literal none", "none", models.LevelNone},
		{"not mentioned", "not mentioned", models.LevelNone},
		{"german sentinel", "keine Angabe", models.LevelNone},
		{"plain level", "B2", models.LevelB2},
		{"level in sentence", "Deutschkenntnisse auf B1-Niveau erforderlich", models.LevelB1},
		{"native german", "Deutsch als Muttersprache", models.LevelNative},
		{"c2 beats fluent", "C2 oder fließend", models.LevelNative},
		{"fluent", "fließend in Wort und Schrift", models.LevelC1},
		{"negotiation safe", "verhandlungssicher", models.LevelC1},
		{"very good", "sehr gute Deutschkenntnisse", models.LevelB2},
		{"good", "gute Englischkenntnisse", models.LevelB1},
		{"basic", "Grundkenntnisse ausreichend", models.LevelA2},
		{"not required", "Englisch nicht erforderlich", models.LevelNone},
		{"garbage", "lorem ipsum", models.LevelNone},
		{"mixed case", "b2 NIVEAU", models.LevelB2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapLanguageLevel(tt.in); got != tt.want {
				t.Errorf("MapLanguageLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMapEducationLevel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want models.EducationLevel
	}{
		{"empty defaults", "", models.EducationRealschule},
		{"null defaults", "null", models.EducationRealschule},
		{"not mentioned defaults", "not mentioned", models.EducationRealschule},
		{"fachabitur before abitur", "Fachabitur oder vergleichbar", models.EducationFachabitur},
		{"fachhochschulreife", "Fachhochschulreife", models.EducationFachabitur},
		{"abitur", "Abitur erforderlich", models.EducationAbitur},
		{"hochschulreife", "allgemeine Hochschulreife", models.EducationAbitur},
		{"mittlere reife", "mindestens mittlere Reife", models.EducationRealschule},
		{"realschulabschluss", "guter Realschulabschluss", models.EducationRealschule},
		{"hauptschulabschluss", "Hauptschulabschluss genügt", models.EducationHauptschule},
		{"no qualification needed", "kein Abschluss erforderlich", models.EducationNone},
		{"garbage defaults", "xyz", models.EducationRealschule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapEducationLevel(tt.in); got != tt.want {
				t.Errorf("MapEducationLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMapTariffType(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want models.TariffType
	}{
		{"empty", "", models.TariffNone},
		{"null", "null", models.TariffNone},
		{"none", "none", models.TariffNone},
		{"ig metall", "IG Metall", models.TariffIGMetall},
		{"metall elektro", "Tarifvertrag der Metall- und Elektroindustrie", models.TariffIGMetall},
		{"gesamtmetall before metall", "Gesamtmetall", models.TariffGesamtmetall},
		{"verdi", "nach ver.di Tarif", models.TariffVerdi},
		{"chemie", "Chemietarifvertrag", models.TariffIGBCE},
		{"public service", "TVöD", models.TariffTVAoeD},
		{"public service long", "Tarifvertrag für den öffentlichen Dienst", models.TariffTVAoeD},
		{"ig bau", "IG BAU", models.TariffIGBau},
		{"dehoga", "DEHOGA-Tarif", models.TariffDehoga},
		{"handwerk", "Handwerkstarif", models.TariffHandwerk},
		{"generic tariff mention", "tarifliche Vergütung", models.TariffOther},
		{"garbage", "asdf", models.TariffNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapTariffType(tt.in); got != tt.want {
				t.Errorf("MapTariffType(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
