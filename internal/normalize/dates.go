package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	numericDatePattern = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
	textualDatePattern = regexp.MustCompile(`^(\d{1,2})\.?\s+([A-Za-zäöüÄÖÜ]+)\s+(\d{2,4})$`)
)

// German and English month names, lowercase.
var monthNames = map[string]time.Month{
	"januar": time.January, "january": time.January, "jan": time.January,
	"februar": time.February, "february": time.February, "feb": time.February,
	"märz": time.March, "maerz": time.March, "march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"mai": time.May, "may": time.May,
	"juni": time.June, "june": time.June, "jun": time.June,
	"juli": time.July, "july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September,
	"oktober": time.October, "october": time.October, "okt": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"dezember": time.December, "december": time.December, "dez": time.December, "dec": time.December,
}

// generic layouts tried last, in order.
var fallbackLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2006-01-02T15:04:05Z07:00",
	"January 2, 2006",
	"2. January 2006",
}

// NormalizeDate parses German and English date text into a calendar date.
// Recognized, in order: numeric DD.MM.YYYY, textual "D. Monat YY|YYYY"
// (two-digit years are 2000-based), then a small set of generic layouts.
// It returns nil when nothing matches; callers must treat nil as "unknown",
// never as a zero date.
func NormalizeDate(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if m := numericDatePattern.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return buildDate(year, time.Month(month), day)
	}

	if m := textualDatePattern.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, ok := monthNames[strings.ToLower(m[2])]
		if ok {
			year, _ := strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
			return buildDate(year, month, day)
		}
	}

	for _, layout := range fallbackLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			date := parsed.UTC().Truncate(24 * time.Hour)
			return &date
		}
	}

	return nil
}

func buildDate(year int, month time.Month, day int) *time.Time {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return nil
	}
	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// Reject rolled-over dates like 31.02.
	if date.Day() != day || date.Month() != month {
		return nil
	}
	return &date
}
