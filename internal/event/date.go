package event

import (
	"regexp"
	"time"
)

// spanishMonths maps the twelve Spanish 3-letter month abbreviations used
// on the news page to calendar months.
var spanishMonths = map[string]time.Month{
	"ene": time.January,
	"feb": time.February,
	"mar": time.March,
	"abr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"ago": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dic": time.December,
}

// dateFragmentRe matches fragments like "29 jul 2025" anywhere in free text.
var dateFragmentRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(ene|feb|mar|abr|may|jun|jul|ago|sep|oct|nov|dic)\s+(\d{4})\b`)

// ParseDateFragment scans free text for a "D mon YYYY" fragment in the
// source locale and returns the corresponding instant at midnight UTC.
// Text without a recognizable fragment yields ok=false; the caller must
// treat that as "date unknown", not as a failure.
func ParseDateFragment(fragment string) (time.Time, bool) {
	m := dateFragmentRe.FindStringSubmatch(fragment)
	if m == nil {
		return time.Time{}, false
	}

	day := 0
	for _, r := range m[1] {
		day = day*10 + int(r-'0')
	}
	if day < 1 || day > 31 {
		return time.Time{}, false
	}

	month, ok := spanishMonths[lowerASCII(m[2])]
	if !ok {
		return time.Time{}, false
	}

	year := 0
	for _, r := range m[3] {
		year = year*10 + int(r-'0')
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

// lowerASCII lowercases the matched month token without allocating through
// the full Unicode path; the regexp only admits ASCII letters here.
func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
