package extraction

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const isoDate = "2006-01-02"

// Numeric dates keep one separator kind throughout; RE2 has no backreferences
// so each separator gets its own alternatives. The space-separated day-first
// form needs a 4-digit year, otherwise item lines like "Milk 1 2 120.00" match.
var numericDateRe = regexp.MustCompile(`\b(?:` +
	`\d{4}-\d{1,2}-\d{1,2}|\d{4}/\d{1,2}/\d{1,2}|\d{4} \d{1,2} \d{1,2}|` +
	`\d{1,2}-\d{1,2}-\d{2,4}|\d{1,2}/\d{1,2}/\d{2,4}|\d{1,2} \d{1,2} \d{4}` +
	`)\b`)

const (
	monthToken = `((?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*)\.?`
	dateGap    = `[ \t./-]*`
)

// namedDateRe matches "15th March, 2024" (groups 1-3) and "Mar 15, 2024" (groups 4-6).
var namedDateRe = regexp.MustCompile(`(?i)\b(?:` +
	`(\d{1,2})(?:st|nd|rd|th)?` + dateGap + monthToken + `,?` + dateGap + `(\d{2,4})` +
	`|` +
	monthToken + dateGap + `(\d{1,2})(?:st|nd|rd|th)?,?[ \t]*(\d{4})` +
	`)\b`)

var fullMonths = map[string]string{
	"january": "January", "february": "February", "march": "March", "april": "April",
	"may": "May", "june": "June", "july": "July", "august": "August",
	"september": "September", "october": "October", "november": "November", "december": "December",
}

// DateResolver turns a date phrase with a named month into a calendar date.
type DateResolver interface {
	ResolveDate(phrase string) (time.Time, error)
}

// DateResolverFunc adapts a function to DateResolver.
type DateResolverFunc func(phrase string) (time.Time, error)

// ResolveDate calls f.
func (f DateResolverFunc) ResolveDate(phrase string) (time.Time, error) { return f(phrase) }

// NaturalDateResolver resolves phrases like "15 March 2024" with dateparse, in UTC.
type NaturalDateResolver struct{}

// ResolveDate implements DateResolver.
func (NaturalDateResolver) ResolveDate(phrase string) (time.Time, error) {
	t, err := dateparse.ParseIn(phrase, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("resolving date %q: %w", phrase, err)
	}
	return t, nil
}

// NormalizeDate finds the first date-like substring and converts it to a calendar date.
//
// Numeric dates are read day-first when the year comes last. Month-first input
// such as 03/15/2024 cannot be told apart without locale context and comes back
// absent when the day-first reading is not a real date.
func (e *Engine) NormalizeDate(text string) Optional[time.Time] {
	numLoc := numericDateRe.FindStringIndex(text)
	namedLoc := namedDateRe.FindStringSubmatchIndex(text)

	switch {
	case numLoc == nil && namedLoc == nil:
		return None[time.Time]()
	case namedLoc == nil || (numLoc != nil && numLoc[0] <= namedLoc[0]):
		return normalizeNumericDate(text[numLoc[0]:numLoc[1]])
	default:
		return e.resolveNamedDate(text, namedLoc)
	}
}

func normalizeNumericDate(s string) Optional[time.Time] {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '/' || r == ' ' })
	if len(parts) != 3 {
		return None[time.Time]()
	}

	var year, month, day string
	switch {
	case len(parts[0]) == 4:
		year, month, day = parts[0], parts[1], parts[2]
	case len(parts[2]) == 4:
		day, month, year = parts[0], parts[1], parts[2]
	default:
		return None[time.Time]()
	}

	t, err := time.Parse(isoDate, year+"-"+pad2(month)+"-"+pad2(day))
	if err != nil {
		return None[time.Time]()
	}
	return Some(t)
}

func (e *Engine) resolveNamedDate(text string, loc []int) Optional[time.Time] {
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}

	var phrase string
	if d := group(1); d != "" {
		phrase = fmt.Sprintf("%s %s %s", d, canonicalMonth(group(2)), group(3))
	} else {
		phrase = fmt.Sprintf("%s %s, %s", canonicalMonth(group(4)), group(5), group(6))
	}

	t, err := e.dates.ResolveDate(phrase)
	if err != nil {
		return None[time.Time]()
	}
	return Some(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
}

// canonicalMonth keeps full month names and cuts anything else to a
// three-letter abbreviation ("SEPT" -> "Sep").
func canonicalMonth(word string) string {
	lower := strings.ToLower(word)
	if full, ok := fullMonths[lower]; ok {
		return full
	}
	return strings.ToUpper(lower[:1]) + lower[1:3]
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
