package validate

import (
	"regexp"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
)

// #region tables

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5, "sixth": 6,
	"seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10, "eleventh": 11,
	"twelfth": 12, "thirteenth": 13, "fourteenth": 14, "fifteenth": 15,
	"sixteenth": 16, "seventeenth": 17, "eighteenth": 18, "nineteenth": 19,
	"twentieth": 20, "thirtieth": 30,
}

var numericDateRE = regexp.MustCompile(`\b\d{1,4}[/\-.]\d{1,2}[/\-.]\d{1,4}\b`)
var ordinalSuffixRE = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?$`)

const isoDate = "2006-01-02"

// #endregion tables

// #region date

// Date parses an incident date and returns it as YYYY-MM-DD. now anchors
// "today"/"yesterday" and dates spoken without a year.
func Date(text string, now time.Time) (string, bool) {
	toks := tokens(text)
	if len(toks) == 0 {
		return "", false
	}
	switch {
	case hasPhrase(toks, "day before yesterday"):
		return now.AddDate(0, 0, -2).Format(isoDate), true
	case hasPhrase(toks, "yesterday"), hasPhrase(toks, "last night"):
		return now.AddDate(0, 0, -1).Format(isoDate), true
	case hasPhrase(toks, "today"), hasPhrase(toks, "this morning"), hasPhrase(toks, "tonight"):
		return now.Format(isoDate), true
	}

	if m := numericDateRE.FindString(normalize(text)); m != "" {
		if t, err := dateparse.ParseIn(m, time.UTC); err == nil {
			return t.Format(isoDate), true
		}
	}
	return monthDate(toks, now)
}

// monthDate handles "March 5th 2024", "the 5th of March", "march fifth".
func monthDate(toks []string, now time.Time) (string, bool) {
	for i, tok := range toks {
		month, ok := months[tok]
		if !ok {
			continue
		}
		day := dayAt(toks, i+1)
		if day == 0 && i > 0 {
			j := i - 1
			if toks[j] == "of" && j > 0 {
				j--
			}
			day = dayAt(toks, j)
		}
		if day == 0 {
			continue
		}

		year := 0
		for _, t := range toks[i+1:] {
			if len(t) == 4 && isDigits(t) {
				year, _ = strconv.Atoi(t)
				break
			}
		}
		if year == 0 {
			year = now.Year()
			if time.Date(year, month, day, 0, 0, 0, 0, time.UTC).After(now) {
				year--
			}
		}

		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if d.Month() != month || d.Day() != day {
			continue
		}
		return d.Format(isoDate), true
	}
	return "", false
}

// dayAt reads a day of month at toks[i], skipping a leading "the".
func dayAt(toks []string, i int) int {
	if i < len(toks) && toks[i] == "the" {
		i++
	}
	if i >= len(toks) {
		return 0
	}
	if m := ordinalSuffixRE.FindStringSubmatch(toks[i]); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n >= 1 && n <= 31 {
			return n
		}
		return 0
	}
	switch toks[i] {
	case "twenty", "thirty":
		base := 20
		if toks[i] == "thirty" {
			base = 30
		}
		if i+1 < len(toks) {
			if n, ok := ordinalWords[toks[i+1]]; ok && n < 10 {
				return base + n
			}
		}
		return 0
	}
	return ordinalWords[toks[i]]
}

// #endregion date
