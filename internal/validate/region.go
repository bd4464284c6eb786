package validate

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// #region state-codes

var stateCodes = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true, "CT": true,
	"DE": true, "DC": true, "FL": true, "GA": true, "HI": true, "ID": true, "IL": true,
	"IN": true, "IA": true, "KS": true, "KY": true, "LA": true, "ME": true, "MD": true,
	"MA": true, "MI": true, "MN": true, "MS": true, "MO": true, "MT": true, "NE": true,
	"NV": true, "NH": true, "NJ": true, "NM": true, "NY": true, "NC": true, "ND": true,
	"OH": true, "OK": true, "OR": true, "PA": true, "RI": true, "SC": true, "SD": true,
	"TN": true, "TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true,
}

var stateNames = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"district of columbia": "DC", "florida": "FL", "georgia": "GA", "hawaii": "HI",
	"idaho": "ID", "illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI",
	"south carolina": "SC", "south dakota": "SD", "tennessee": "TN", "texas": "TX",
	"utah": "UT", "vermont": "VT", "virginia": "VA", "washington": "WA",
	"west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
}

// stateNamesByLength puts "west virginia" ahead of "virginia".
var stateNamesByLength = func() []string {
	names := make([]string, 0, len(stateNames))
	for n := range stateNames {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}()

var upperCodeRE = regexp.MustCompile(`\b[A-Z]{2}\b`)
var codeBeforeZipRE = regexp.MustCompile(`(?i)\b([a-z]{2})[\s,]+\d{5}(?:-\d{4})?\b`)

// #endregion state-codes

// #region state

// StateCode finds a US state in text. Uppercase two-letter codes win (the
// last one, since addresses end with the state), then a code written before a
// ZIP, then a spelled-out state name.
func StateCode(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	codes := upperCodeRE.FindAllString(text, -1)
	for i := len(codes) - 1; i >= 0; i-- {
		if stateCodes[codes[i]] {
			return codes[i], true
		}
	}
	for _, m := range codeBeforeZipRE.FindAllStringSubmatch(text, -1) {
		if c := strings.ToUpper(m[1]); stateCodes[c] {
			return c, true
		}
	}

	padded := " " + strings.Join(tokens(text), " ") + " "
	type span struct{ start, end int }
	var taken []span
	best, bestAt := "", -1
	for _, name := range stateNamesByLength {
		at := strings.LastIndex(padded, " "+name+" ")
		if at < 0 {
			continue
		}
		end := at + len(name) + 1
		covered := false
		for _, s := range taken {
			if at >= s.start && end <= s.end {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		taken = append(taken, span{at, end})
		if at > bestAt {
			best, bestAt = stateNames[name], at
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// ValidStateCode reports whether code is a two-letter US state code.
func ValidStateCode(code string) bool {
	return stateCodes[strings.ToUpper(strings.TrimSpace(code))]
}

// #endregion state

// StateName returns the display name for a state code ("TX" -> "Texas"),
// or the code itself when unknown.
func StateName(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	for name, c := range stateNames {
		if c == code {
			return strings.ReplaceAll(cases.Title(language.English).String(name), " Of ", " of ")
		}
	}
	return code
}
