package validate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// #region funding-type

var freshWords = []string{"fresh", "new", "first time", "first", "never had"}
var extendWords = []string{
	"extend", "extension", "top up", "topup", "increase", "more",
	"existing", "additional", "another",
}

// FundingType classifies the request as "fresh" or "extend".
func FundingType(text string) (string, bool) {
	toks := tokens(text)
	for _, w := range freshWords {
		if hasPhrase(toks, w) {
			return "fresh", true
		}
	}
	for _, w := range extendWords {
		if hasPhrase(toks, w) {
			return "extend", true
		}
	}
	return "", false
}

// #endregion funding-type

// #region amount

var amountRE = regexp.MustCompile(`\$?\s*(\d[\d,]*(?:\.\d+)?)(\s*(?:k|thousand|grand|million)\b)?`)

var unitWords = map[string]int64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"thirteen": 13, "fourteen": 14, "fifteen": 15, "sixteen": 16,
	"seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20, "thirty": 30,
	"forty": 40, "fifty": 50, "sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var scaleWords = map[string]int64{
	"thousand": 1000, "grand": 1000, "million": 1000000,
}

// amountHit is one candidate amount. anchored hits carry a "$", a scale word
// or a trailing "dollars" and beat bare numbers like "3 months".
type amountHit struct {
	n        int64
	pos      int
	anchored bool
}

var dollarRE = regexp.MustCompile(`^\s*(?:dollars?|bucks)\b`)

// Amount parses "$2,000", "2k", "2.5 thousand" and "two thousand" into "$2,000".
// The first anchored candidate wins; otherwise the first digit run, then the
// number words.
func Amount(text string) (string, bool) {
	s := normalize(text)
	var hits []amountHit
	for _, m := range amountRE.FindAllStringSubmatchIndex(s, -1) {
		f, err := strconv.ParseFloat(strings.ReplaceAll(s[m[2]:m[3]], ",", ""), 64)
		if err != nil {
			continue
		}
		scaled := m[4] >= 0
		if scaled {
			switch strings.TrimSpace(s[m[4]:m[5]]) {
			case "k", "thousand", "grand":
				f *= 1000
			case "million":
				f *= 1000000
			}
		}
		n := int64(math.Round(f))
		if n <= 0 {
			continue
		}
		anchored := scaled || strings.Contains(s[m[0]:m[2]], "$") || dollarRE.MatchString(s[m[1]:])
		hits = append(hits, amountHit{n: n, pos: m[0], anchored: anchored})
	}
	spans := tokenRE.FindAllStringIndex(s, -1)
	toks := make([]string, len(spans))
	for i, sp := range spans {
		toks[i] = s[sp[0]:sp[1]]
	}
	if n, from, to, scaled := wordsToNumber(toks); n > 0 {
		anchored := scaled || dollarRE.MatchString(s[spans[to-1][1]:])
		hits = append(hits, amountHit{n: n, pos: spans[from][0], anchored: anchored})
	}
	if len(hits) == 0 {
		return "", false
	}
	best := -1
	for i, h := range hits {
		if !h.anchored {
			continue
		}
		if best < 0 || h.pos < hits[best].pos {
			best = i
		}
	}
	if best < 0 {
		best = 0
	}
	return FormatUSD(hits[best].n), true
}

// wordsToNumber evaluates the first run of English number words. from and to
// bound the run in toks; scaled reports a hundred, thousand or million in it.
func wordsToNumber(toks []string) (n int64, from, to int, scaled bool) {
	var total, cur int64
	from = -1
	for i, tok := range toks {
		if v, ok := unitWords[tok]; ok {
			if from < 0 {
				from = i
			}
			cur += v
			to = i + 1
			continue
		}
		if tok == "hundred" {
			if from < 0 {
				from = i
			}
			if cur == 0 {
				cur = 1
			}
			cur *= 100
			to, scaled = i+1, true
			continue
		}
		if scale, ok := scaleWords[tok]; ok {
			if from < 0 {
				from = i
			}
			if cur == 0 {
				cur = 1
			}
			total += cur * scale
			cur = 0
			to, scaled = i+1, true
			continue
		}
		if tok == "a" && i+1 < len(toks) {
			if _, ok := scaleWords[toks[i+1]]; ok || toks[i+1] == "hundred" {
				if from < 0 {
					from = i
				}
				continue
			}
		}
		if tok == "and" && from >= 0 {
			continue
		}
		if from >= 0 {
			break
		}
	}
	if from < 0 {
		return 0, 0, 0, false
	}
	return total + cur, from, to, scaled
}

// FormatUSD renders whole dollars with thousands separators: 2000 -> "$2,000".
func FormatUSD(n int64) string {
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	b.WriteString("$")
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// #endregion amount

// #region case-type

var caseTypes = []struct {
	value string
	words []string
}{
	{"auto accident", []string{"auto", "car", "vehicle", "truck", "motorcycle", "crash", "collision", "rear ended", "accident"}},
	{"slip and fall", []string{"slip", "slipped", "fall", "fell", "tripped", "trip"}},
	{"dog bite", []string{"dog", "bite", "bitten", "bit"}},
	{"other", []string{"other", "something else", "different"}},
}

// CaseType classifies the case as auto accident, slip and fall, dog bite or other.
func CaseType(text string) (string, bool) {
	toks := tokens(text)
	for _, ct := range caseTypes {
		for _, w := range ct.words {
			if hasPhrase(toks, w) {
				return ct.value, true
			}
		}
	}
	return "", false
}

// #endregion case-type
