// Package validate normalizes raw utterance text into canonical field values.
// Every function is pure and total: bad input yields ("", false), never a panic.
package validate

import (
	"regexp"
	"strings"
	"unicode"
)

// #region tokens

var tokenRE = regexp.MustCompile(`[a-z0-9']+`)

var quoteReplacer = strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`)

func normalize(s string) string {
	return quoteReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// tokens lowercases s and splits it into word tokens; hyphens and other
// punctuation act as separators.
func tokens(s string) []string {
	return tokenRE.FindAllString(normalize(s), -1)
}

// tokenIs matches tok against a phrase word; a possessive "'s" on tok is
// ignored, so "attorney's" counts as "attorney".
func tokenIs(tok, word string) bool {
	return tok == word || strings.TrimSuffix(tok, "'s") == word
}

// hasPhrase reports whether the space-separated phrase occurs as a
// contiguous token run in toks.
func hasPhrase(toks []string, phrase string) bool {
	p := strings.Fields(phrase)
	if len(p) == 0 {
		return false
	}
	for i := 0; i+len(p) <= len(toks); i++ {
		match := true
		for j := range p {
			if !tokenIs(toks[i+j], p[j]) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// HasAny reports whether any phrase occurs in text on token boundaries.
func HasAny(text string, phrases []string) bool {
	toks := tokens(text)
	for _, p := range phrases {
		if hasPhrase(toks, p) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// collapse trims s and folds internal whitespace runs to one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// #endregion tokens

// #region free-text

// Narrative accepts a free-form description with at least two words.
func Narrative(text string) (string, bool) {
	s := strings.Trim(collapse(quoteReplacer.Replace(text)), " .,")
	words := 0
	for _, w := range strings.Fields(s) {
		if hasLetter(w) {
			words++
		}
	}
	if words < 2 {
		return "", false
	}
	return s, true
}

// Address accepts a street address: a number plus at least one word.
func Address(text string) (string, bool) {
	s := strings.Trim(collapse(quoteReplacer.Replace(text)), " .,")
	if !hasDigit(s) {
		return "", false
	}
	words := 0
	for _, w := range strings.Fields(s) {
		if hasLetter(w) {
			words++
		}
	}
	if words < 1 || len(strings.Fields(s)) < 2 {
		return "", false
	}
	return s, true
}

var skipPhrases = []string{
	"skip", "no address", "prefer not", "rather not", "not now", "pass",
}

// Skip reports whether the caller declined to answer.
func Skip(text string) bool {
	s := normalize(text)
	if strings.HasPrefix(s, "skip") {
		return true
	}
	return HasAny(s, skipPhrases)
}

// #endregion free-text

// #region spelling

// SpellName renders a name letter by letter: "Joe Smith" -> "J O E  S M I T H".
func SpellName(name string) string {
	parts := strings.Fields(name)
	spelled := make([]string, 0, len(parts))
	for _, p := range parts {
		var letters []string
		for _, r := range strings.ToUpper(p) {
			if unicode.IsLetter(r) {
				letters = append(letters, string(r))
			}
		}
		if len(letters) > 0 {
			spelled = append(spelled, strings.Join(letters, " "))
		}
	}
	return strings.Join(spelled, "  ")
}

// SpellEmail verbalizes an address: "a.b@c.com" -> "a dot b at c dot com".
func SpellEmail(email string) string {
	return strings.NewReplacer("@", " at ", ".", " dot ").Replace(email)
}

var spellGroupRE = regexp.MustCompile(`\s{2,}|[,;/]`)

// Unspell joins letter-by-letter speech back into words: "J O E  S M I T H"
// becomes "JOE SMITH". Groups are separated by commas or runs of spaces;
// groups that are not all single letters pass through unchanged.
func Unspell(text string) string {
	var words []string
	for _, group := range spellGroupRE.Split(strings.TrimSpace(text), -1) {
		fields := strings.Fields(group)
		if len(fields) == 0 {
			continue
		}
		single := true
		for _, f := range fields {
			if len([]rune(f)) != 1 {
				single = false
				break
			}
		}
		if single {
			words = append(words, strings.Join(fields, ""))
		} else {
			words = append(words, fields...)
		}
	}
	return strings.Join(words, " ")
}

// #endregion spelling
