package validate

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// #region phone

var digitWords = map[string]string{
	"zero": "0", "oh": "0", "o": "0",
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9",
}

// sameNumberPhrases mean "use the number I'm calling from".
var sameNumberPhrases = []string{
	"same number", "this number", "same as", "calling from", "the one i'm calling",
}

// Phone extracts a 10-digit US number from spoken or typed text. When the
// caller refers to the number they are calling from, callerNumber is used.
// More than ten digits keeps the last ten.
func Phone(text, callerNumber string) (string, bool) {
	toks := tokens(text)
	if len(toks) == 0 {
		return "", false
	}
	for _, p := range sameNumberPhrases {
		if hasPhrase(toks, p) {
			if n, ok := NormalizeNumber(callerNumber); ok {
				return n, true
			}
		}
	}

	var b strings.Builder
	repeat := 0
	for _, tok := range toks {
		switch tok {
		case "double":
			repeat = 2
			continue
		case "triple":
			repeat = 3
			continue
		}
		d, ok := digitWords[tok]
		if !ok {
			if !isDigits(tok) {
				repeat = 0
				continue
			}
			d = tok
		}
		if repeat > 0 && len(d) == 1 {
			d = strings.Repeat(d, repeat)
		}
		repeat = 0
		b.WriteString(d)
	}
	return lastTen(b.String())
}

// NormalizeNumber reduces a dialed number such as "+1 (555) 123-4567" to its
// last ten digits.
func NormalizeNumber(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return lastTen(b.String())
}

func lastTen(digits string) (string, bool) {
	if len(digits) < 10 {
		return "", false
	}
	return digits[len(digits)-10:], true
}

// FormatPhone renders ten digits as 555-123-4567 for read-back.
func FormatPhone(n string) string {
	if len(n) != 10 || !isDigits(n) {
		return n
	}
	return n[:3] + "-" + n[3:6] + "-" + n[6:]
}

// #endregion phone

// #region email

var emailRE = regexp.MustCompile(`[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

var emailLeadRE = regexp.MustCompile(
	`^(?:(?:yes|yeah|sure|okay|ok|so|um|uh)[,.]?\s+)*` +
		`(?:(?:it's|it is|that's|that is)\s+)?` +
		`(?:(?:my|the)\s+)?(?:e-?mail(?:\s+address)?\s+(?:is\s+)?)?` +
		`(?:(?:it's|it is)\s+)?`)

// Email turns typed or verbalized addresses ("john dot doe at gmail dot com")
// into a canonical lowercase address.
func Email(text string) (string, bool) {
	s := normalize(text)
	if s == "" {
		return "", false
	}
	if m := emailRE.FindString(s); m != "" {
		return strings.Trim(m, "."), true
	}

	s = emailLeadRE.ReplaceAllString(s, "")
	var b strings.Builder
	for _, tok := range strings.Fields(s) {
		tok = strings.Trim(tok, ",;:!?\"")
		switch tok {
		case "at", "@":
			b.WriteString("@")
		case "dot", "period", "point":
			b.WriteString(".")
		case "underscore":
			b.WriteString("_")
		case "dash", "hyphen", "minus":
			b.WriteString("-")
		case "plus":
			b.WriteString("+")
		default:
			b.WriteString(tok)
		}
	}
	m := emailRE.FindString(b.String())
	if m == "" {
		return "", false
	}
	return strings.Trim(m, "."), true
}

// #endregion email

// #region name

var namePrefixREs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy (?:full )?(?:legal )?name is\s+([a-z][a-z .'\-]{0,80})`),
	regexp.MustCompile(`(?i)\bthe name is\s+([a-z][a-z .'\-]{0,80})`),
	regexp.MustCompile(`(?i)\byou can call me\s+([a-z][a-z .'\-]{0,80})`),
	regexp.MustCompile(`(?i)\bthis is\s+([a-z][a-z .'\-]{0,80})`),
	regexp.MustCompile(`(?i)\bi am\s+([a-z][a-z .'\-]{0,80})`),
	regexp.MustCompile(`(?i)\bi'm\s+([a-z][a-z .'\-]{0,80})`),
	regexp.MustCompile(`(?i)\bit is\s+([a-z][a-z .'\-]{0,80})`),
	regexp.MustCompile(`(?i)\bit's\s+([a-z][a-z .'\-]{0,80})`),
}

var nameFillers = map[string]bool{
	"yes": true, "no": true, "yeah": true, "um": true, "uh": true, "hello": true,
	"hi": true, "okay": true, "ok": true, "sure": true, "hey": true, "what": true,
}

// Name strips lead-ins such as "my name is" and otherwise accepts a bare
// utterance of one to four words, title-cased.
func Name(text string) (string, bool) {
	t := quoteReplacer.Replace(strings.TrimSpace(text))
	if t == "" {
		return "", false
	}
	for _, re := range namePrefixREs {
		if m := re.FindStringSubmatch(t); m != nil {
			if n, ok := nameFromWords(m[1]); ok {
				return n, true
			}
		}
	}
	if strings.ContainsAny(t, "0123456789@") {
		return "", false
	}
	return nameFromWords(t)
}

func nameFromWords(s string) (string, bool) {
	s = strings.Trim(s, " .,!?:;\"'()[]")
	var words []string
	for _, w := range strings.Fields(s) {
		w = strings.Trim(w, ",;:!?\"()[]")
		if hasLetter(w) {
			words = append(words, w)
		}
	}
	if len(words) < 1 || len(words) > 4 {
		return "", false
	}
	filler := true
	for _, w := range words {
		if !nameFillers[strings.ToLower(strings.Trim(w, "."))] {
			filler = false
			break
		}
	}
	if filler {
		return "", false
	}
	// Casers carry state; one per call.
	return cases.Title(language.English).String(strings.Join(words, " ")), true
}

// #endregion name
