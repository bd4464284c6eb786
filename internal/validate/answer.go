package validate

// #region answer

// Answer classifies a reply to a yes/no question.
type Answer int

const (
	Unknown Answer = iota
	Yes
	No
)

func (a Answer) String() string {
	switch a {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unknown"
	}
}

// negatives are checked first so "not correct" never reads as "correct".
var negatives = []string{
	"no", "nope", "nah", "negative", "incorrect", "wrong",
	"not correct", "not right", "don't", "dont", "do not",
	"haven't", "have not", "not really", "none",
}

var affirmatives = []string{
	"yes", "yeah", "yep", "yup", "ya", "correct", "right", "affirmative",
	"sure", "ok", "okay", "absolutely", "definitely", "of course",
	"i do", "i have", "exactly", "uh huh", "that's it",
}

// YesNo classifies text against explicit vocabularies.
func YesNo(text string) Answer {
	toks := tokens(text)
	if len(toks) == 0 {
		return Unknown
	}
	for _, p := range negatives {
		if hasPhrase(toks, p) {
			return No
		}
	}
	for _, p := range affirmatives {
		if hasPhrase(toks, p) {
			return Yes
		}
	}
	return Unknown
}

// #endregion answer
