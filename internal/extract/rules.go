package extract

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/validate"
)

// Confidence assigned by Rules. Strict parsers earn more trust than free text.
const (
	StrictConfidence   = 0.85
	FreeTextConfidence = 0.6
)

// #region rules
// Rules is the deterministic backend: the field validators applied to the
// wanted fields, plus email and phone whenever they appear.
type Rules struct {
	Now func() time.Time
}

func (r Rules) Extract(_ context.Context, utterance string, wanted []intake.Field) (intake.Candidates, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	out := intake.Candidates{}
	want := make(map[intake.Field]bool, len(wanted))
	for _, f := range wanted {
		want[f] = true
	}
	split := want[intake.AttorneyName] || want[intake.AttorneyPhone] || want[intake.LawFirm] || want[intake.LawFirmAddress]
	if split {
		for f, c := range Attorney(utterance) {
			if want[f] {
				out[f] = c
			}
		}
	}
	for _, f := range wanted {
		if split && attorneyFields[f] {
			continue
		}
		if v, conf, ok := Parse(f, utterance, "", now()); ok {
			out[f] = intake.Candidate{Value: v, Confidence: conf}
		}
	}
	if _, ok := out[intake.Email]; !ok {
		if v, ok := validate.Email(utterance); ok {
			out[intake.Email] = intake.Candidate{Value: v, Confidence: StrictConfidence}
		}
	}
	return out, nil
}
// #endregion rules

// #region parse
// Parse runs the validator for f. callerNumber backs the "same number"
// phone sentinel.
func Parse(f intake.Field, text, callerNumber string, now time.Time) (string, float64, bool) {
	var (
		v    string
		ok   bool
		conf = StrictConfidence
	)
	switch f {
	case intake.FullName:
		v, ok = spelledName(text)
		conf = FreeTextConfidence
	case intake.Phone, intake.BestPhone:
		v, ok = validate.Phone(text, callerNumber)
	case intake.AttorneyPhone:
		v, ok = validate.Phone(text, "")
	case intake.Email:
		v, ok = validate.Email(text)
	case intake.Address, intake.LawFirmAddress:
		v, ok = validate.Address(text)
		conf = FreeTextConfidence
	case intake.State:
		v, ok = validate.StateCode(text)
	case intake.HasAttorney:
		switch validate.YesNo(text) {
		case validate.Yes:
			v, ok = "true", true
		case validate.No:
			v, ok = "false", true
		}
	case intake.AttorneyName:
		v, ok = spelledName(text)
		conf = FreeTextConfidence
	case intake.LawFirm:
		if validate.HasAny(text, firmMarkers) {
			v, ok = validate.Narrative(text)
		}
		conf = FreeTextConfidence
	case intake.InjuryType:
		v, ok = validate.CaseType(text)
	case intake.InjuryDetails:
		v, ok = validate.Narrative(text)
		conf = FreeTextConfidence
	case intake.IncidentDate:
		v, ok = validate.Date(text, now)
	case intake.FundingType:
		v, ok = validate.FundingType(text)
	case intake.FundingAmount:
		v, ok = validate.Amount(text)
	}
	return v, conf, ok
}

var canonicalFields = map[intake.Field]bool{
	intake.Phone: true, intake.BestPhone: true, intake.AttorneyPhone: true,
	intake.Email: true, intake.State: true, intake.InjuryType: true,
	intake.IncidentDate: true, intake.FundingType: true, intake.FundingAmount: true,
}

// Canonical rewrites a model-supplied value into the form Parse produces, so
// "2000" becomes "$2,000" and "(555) 123-4567" becomes "5551234567". Free-text
// fields and values the validators reject come back unchanged.
func Canonical(f intake.Field, value, callerNumber string, now time.Time) string {
	if !canonicalFields[f] {
		return value
	}
	if v, _, ok := Parse(f, value, callerNumber, now); ok {
		return v
	}
	return value
}
// #endregion parse

// #region attorney
var attorneyFields = map[intake.Field]bool{
	intake.AttorneyName: true, intake.AttorneyPhone: true,
	intake.LawFirm: true, intake.LawFirmAddress: true,
}

var firmMarkers = []string{
	"law", "firm", "legal", "associates", "llp", "llc", "pc", "pllc",
	"attorneys", "lawyers", "office", "offices", "group",
}

var segmentRE = regexp.MustCompile(`[,;]`)

// Attorney splits a description of the caller's representation into name,
// phone, firm and firm address. Parts are separated by commas or semicolons;
// each field takes the first segment that parses as it.
func Attorney(text string) intake.Candidates {
	out := intake.Candidates{}
	put := func(f intake.Field, v string, conf float64) bool {
		if _, ok := out[f]; ok {
			return false
		}
		out[f] = intake.Candidate{Value: v, Confidence: conf}
		return true
	}
	for _, seg := range segmentRE.Split(text, -1) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if v, ok := validate.Phone(seg, ""); ok && put(intake.AttorneyPhone, v, StrictConfidence) {
			continue
		}
		if v, ok := validate.Address(seg); ok && put(intake.LawFirmAddress, v, FreeTextConfidence) {
			continue
		}
		if validate.HasAny(seg, firmMarkers) {
			if v, ok := validate.Narrative(seg); ok && put(intake.LawFirm, v, FreeTextConfidence) {
				continue
			}
		}
		if v, ok := spelledName(seg); ok {
			put(intake.AttorneyName, v, FreeTextConfidence)
		}
	}
	return out
}
// #endregion attorney

// spelledName accepts plain or letter-by-letter names.
func spelledName(text string) (string, bool) {
	if u := validate.Unspell(text); u != strings.Join(strings.Fields(text), " ") {
		if v, ok := validate.Name(u); ok {
			return v, true
		}
	}
	return validate.Name(text)
}
