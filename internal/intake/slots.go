package intake

import "strings"

// #region slots

// Slots holds the caller-provided values. A nil pointer means the value has
// not been captured.
type Slots struct {
	FullName       *string `json:"full_name,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	BestPhone      *string `json:"best_phone,omitempty"`
	Email          *string `json:"email,omitempty"`
	Address        *string `json:"address,omitempty"`
	State          *string `json:"state,omitempty"`
	HasAttorney    *bool   `json:"has_attorney,omitempty"`
	AttorneyName   *string `json:"attorney_name,omitempty"`
	AttorneyPhone  *string `json:"attorney_phone,omitempty"`
	LawFirm        *string `json:"law_firm,omitempty"`
	LawFirmAddress *string `json:"law_firm_address,omitempty"`
	InjuryType     *string `json:"injury_type,omitempty"`
	InjuryDetails  *string `json:"injury_details,omitempty"`
	IncidentDate   *string `json:"incident_date,omitempty"`
	FundingType    *string `json:"funding_type,omitempty"`
	FundingAmount  *string `json:"funding_amount,omitempty"`
}

func (s *Slots) ref(f Field) **string {
	switch f {
	case FullName:
		return &s.FullName
	case Phone:
		return &s.Phone
	case BestPhone:
		return &s.BestPhone
	case Email:
		return &s.Email
	case Address:
		return &s.Address
	case State:
		return &s.State
	case AttorneyName:
		return &s.AttorneyName
	case AttorneyPhone:
		return &s.AttorneyPhone
	case LawFirm:
		return &s.LawFirm
	case LawFirmAddress:
		return &s.LawFirmAddress
	case InjuryType:
		return &s.InjuryType
	case InjuryDetails:
		return &s.InjuryDetails
	case IncidentDate:
		return &s.IncidentDate
	case FundingType:
		return &s.FundingType
	case FundingAmount:
		return &s.FundingAmount
	}
	return nil
}

// Get returns the value of f. has_attorney reads as "true" or "false".
func (s *Slots) Get(f Field) (string, bool) {
	if f == HasAttorney {
		if s.HasAttorney == nil {
			return "", false
		}
		if *s.HasAttorney {
			return "true", true
		}
		return "false", true
	}
	r := s.ref(f)
	if r == nil || *r == nil {
		return "", false
	}
	return **r, true
}

// Has reports whether f holds a value.
func (s *Slots) Has(f Field) bool {
	_, ok := s.Get(f)
	return ok
}

// Set stores v in f. An empty v clears the field. has_attorney accepts
// true/false/yes/no and ignores anything else.
func (s *Slots) Set(f Field, v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		s.Clear(f)
		return
	}
	if f == HasAttorney {
		switch strings.ToLower(v) {
		case "true", "yes":
			b := true
			s.HasAttorney = &b
		case "false", "no":
			b := false
			s.HasAttorney = &b
		}
		return
	}
	if r := s.ref(f); r != nil {
		*r = &v
	}
}

// Clear removes the value of f.
func (s *Slots) Clear(f Field) {
	if f == HasAttorney {
		s.HasAttorney = nil
		return
	}
	if r := s.ref(f); r != nil {
		*r = nil
	}
}

// #endregion slots

// #region annotations

// Eligibility is the coarse result of the state-service lookup.
type Eligibility string

const (
	EligibilityUnknown Eligibility = "unknown"
	EligibilityYes     Eligibility = "yes"
	EligibilityNo      Eligibility = "no"
)

// Annotations are values derived by the engine and its collaborators rather
// than spoken by the caller.
type Annotations struct {
	AddressNorm          string      `json:"address_norm,omitempty"`
	AddressVerified      bool        `json:"address_verified"`
	AddressSkipped       bool        `json:"address_skipped"`
	StateEligible        Eligibility `json:"state_eligible,omitempty"`
	StateEligibilityNote string      `json:"state_eligibility_note,omitempty"`
	AttorneyVerified     bool        `json:"attorney_verified"`
}

// #endregion annotations

// #region snapshot

// Snapshot is the full field projection returned with every turn.
type Snapshot struct {
	CallerNumber string `json:"caller_number,omitempty"`
	Slots
	Annotations
}

// #endregion snapshot
