package intake

// #region field

// Field names one slot in the closed set the engine fills.
type Field string

const (
	FullName       Field = "full_name"
	Phone          Field = "phone"
	BestPhone      Field = "best_phone"
	Email          Field = "email"
	Address        Field = "address"
	State          Field = "state"
	HasAttorney    Field = "has_attorney"
	AttorneyName   Field = "attorney_name"
	AttorneyPhone  Field = "attorney_phone"
	LawFirm        Field = "law_firm"
	LawFirmAddress Field = "law_firm_address"
	InjuryType     Field = "injury_type"
	InjuryDetails  Field = "injury_details"
	IncidentDate   Field = "incident_date"
	FundingType    Field = "funding_type"
	FundingAmount  Field = "funding_amount"
)

// Extractable is the closed set of fields an extractor may return,
// listed in read-back order.
var Extractable = []Field{
	FullName, Phone, Email, Address, State,
	HasAttorney, AttorneyName, AttorneyPhone, LawFirm, LawFirmAddress,
	InjuryType, InjuryDetails, IncidentDate, FundingType, FundingAmount,
}

var labels = map[Field]string{
	FullName:       "name",
	Phone:          "phone",
	BestPhone:      "best phone",
	Email:          "email",
	Address:        "address",
	State:          "state",
	HasAttorney:    "attorney",
	AttorneyName:   "attorney name",
	AttorneyPhone:  "attorney phone",
	LawFirm:        "law firm",
	LawFirmAddress: "law firm address",
	InjuryType:     "case type",
	InjuryDetails:  "what happened",
	IncidentDate:   "incident date",
	FundingType:    "funding type",
	FundingAmount:  "funding amount",
}

// Valid reports whether f belongs to the closed field set.
func (f Field) Valid() bool {
	_, ok := labels[f]
	return ok
}

// Label is the caller-facing name of the field.
func (f Field) Label() string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// ParseField maps a wire name to a Field.
func ParseField(s string) (Field, bool) {
	f := Field(s)
	return f, f.Valid()
}

// #endregion field

// #region category

// Category groups fields for read-back and correction.
type Category string

const (
	CategoryIdentity Category = "identity"
	CategoryContact  Category = "contact"
	CategoryAddress  Category = "address"
	CategoryAttorney Category = "attorney"
	CategoryCase     Category = "case"
	CategoryFunding  Category = "funding"
)

// Categories is the fixed read-back order.
var Categories = []Category{
	CategoryIdentity, CategoryContact, CategoryAddress,
	CategoryAttorney, CategoryCase, CategoryFunding,
}

// Category returns the read-back group of f.
func (f Field) Category() Category {
	switch f {
	case FullName:
		return CategoryIdentity
	case Phone, BestPhone, Email:
		return CategoryContact
	case Address, State:
		return CategoryAddress
	case HasAttorney, AttorneyName, AttorneyPhone, LawFirm, LawFirmAddress:
		return CategoryAttorney
	case InjuryType, InjuryDetails, IncidentDate:
		return CategoryCase
	default:
		return CategoryFunding
	}
}

// #endregion category

// #region candidate

// Candidate is one extracted value with the extractor's confidence in [0,1].
type Candidate struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Candidates maps fields to extracted values for one utterance.
type Candidates map[Field]Candidate

// #endregion candidate
