package intake

import (
	"encoding/json"
	"testing"
)

func TestSlotsSetGetClear(t *testing.T) {
	var s Slots
	if s.Has(FullName) {
		t.Fatal("expected empty slot")
	}
	s.Set(FullName, "  Joe Smith ")
	v, ok := s.Get(FullName)
	if !ok || v != "Joe Smith" {
		t.Fatalf("expected trimmed value, got %q ok=%v", v, ok)
	}
	s.Set(FullName, "")
	if s.Has(FullName) {
		t.Fatal("empty Set should clear the slot")
	}
}

func TestSlotsHasAttorney(t *testing.T) {
	var s Slots
	s.Set(HasAttorney, "maybe")
	if s.Has(HasAttorney) {
		t.Fatal("unrecognized value should be ignored")
	}
	s.Set(HasAttorney, "yes")
	if v, _ := s.Get(HasAttorney); v != "true" {
		t.Fatalf("expected true, got %q", v)
	}
	s.Set(HasAttorney, "false")
	if v, _ := s.Get(HasAttorney); v != "false" {
		t.Fatalf("expected false, got %q", v)
	}
	s.Clear(HasAttorney)
	if s.HasAttorney != nil {
		t.Fatal("expected nil after clear")
	}
}

func TestEveryExtractableFieldRoundTrips(t *testing.T) {
	var s Slots
	for _, f := range Extractable {
		val := "x-" + string(f)
		if f == HasAttorney {
			val = "true"
		}
		s.Set(f, val)
		got, ok := s.Get(f)
		if !ok || got != val {
			t.Errorf("%s: expected %q, got %q", f, val, got)
		}
	}
}

func TestSnapshotFlattensJSON(t *testing.T) {
	name := "Joe Smith"
	snap := Snapshot{CallerNumber: "5551234567", Slots: Slots{FullName: &name}}
	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["full_name"] != "Joe Smith" {
		t.Errorf("expected flattened full_name, got %v", m["full_name"])
	}
	if _, ok := m["email"]; ok {
		t.Error("absent fields should be omitted")
	}
	if m["address_verified"] != false {
		t.Error("annotations should be flattened")
	}
}

func TestFieldCategoryAndValidity(t *testing.T) {
	if !FundingAmount.Valid() || Field("ssn").Valid() {
		t.Fatal("unexpected validity")
	}
	if Email.Category() != CategoryContact || LawFirm.Category() != CategoryAttorney {
		t.Fatal("unexpected category")
	}
	if _, ok := ParseField("incident_date"); !ok {
		t.Fatal("expected incident_date to parse")
	}
}
