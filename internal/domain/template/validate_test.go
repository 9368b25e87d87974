package template

import (
	"errors"
	"strings"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func vitalsStructure() Structure {
	return Structure{
		Version: "1",
		Sections: []SectionDefinition{
			{
				ID:    "vitals",
				Title: "Vitals",
				Order: 1,
				Fields: []FieldDefinition{
					{ID: "temperature", Kind: KindNumber, Label: "Temperature", Required: true, Min: floatPtr(30), Max: floatPtr(45)},
					{ID: "notes", Kind: KindMultilineText, Label: "Notes"},
				},
			},
		},
	}
}

// -- Structure validation --

func TestValidateStructure_Valid(t *testing.T) {
	if err := ValidateStructure(vitalsStructure()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateStructure_NoSections(t *testing.T) {
	err := ValidateStructure(Structure{Version: "1"})
	if err == nil {
		t.Fatal("expected error for empty structure")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if !strings.Contains(ve.Error(), "at least one section") {
		t.Errorf("unexpected message: %v", ve)
	}
}

func TestValidateStructure_UntitledSection(t *testing.T) {
	s := vitalsStructure()
	s.Sections[0].Title = "  "
	if err := ValidateStructure(s); err == nil {
		t.Fatal("expected error for untitled section")
	}
}

func TestValidateStructure_EmptyFieldID(t *testing.T) {
	s := vitalsStructure()
	s.Sections[0].Fields[0].ID = ""
	if err := ValidateStructure(s); err == nil {
		t.Fatal("expected error for empty field id")
	}
}

func TestValidateStructure_ChoiceWithoutOptions(t *testing.T) {
	s := vitalsStructure()
	s.Sections[0].Fields = append(s.Sections[0].Fields, FieldDefinition{
		ID: "follow_up", Kind: KindSingleSelect, Label: "Follow-up",
	})
	err := ValidateStructure(s)
	if err == nil {
		t.Fatal("expected error for choice field without options")
	}
	if !strings.Contains(err.Error(), "follow_up") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestValidateStructure_MinGreaterThanMax(t *testing.T) {
	s := vitalsStructure()
	s.Sections[0].Fields[0].Min = floatPtr(50)
	s.Sections[0].Fields[0].Max = floatPtr(10)
	if err := ValidateStructure(s); err == nil {
		t.Fatal("expected error for min > max")
	}
}

func TestValidateStructure_DuplicateIDsAcrossNesting(t *testing.T) {
	s := Structure{
		Version: "1",
		Sections: []SectionDefinition{
			{
				ID: "a", Title: "A", Order: 1,
				Fields: []FieldDefinition{{ID: "temperature", Kind: KindNumber, Label: "Temp"}},
			},
			{
				ID: "b", Title: "B", Order: 2,
				Fields: []FieldDefinition{
					{
						ID: "vitals", Kind: KindGroup, Label: "Vitals",
						Children: []FieldDefinition{{ID: "temperature", Kind: KindNumber, Label: "Temp again"}},
					},
				},
			},
		},
	}
	err := ValidateStructure(s)
	if err == nil {
		t.Fatal("expected error for duplicate ids across nesting levels")
	}
	if !strings.Contains(err.Error(), "temperature") {
		t.Errorf("error should name the duplicated id: %v", err)
	}
}

func TestValidateStructure_UnknownKindAllowed(t *testing.T) {
	// Templates authored with a future kind stay loadable; the renderer
	// degrades instead.
	s := vitalsStructure()
	s.Sections[0].Fields = append(s.Sections[0].Fields, FieldDefinition{
		ID: "sketch", Kind: "drawing-pad", Label: "Sketch",
	})
	if err := ValidateStructure(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// -- Content validation --

func TestValidateContent_MissingRequired(t *testing.T) {
	errs := ValidateContent(vitalsStructure().Sections, ValueTree{})
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", errs)
	}
	if errs["temperature"] != "Temperature is required" {
		t.Errorf("unexpected message: %q", errs["temperature"])
	}
}

func TestValidateContent_Filled(t *testing.T) {
	errs := ValidateContent(vitalsStructure().Sections, ValueTree{"temperature": 37.5})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateContent_NilAndEmptyStringAreMissing(t *testing.T) {
	for name, v := range map[string]any{"nil": nil, "empty string": ""} {
		errs := ValidateContent(vitalsStructure().Sections, ValueTree{"temperature": v})
		if _, ok := errs["temperature"]; !ok {
			t.Errorf("%s value should count as missing", name)
		}
	}
}

func TestValidateContent_ZeroIsPresent(t *testing.T) {
	// A numeric zero is an entered value, not a missing one.
	errs := ValidateContent(vitalsStructure().Sections, ValueTree{"temperature": 0.0})
	if len(errs) != 0 {
		t.Fatalf("zero should satisfy a required number field, got %v", errs)
	}
}

func TestValidateContent_NestedGroupReportsLeafIDs(t *testing.T) {
	sections := []SectionDefinition{
		{
			ID: "objective", Title: "Objective", Order: 1,
			Fields: []FieldDefinition{
				{
					ID: "vitals", Kind: KindGroup, Label: "Vitals",
					Children: []FieldDefinition{
						{ID: "temperature", Kind: KindNumber, Label: "Temperature", Required: true},
						{ID: "heart_rate", Kind: KindNumber, Label: "Heart rate", Required: true},
					},
				},
			},
		},
	}

	errs := ValidateContent(sections, ValueTree{
		"vitals": ValueTree{"temperature": 37.5},
	})
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	if _, ok := errs["heart_rate"]; !ok {
		t.Errorf("error should be keyed by the leaf field id, got %v", errs)
	}
}

func TestValidateContent_GroupEntirelyAbsent(t *testing.T) {
	sections := []SectionDefinition{
		{
			ID: "objective", Title: "Objective", Order: 1,
			Fields: []FieldDefinition{
				{
					ID: "vitals", Kind: KindGroup, Label: "Vitals",
					Children: []FieldDefinition{
						{ID: "temperature", Kind: KindNumber, Label: "Temperature", Required: true},
					},
				},
			},
		},
	}
	errs := ValidateContent(sections, ValueTree{})
	if errs["temperature"] == "" {
		t.Errorf("required leaves of an absent group must be reported, got %v", errs)
	}
	if _, ok := errs["vitals"]; ok {
		t.Errorf("an optional group must not be reported itself, got %v", errs)
	}
}

func TestValidateContent_RequiredGroupAbsent(t *testing.T) {
	sections := []SectionDefinition{
		{
			ID: "objective", Title: "Objective", Order: 1,
			Fields: []FieldDefinition{
				{
					ID: "vitals", Kind: KindGroup, Label: "Vitals", Required: true,
					Children: []FieldDefinition{
						{ID: "temperature", Kind: KindNumber, Label: "Temperature", Required: true},
					},
				},
			},
		},
	}

	errs := ValidateContent(sections, ValueTree{})
	if errs["vitals"] != "Vitals is required" {
		t.Errorf("a required group with no sub-tree must be reported under its own id, got %v", errs)
	}
	if errs["temperature"] == "" {
		t.Errorf("its required leaves are still reported, got %v", errs)
	}

	// Once the group has a sub-tree the group-level error clears, even if
	// leaves are still missing.
	errs = ValidateContent(sections, ValueTree{"vitals": ValueTree{}})
	if _, ok := errs["vitals"]; ok {
		t.Errorf("a present group must not be reported itself, got %v", errs)
	}
	if errs["temperature"] == "" {
		t.Errorf("missing leaves inside a present group are still reported, got %v", errs)
	}
}
