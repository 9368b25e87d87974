package template

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func soapSections() []SectionDefinition {
	return []SectionDefinition{
		{
			ID: "subjective", Title: "Subjective", Order: 1,
			Fields: []FieldDefinition{
				{ID: "chief_complaint", Kind: KindText, Label: "Chief complaint", Required: true},
				{ID: "hpi", Kind: KindMultilineText, Label: "History of present illness"},
			},
		},
		{
			ID: "objective", Title: "Objective", Order: 2,
			Fields: []FieldDefinition{
				{
					ID: "vitals", Kind: KindGroup, Label: "Vitals",
					Children: []FieldDefinition{
						{ID: "temperature", Kind: KindNumber, Label: "Temperature", Min: floatPtr(30), Max: floatPtr(45)},
					},
				},
				{ID: "symptoms", Kind: KindMultiSelect, Label: "Symptoms", Options: []Option{
					{Value: "fever", Label: "Fever"},
					{Value: "pain", Label: "Pain"},
				}},
			},
		},
	}
}

func TestRenderForm_SectionOrder(t *testing.T) {
	sections := soapSections()
	// Author order reversed; display order must win.
	sections[0], sections[1] = sections[1], sections[0]

	views := RenderForm(sections, ValueTree{})
	if len(views) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(views))
	}
	if views[0].ID != "subjective" || views[1].ID != "objective" {
		t.Errorf("sections out of order: %s, %s", views[0].ID, views[1].ID)
	}
}

func TestRenderForm_DefaultsWhenAbsent(t *testing.T) {
	views := RenderForm(soapSections(), ValueTree{})

	cc := views[0].Controls[0]
	if cc.Present {
		t.Error("absent value must not be marked present")
	}
	if cc.Value != "" {
		t.Errorf("text default should be empty string, got %v", cc.Value)
	}

	symptoms := views[1].Controls[1]
	if got, ok := symptoms.Value.([]any); !ok || len(got) != 0 {
		t.Errorf("multi-select default should be empty list, got %v", symptoms.Value)
	}
}

func TestRenderForm_ExplicitEmptyStaysPresent(t *testing.T) {
	// A clinician clearing a field is different from never touching it.
	views := RenderForm(soapSections(), ValueTree{"chief_complaint": ""})
	cc := views[0].Controls[0]
	if !cc.Present {
		t.Error("explicitly set empty value must stay present")
	}
}

func TestRenderForm_NestedGroup(t *testing.T) {
	views := RenderForm(soapSections(), ValueTree{
		"vitals": ValueTree{"temperature": 37.5},
	})

	group := views[1].Controls[0]
	if group.Kind != KindGroup || len(group.Children) != 1 {
		t.Fatalf("expected group with one child, got %+v", group)
	}
	temp := group.Children[0]
	if temp.Value != 37.5 || !temp.Present {
		t.Errorf("nested value not rendered: %+v", temp)
	}
	if temp.Min == nil || *temp.Min != 30 {
		t.Errorf("bounds not carried onto the control: %+v", temp)
	}
}

func TestRenderForm_UnsupportedKindDegrades(t *testing.T) {
	sections := []SectionDefinition{
		{
			ID: "s", Title: "S", Order: 1,
			Fields: []FieldDefinition{
				{ID: "sketch", Kind: "drawing-pad", Label: "Sketch"},
			},
		},
	}
	views := RenderForm(sections, ValueTree{"sketch": "raw-data"})
	ctl := views[0].Controls[0]
	if !ctl.Unsupported {
		t.Fatal("unknown kind must render as unsupported")
	}
	if !strings.Contains(ctl.Message, "drawing-pad") {
		t.Errorf("placeholder should name the kind: %q", ctl.Message)
	}
	if ctl.Value != "raw-data" {
		t.Errorf("stored value must survive the degraded render: %v", ctl.Value)
	}
}

func TestRenderForm_RichTextSanitized(t *testing.T) {
	sections := []SectionDefinition{
		{
			ID: "s", Title: "S", Order: 1,
			Fields: []FieldDefinition{
				{ID: "exam", Kind: KindRichText, Label: "Exam"},
			},
		},
	}
	raw := `<p>ok</p><script>alert(1)</script>`
	views := RenderForm(sections, ValueTree{"exam": raw})
	ctl := views[0].Controls[0]

	if ctl.Value != raw {
		t.Error("raw value must not be rewritten by sanitization")
	}
	if strings.Contains(ctl.SafeHTML, "<script>") {
		t.Errorf("script tag survived sanitization: %q", ctl.SafeHTML)
	}
	if !strings.Contains(ctl.SafeHTML, "<p>ok</p>") {
		t.Errorf("benign markup stripped: %q", ctl.SafeHTML)
	}
}

func TestReadForm_RoundTrip(t *testing.T) {
	tree := ValueTree{
		"chief_complaint": "headache",
		"hpi":             "",
		"vitals":          ValueTree{"temperature": 37.5},
		"symptoms":        []any{"fever"},
	}
	got := ReadForm(RenderForm(soapSections(), tree))
	if diff := cmp.Diff(tree, got); diff != "" {
		t.Errorf("render/read round trip changed the tree (-want +got):\n%s", diff)
	}
}

func TestReadForm_DefaultsNotReadBack(t *testing.T) {
	got := ReadForm(RenderForm(soapSections(), ValueTree{}))
	if len(got) != 0 {
		t.Errorf("kind defaults must not leak into the read-back tree, got %v", got)
	}
}
