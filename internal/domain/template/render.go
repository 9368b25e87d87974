package template

import (
	"fmt"

	"github.com/microcosm-cc/bluemonday"
)

// richTextPolicy strips unsafe markup from rich-text values before they are
// shown in a preview. The raw value is never rewritten, only the SafeHTML
// copy, so render/read round-trips are byte-exact.
var richTextPolicy = bluemonday.UGCPolicy()

const defaultMultilineRows = 3

// Control is one rendered form control. Kind-specific attributes are only
// populated for the kinds that use them; nested-group controls carry their
// children instead of a value.
type Control struct {
	FieldID     string    `json:"field_id"`
	Kind        FieldKind `json:"kind"`
	Label       string    `json:"label"`
	Placeholder string    `json:"placeholder,omitempty"`
	Required    bool      `json:"required,omitempty"`
	Value       any       `json:"value"`
	// Present reports whether Value came from the note's tree rather than
	// the kind default. An explicit empty value the clinician set (e.g.
	// unchecking every checkbox) stays Present and is never overwritten.
	Present     bool      `json:"present"`
	Options     []Option  `json:"options,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Rows        int       `json:"rows,omitempty"`
	SafeHTML    string    `json:"safe_html,omitempty"`
	Children    []Control `json:"children,omitempty"`
	Unsupported bool      `json:"unsupported,omitempty"`
	Message     string    `json:"message,omitempty"`
}

// SectionView is a rendered section: its metadata plus one control per field.
type SectionView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Controls    []Control `json:"controls"`
}

// RenderForm turns a schema and a value tree into an editable control tree.
// Sections render in display order; each field dispatches on its kind, and
// unrecognized kinds degrade to a visible placeholder control so a template
// authored with a future kind still renders.
func RenderForm(sections []SectionDefinition, tree ValueTree) []SectionView {
	ordered := append([]SectionDefinition(nil), sections...)
	NormalizeSections(ordered)

	views := make([]SectionView, 0, len(ordered))
	for _, sec := range ordered {
		view := SectionView{
			ID:          sec.ID,
			Title:       sec.Title,
			Description: sec.Description,
			Controls:    renderFields(sec.Fields, tree),
		}
		views = append(views, view)
	}
	return views
}

func renderFields(fields []FieldDefinition, tree ValueTree) []Control {
	controls := make([]Control, 0, len(fields))
	for _, f := range fields {
		controls = append(controls, renderField(f, tree))
	}
	return controls
}

func renderField(f FieldDefinition, tree ValueTree) Control {
	ctl := Control{
		FieldID:     f.ID,
		Kind:        f.Kind,
		Label:       f.Label,
		Placeholder: f.Placeholder,
		Required:    f.Required,
	}

	value, present := tree[f.ID]
	ctl.Present = present
	if !present {
		value = DefaultValue(f.Kind)
	}

	switch f.Kind {
	case KindText, KindDate:
		ctl.Value = value
	case KindMultilineText:
		ctl.Value = value
		ctl.Rows = f.Rows
		if ctl.Rows <= 0 {
			ctl.Rows = defaultMultilineRows
		}
	case KindNumber, KindScale:
		ctl.Value = value
		ctl.Min = f.Min
		ctl.Max = f.Max
	case KindSingleSelect, KindRadio, KindMultiSelect:
		ctl.Value = value
		ctl.Options = f.Options
	case KindTagList:
		ctl.Value = value
	case KindRichText:
		ctl.Value = value
		if s, ok := value.(string); ok && s != "" {
			ctl.SafeHTML = richTextPolicy.Sanitize(s)
		}
	case KindGroup:
		sub := asTree(value)
		if sub == nil {
			sub = ValueTree{}
		}
		ctl.Children = renderFields(f.Children, sub)
	default:
		ctl.Unsupported = true
		ctl.Message = fmt.Sprintf("unsupported field type: %s", f.Kind)
		ctl.Value = value
	}

	return ctl
}

// ReadForm extracts the value tree back out of a rendered form. Only values
// that were present in the source tree are read back, so rendering a tree
// and reading it again reproduces it exactly, defaults excluded.
func ReadForm(views []SectionView) ValueTree {
	tree := ValueTree{}
	for _, view := range views {
		readControls(view.Controls, tree)
	}
	return tree
}

func readControls(controls []Control, into ValueTree) {
	for _, ctl := range controls {
		if ctl.Kind == KindGroup {
			if !ctl.Present {
				continue
			}
			sub := ValueTree{}
			readControls(ctl.Children, sub)
			into[ctl.FieldID] = sub
			continue
		}
		if ctl.Present {
			into[ctl.FieldID] = ctl.Value
		}
	}
}
