package template

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// FieldKind is the closed set of form control types a field may be. The
// renderer treats any other value as an unsupported kind and degrades to a
// placeholder control instead of failing, so templates authored with a
// future kind stay loadable.
type FieldKind string

const (
	KindText          FieldKind = "text"
	KindMultilineText FieldKind = "multiline-text"
	KindNumber        FieldKind = "number"
	KindDate          FieldKind = "date"
	KindSingleSelect  FieldKind = "single-select"
	KindMultiSelect   FieldKind = "multi-select-checkboxes"
	KindRadio         FieldKind = "radio-choice"
	KindScale         FieldKind = "bounded-scale"
	KindRichText      FieldKind = "rich-text"
	KindTagList       FieldKind = "tag-list"
	KindGroup         FieldKind = "nested-group"
)

// Category classifies a template for listing and filtering.
type Category string

const (
	CategoryInitialAssessment Category = "initial-assessment"
	CategoryFollowUp          Category = "follow-up"
	CategoryProgress          Category = "progress"
	CategoryDischarge         Category = "discharge"
	CategorySOAP              Category = "soap"
	CategoryCustom            Category = "custom"
)

var validCategories = map[Category]bool{
	CategoryInitialAssessment: true,
	CategoryFollowUp:          true,
	CategoryProgress:          true,
	CategoryDischarge:         true,
	CategorySOAP:              true,
	CategoryCustom:            true,
}

// Option is one selectable choice on a select, radio, or checkbox field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// FieldDefinition describes one form control. A nested-group field carries
// child fields; groups may nest without a depth limit.
type FieldDefinition struct {
	ID          string            `json:"id" yaml:"id"`
	Kind        FieldKind         `json:"kind" yaml:"kind"`
	Label       string            `json:"label" yaml:"label"`
	Required    bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Placeholder string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Min         *float64          `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64          `json:"max,omitempty" yaml:"max,omitempty"`
	Rows        int               `json:"rows,omitempty" yaml:"rows,omitempty"`
	Options     []Option          `json:"options,omitempty" yaml:"options,omitempty"`
	Children    []FieldDefinition `json:"children,omitempty" yaml:"children,omitempty"`
}

// SectionDefinition is a titled, ordered group of fields.
type SectionDefinition struct {
	ID          string            `json:"id" yaml:"id"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Order       int               `json:"order" yaml:"order"`
	Fields      []FieldDefinition `json:"fields" yaml:"fields"`
}

// Structure is the persisted schema shape. It round-trips through the jsonb
// column exactly: a version marker plus the ordered sections.
type Structure struct {
	Version  string              `json:"version" yaml:"version"`
	Sections []SectionDefinition `json:"sections" yaml:"sections"`
}

// TemplateDefinition maps to the note_template table. Each version of a
// lineage is its own row; lineage_id ties the versions together.
type TemplateDefinition struct {
	ID          uuid.UUID `db:"id" json:"id"`
	LineageID   uuid.UUID `db:"lineage_id" json:"lineage_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Category    Category  `db:"category" json:"category"`
	Version     int       `db:"version" json:"version"`
	Structure   Structure `db:"structure" json:"structure"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	IsArchived  bool      `db:"is_archived" json:"is_archived"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// NormalizeSections sorts sections by their display order. Sections are
// always read and written in this order; validation and rendering rely on it.
func NormalizeSections(sections []SectionDefinition) {
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Order < sections[j].Order
	})
}

// DefaultValue resolves the initial value for a field kind when a note's
// value tree has no entry for it: empty string for text-like kinds, empty
// list for multi-valued kinds, nil otherwise.
func DefaultValue(kind FieldKind) any {
	switch kind {
	case KindText, KindMultilineText, KindRichText:
		return ""
	case KindMultiSelect, KindTagList:
		return []any{}
	default:
		return nil
	}
}

// Clone returns a deep copy of the structure. Creating a new template
// version must never share field slices with its predecessor.
func (s Structure) Clone() Structure {
	out := Structure{Version: s.Version}
	if s.Sections != nil {
		out.Sections = make([]SectionDefinition, len(s.Sections))
		for i, sec := range s.Sections {
			out.Sections[i] = sec
			out.Sections[i].Fields = cloneFields(sec.Fields)
		}
	}
	return out
}

func cloneFields(fields []FieldDefinition) []FieldDefinition {
	if fields == nil {
		return nil
	}
	out := make([]FieldDefinition, len(fields))
	for i, f := range fields {
		out[i] = f
		if f.Min != nil {
			v := *f.Min
			out[i].Min = &v
		}
		if f.Max != nil {
			v := *f.Max
			out[i].Max = &v
		}
		if f.Options != nil {
			out[i].Options = append([]Option(nil), f.Options...)
		}
		out[i].Children = cloneFields(f.Children)
	}
	return out
}

// DuplicateFieldIDs returns every field id that appears more than once
// anywhere in the schema tree. The value tree is keyed by field ids, so ids
// must be unique across sections and all nesting levels.
func DuplicateFieldIDs(sections []SectionDefinition) []string {
	seen := make(map[string]int)
	for _, sec := range sections {
		countFieldIDs(sec.Fields, seen)
	}
	var dups []string
	for _, sec := range sections {
		collectDuplicates(sec.Fields, seen, &dups)
	}
	return dups
}

func countFieldIDs(fields []FieldDefinition, seen map[string]int) {
	for _, f := range fields {
		seen[f.ID]++
		countFieldIDs(f.Children, seen)
	}
}

// collectDuplicates reports each duplicated id once, in schema order.
func collectDuplicates(fields []FieldDefinition, seen map[string]int, dups *[]string) {
	for _, f := range fields {
		if seen[f.ID] > 1 {
			*dups = append(*dups, f.ID)
			seen[f.ID] = 0
		}
		collectDuplicates(f.Children, seen, dups)
	}
}
