package template

import (
	"fmt"
	"strings"
)

var choiceKinds = map[FieldKind]bool{
	KindSingleSelect: true,
	KindMultiSelect:  true,
	KindRadio:        true,
}

// ValidateStructure checks a schema before it is persisted: at least one
// section, non-empty section titles, non-empty field ids unique across the
// whole tree, options present on choice kinds, and min <= max where both are
// set. Unknown field kinds are allowed; the renderer degrades for them.
func ValidateStructure(s Structure) error {
	if len(s.Sections) == 0 {
		return newValidationError("at least one section is required")
	}
	for _, sec := range s.Sections {
		if strings.TrimSpace(sec.Title) == "" {
			return newValidationError("section %q must have a title", sec.ID)
		}
		if err := validateFields(sec.Fields); err != nil {
			return err
		}
	}
	if dups := DuplicateFieldIDs(s.Sections); len(dups) > 0 {
		return newValidationError("duplicate field id(s): %s", strings.Join(dups, ", "))
	}
	return nil
}

func validateFields(fields []FieldDefinition) error {
	for _, f := range fields {
		if strings.TrimSpace(f.ID) == "" {
			return newValidationError("field %q must have an id", f.Label)
		}
		if choiceKinds[f.Kind] && len(f.Options) == 0 {
			return newValidationError("field %q requires at least one option", f.ID)
		}
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			return newValidationError("field %q has min greater than max", f.ID)
		}
		if f.Kind == KindGroup {
			if err := validateFields(f.Children); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateContent checks a note's value tree against the schema and returns
// a message per missing required field, keyed by field id. A value is
// missing when the tree has no entry, the entry is nil, or it is an empty
// string. Fields inside nested groups are checked recursively against the
// group's sub-tree and reported under their own ids; a required group with
// no sub-tree at all is additionally reported under the group's id.
//
// Pure function: callers run it before a manual save (advisory) and before
// signing (blocking).
func ValidateContent(sections []SectionDefinition, tree ValueTree) map[string]string {
	errs := make(map[string]string)
	ordered := append([]SectionDefinition(nil), sections...)
	NormalizeSections(ordered)
	for _, sec := range ordered {
		validateContentFields(sec.Fields, tree, errs)
	}
	return errs
}

func validateContentFields(fields []FieldDefinition, tree ValueTree, errs map[string]string) {
	for _, f := range fields {
		if f.Kind == KindGroup {
			v, ok := tree[f.ID]
			sub := ValueTree{}
			if t := asTree(v); t != nil {
				sub = t
			}
			if f.Required && (!ok || v == nil) {
				errs[f.ID] = fmt.Sprintf("%s is required", f.Label)
			}
			validateContentFields(f.Children, sub, errs)
			continue
		}
		if !f.Required {
			continue
		}
		v, ok := tree[f.ID]
		if !ok || v == nil || v == "" {
			errs[f.ID] = fmt.Sprintf("%s is required", f.Label)
		}
	}
}
