// Package registry holds the static mapping from logical submission fields to
// the field identifiers inside each form type's external PDF template.
//
// The templates are authored by third parties and their internal field naming
// is irregular, so every form type carries its own rule table. Tables are
// fixed at build time; the runtime-mutable part of document layout (signature
// placement) lives in the sigstore package instead.
package registry

import (
	"fmt"
	"sort"
)

// RuleKind discriminates the rule variants a registry entry may carry.
type RuleKind string

const (
	// RuleDirectText writes the coerced submission value into one template field.
	RuleDirectText RuleKind = "direct_text"
	// RuleBinarySplit marks one of two template fields for a yes/no value.
	RuleBinarySplit RuleKind = "binary_split"
	// RuleOrdinalRating marks the template field whose identifier embeds the rating.
	RuleOrdinalRating RuleKind = "ordinal_rating"
	// RuleMultiSelect marks one indexed template field per selected item.
	RuleMultiSelect RuleKind = "multi_select"
)

// DefaultMark is the literal text written into a template field to simulate a
// checked state. The external templates model marks as overlaid text, not as
// true checkbox toggles.
const DefaultMark = "X"

// Rule is one tagged-variant mapping rule. Which fields are meaningful
// depends on Kind; the zero values of the rest are ignored.
type Rule struct {
	Kind    RuleKind
	Logical string // key in the submission data

	// RuleDirectText
	FieldID string

	// RuleBinarySplit
	YesField string
	NoField  string

	// RuleOrdinalRating and RuleMultiSelect: printf pattern with one %d verb
	// producing the template field identifier.
	FieldPattern string
	Min, Max     int // RuleOrdinalRating bounds, inclusive

	// RuleMultiSelect: ordered item list defining the 1-based field index of
	// each selectable item, and the mark text to write.
	Items []string
	Mark  string
}

// Entry is the registry record for one form type.
type Entry struct {
	FormType     string
	TemplateFile string
	Rules        []Rule
	// Defaults is the canned-default table consumed by normalize.Merge.
	Defaults map[string]string
	// Flatten locks all fields after filling so the output is a static
	// rendering. A few form types skip this because downstream tooling
	// amends the document programmatically.
	Flatten bool
}

// UnsupportedFormTypeError indicates a submission named a form type with no
// registry entry. Fatal for that single fill, never retried.
type UnsupportedFormTypeError struct {
	FormType string
}

func (e *UnsupportedFormTypeError) Error() string {
	return fmt.Sprintf("unsupported form type %q", e.FormType)
}

// Registry is the immutable set of form-type entries.
type Registry struct {
	entries map[string]*Entry
}

// New returns a registry seeded with the built-in form-type tables.
func New() *Registry {
	r := &Registry{entries: make(map[string]*Entry)}
	for _, e := range builtinEntries() {
		r.entries[e.FormType] = e
	}
	return r
}

// Lookup returns the entry for formType.
func (r *Registry) Lookup(formType string) (*Entry, error) {
	entry, ok := r.entries[formType]
	if !ok {
		return nil, &UnsupportedFormTypeError{FormType: formType}
	}
	return entry, nil
}

// Supports reports whether formType has a registry entry.
func (r *Registry) Supports(formType string) bool {
	_, ok := r.entries[formType]
	return ok
}

// FormTypes returns all registered form-type identifiers, sorted.
func (r *Registry) FormTypes() []string {
	types := make([]string, 0, len(r.entries))
	for ft := range r.entries {
		types = append(types, ft)
	}
	sort.Strings(types)
	return types
}
