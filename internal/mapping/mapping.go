// Package mapping evaluates registry rule tables against merged submission
// data, producing the list of template field writes for one document.
//
// Evaluation is pure: it never touches a PDF, which keeps the yes/no, rating
// and multi-select semantics testable without any live template.
package mapping

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fieldserve/certfill/internal/normalize"
	"github.com/fieldserve/certfill/internal/registry"
)

// FieldWrite is one pending write of literal text into a named template field.
type FieldWrite struct {
	FieldID string
	Value   string
	Kind    registry.RuleKind
}

// Evaluate applies every rule of the entry to the merged data. Unrecognized
// or out-of-range values produce no write for their rule; they are expected
// from field trials and are not errors.
func Evaluate(entry *registry.Entry, data map[string]any) []FieldWrite {
	var writes []FieldWrite
	for _, rule := range entry.Rules {
		value, present := data[rule.Logical]
		if !present {
			continue
		}

		switch rule.Kind {
		case registry.RuleDirectText:
			if text := normalize.SafeText(value); text != "" {
				writes = append(writes, FieldWrite{FieldID: rule.FieldID, Value: text, Kind: rule.Kind})
			}
		case registry.RuleBinarySplit:
			writes = append(writes, evalBinarySplit(rule, value)...)
		case registry.RuleOrdinalRating:
			writes = append(writes, evalOrdinalRating(rule, value)...)
		case registry.RuleMultiSelect:
			writes = append(writes, evalMultiSelect(rule, value)...)
		}
	}
	return writes
}

func evalBinarySplit(rule registry.Rule, value any) []FieldWrite {
	switch strings.ToLower(normalize.SafeText(value)) {
	case "yes", "y":
		return []FieldWrite{{FieldID: rule.YesField, Value: registry.DefaultMark, Kind: rule.Kind}}
	case "no", "n":
		return []FieldWrite{{FieldID: rule.NoField, Value: registry.DefaultMark, Kind: rule.Kind}}
	}
	return nil
}

func evalOrdinalRating(rule registry.Rule, value any) []FieldWrite {
	r, ok := asInt(value)
	if !ok || r < rule.Min || r > rule.Max {
		return nil
	}
	return []FieldWrite{{
		FieldID: fmt.Sprintf(rule.FieldPattern, r),
		Value:   registry.DefaultMark,
		Kind:    rule.Kind,
	}}
}

func evalMultiSelect(rule registry.Rule, value any) []FieldWrite {
	index := make(map[string]int, len(rule.Items))
	for i, item := range rule.Items {
		index[item] = i + 1
	}

	var writes []FieldWrite
	for _, selected := range asStrings(value) {
		i, ok := index[selected]
		if !ok {
			continue
		}
		writes = append(writes, FieldWrite{
			FieldID: fmt.Sprintf(rule.FieldPattern, i),
			Value:   rule.Mark,
			Kind:    rule.Kind,
		})
	}
	return writes
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if math.IsNaN(v) || v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func asStrings(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
		return items
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}
