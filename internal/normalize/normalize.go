// Package normalize prepares raw wizard submission data for template filling.
//
// Field trials regularly produce submissions with missing or junk values, and
// the business requirement is that a certificate is always presentable for
// human review. Merge backfills every expected key with a canned default so
// downstream filling never has to reason about absent data; SafeText coerces
// arbitrary submitted values into printable text.
package normalize

import (
	"math"
	"strconv"
	"strings"
)

// NotAvailable is the junk marker the wizard frontend writes for skipped
// questions. It is treated the same as an absent value.
const NotAvailable = "N/A"

// Merge returns a copy of data in which every key of the defaults table has a
// non-empty printable value. Keys already carrying a usable value keep it
// verbatim; everything else receives the canned default. Keys outside the
// defaults table pass through untouched.
//
// Callers that need to distinguish placeholder from real data must inspect
// the original submission, not the merged result.
func Merge(data map[string]any, defaults map[string]string) map[string]any {
	merged := make(map[string]any, len(data)+len(defaults))
	for k, v := range data {
		merged[k] = v
	}
	for key, fallback := range defaults {
		if v, ok := merged[key]; ok && SafeText(v) != "" {
			continue
		}
		merged[key] = fallback
	}
	return merged
}

// SafeText coerces a submitted value to printable text. Values that would
// render as noise in a certificate (nil, the literal strings "undefined" and
// "N/A", NaN, nested objects) become the empty string instead of their
// literal representation.
func SafeText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(val)
		if s == "undefined" || s == NotAvailable {
			return ""
		}
		return s
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return SafeText(float64(val))
	case []string:
		return joinNonEmpty(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, SafeText(item))
		}
		return joinNonEmpty(parts)
	default:
		// Maps, structs and anything else structured would print as Go
		// syntax, which must never leak into a certificate.
		return ""
	}
}

func joinNonEmpty(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" && p != "undefined" && p != NotAvailable {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
