package mapping

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/certfill/internal/registry"
)

func splitEntry() *registry.Entry {
	return &registry.Entry{
		FormType: "test-form",
		Rules: []registry.Rule{
			{Kind: registry.RuleBinarySplit, Logical: "excess", YesField: "excessYes", NoField: "excessNo"},
		},
	}
}

func TestBinarySplitExhaustiveAndExclusive(t *testing.T) {
	entry := splitEntry()

	yesInputs := []any{"yes", "Yes", "y", "Y", "YES"}
	noInputs := []any{"no", "No", "n", "N", "NO"}

	for _, in := range yesInputs {
		writes := Evaluate(entry, map[string]any{"excess": in})
		require.Len(t, writes, 1, "input %v", in)
		assert.Equal(t, "excessYes", writes[0].FieldID)
		assert.Equal(t, registry.DefaultMark, writes[0].Value)
	}
	for _, in := range noInputs {
		writes := Evaluate(entry, map[string]any{"excess": in})
		require.Len(t, writes, 1, "input %v", in)
		assert.Equal(t, "excessNo", writes[0].FieldID)
	}
}

func TestBinarySplitUnrecognizedIsNoOp(t *testing.T) {
	entry := splitEntry()

	for _, in := range []any{"maybe", "", "N/A", "undefined", 3, nil, true} {
		writes := Evaluate(entry, map[string]any{"excess": in})
		assert.Empty(t, writes, "input %v", in)
	}
}

func TestOrdinalRatingRange(t *testing.T) {
	entry := &registry.Entry{
		Rules: []registry.Rule{
			{Kind: registry.RuleOrdinalRating, Logical: "rating", FieldPattern: "rating=%d", Min: 1, Max: 10},
		},
	}

	for r := 1; r <= 10; r++ {
		writes := Evaluate(entry, map[string]any{"rating": r})
		require.Len(t, writes, 1, "rating %d", r)
		assert.Equal(t, fmt.Sprintf("rating=%d", r), writes[0].FieldID)
	}

	for _, in := range []any{0, 11, -1, "eleven", 4.5, nil} {
		writes := Evaluate(entry, map[string]any{"rating": in})
		assert.Empty(t, writes, "input %v", in)
	}
}

func TestOrdinalRatingAcceptsNumericStringsAndFloats(t *testing.T) {
	entry := &registry.Entry{
		Rules: []registry.Rule{
			{Kind: registry.RuleOrdinalRating, Logical: "rating", FieldPattern: "rating=%d", Min: 1, Max: 10},
		},
	}

	writes := Evaluate(entry, map[string]any{"rating": "7"})
	require.Len(t, writes, 1)
	assert.Equal(t, "rating=7", writes[0].FieldID)

	// JSON decoding delivers numbers as float64.
	writes = Evaluate(entry, map[string]any{"rating": float64(3)})
	require.Len(t, writes, 1)
	assert.Equal(t, "rating=3", writes[0].FieldID)
}

func TestMultiSelectIndexing(t *testing.T) {
	entry := &registry.Entry{
		Rules: []registry.Rule{
			{
				Kind: registry.RuleMultiSelect, Logical: "areas", FieldPattern: "area%d", Mark: "X",
				Items: []string{"roof", "eaves", "vents"},
			},
		},
	}

	writes := Evaluate(entry, map[string]any{"areas": []string{"vents", "roof"}})
	require.Len(t, writes, 2)
	assert.Equal(t, "area3", writes[0].FieldID)
	assert.Equal(t, "area1", writes[1].FieldID)
	for _, w := range writes {
		assert.Equal(t, "X", w.Value)
	}
}

func TestMultiSelectUnknownItemsSkipped(t *testing.T) {
	entry := &registry.Entry{
		Rules: []registry.Rule{
			{
				Kind: registry.RuleMultiSelect, Logical: "areas", FieldPattern: "area%d", Mark: "X",
				Items: []string{"roof", "eaves"},
			},
		},
	}

	writes := Evaluate(entry, map[string]any{"areas": []any{"chimney", "eaves", 12}})
	require.Len(t, writes, 1)
	assert.Equal(t, "area2", writes[0].FieldID)
}

func TestDirectTextSkipsUnprintableValues(t *testing.T) {
	entry := &registry.Entry{
		Rules: []registry.Rule{
			{Kind: registry.RuleDirectText, Logical: "cname", FieldID: "ClientName"},
			{Kind: registry.RuleDirectText, Logical: "notes", FieldID: "Notes"},
		},
	}

	writes := Evaluate(entry, map[string]any{
		"cname": "Jane Doe",
		"notes": "N/A",
	})
	require.Len(t, writes, 1)
	assert.Equal(t, "ClientName", writes[0].FieldID)
	assert.Equal(t, "Jane Doe", writes[0].Value)
}

func TestEvaluateMissingKeysProduceNoWrites(t *testing.T) {
	entry := splitEntry()
	assert.Empty(t, Evaluate(entry, map[string]any{}))
	assert.Empty(t, Evaluate(entry, nil))
}
