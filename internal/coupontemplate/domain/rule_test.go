package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUseRule_FixedAmountOrderScope(t *testing.T) {
	rule, err := ParseUseRule(map[string]any{
		"type":         "fixed_amount",
		"scope":        "order",
		"amount_cents": float64(500),
	})
	require.NoError(t, err)

	fixed, ok := rule.(FixedAmountRule)
	require.True(t, ok)
	assert.Equal(t, RuleScopeOrder, fixed.Scope)
	assert.Equal(t, int64(500), fixed.AmountCents)
	assert.Empty(t, fixed.ItemIDs)
}

func TestParseUseRule_PercentOffItemScope(t *testing.T) {
	rule, err := ParseUseRule(map[string]any{
		"type":        "percent_off",
		"scope":       "item",
		"item_ids":    []any{"dish-1", "dish-2"},
		"percent_off": float64(20),
		"constraints": map[string]any{"min_subtotal_cents": float64(2000)},
	})
	require.NoError(t, err)

	percent, ok := rule.(PercentOffRule)
	require.True(t, ok)
	assert.Equal(t, RuleScopeItem, percent.Scope)
	assert.Equal(t, []string{"dish-1", "dish-2"}, percent.ItemIDs)
	assert.Equal(t, 20, percent.PercentOff)
	assert.Equal(t, int64(2000), percent.MinSubtotalCents)
}

func TestParseUseRule_ItemScopeRequiresItems(t *testing.T) {
	_, err := ParseUseRule(map[string]any{
		"type":         "fixed_amount",
		"scope":        "item",
		"amount_cents": float64(100),
	})
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "use_rule.item_ids", fieldErr.Field)
	assert.Equal(t, "required_for_item_scope", fieldErr.Code)
}

func TestParseUseRule_OrderScopeForbidsItems(t *testing.T) {
	_, err := ParseUseRule(map[string]any{
		"type":         "fixed_amount",
		"scope":        "order",
		"item_ids":     []any{"dish-1"},
		"amount_cents": float64(100),
	})
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "forbidden_for_order_scope", fieldErr.Code)
}

func TestParseUseRule_RejectsBadAmounts(t *testing.T) {
	cases := map[string]map[string]any{
		"zero amount": {
			"type": "fixed_amount", "scope": "order", "amount_cents": float64(0),
		},
		"negative amount": {
			"type": "fixed_amount", "scope": "order", "amount_cents": float64(-50),
		},
		"fractional amount": {
			"type": "fixed_amount", "scope": "order", "amount_cents": 12.5,
		},
		"percent zero": {
			"type": "percent_off", "scope": "order", "percent_off": float64(0),
		},
		"percent over hundred": {
			"type": "percent_off", "scope": "order", "percent_off": float64(101),
		},
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseUseRule(doc)
			var fieldErr *FieldError
			require.ErrorAs(t, err, &fieldErr)
		})
	}
}

func TestParseUseRule_StoredDocumentNumbers(t *testing.T) {
	// Documents read back from the database carry json.Number, not
	// float64; a stored rule must re-parse identically.
	rule, err := ParseUseRule(map[string]any{
		"type":         "fixed_amount",
		"scope":        "order",
		"amount_cents": json.Number("500"),
		"constraints":  map[string]any{"min_subtotal_cents": json.Number("2000")},
	})
	require.NoError(t, err)

	fixed, ok := rule.(FixedAmountRule)
	require.True(t, ok)
	assert.Equal(t, int64(500), fixed.AmountCents)
	assert.Equal(t, int64(2000), fixed.MinSubtotalCents)

	policy, err := ParseIssuePolicy(map[string]any{"expires_in_days": json.Number("14")})
	require.NoError(t, err)
	assert.Equal(t, 14, policy.ExpiresInDays)

	// Fractional stays rejected in this shape too.
	_, err = ParseUseRule(map[string]any{
		"type":         "fixed_amount",
		"scope":        "order",
		"amount_cents": json.Number("12.5"),
	})
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "use_rule.amount_cents", fieldErr.Field)
}

func TestParseUseRule_UnknownType(t *testing.T) {
	_, err := ParseUseRule(map[string]any{
		"type":  "bogo",
		"scope": "order",
	})
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "unknown_type", fieldErr.Code)
}

func TestParseUseRule_NegativeMinSubtotal(t *testing.T) {
	_, err := ParseUseRule(map[string]any{
		"type":         "fixed_amount",
		"scope":        "order",
		"amount_cents": float64(100),
		"constraints":  map[string]any{"min_subtotal_cents": float64(-1)},
	})
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "use_rule.constraints.min_subtotal_cents", fieldErr.Field)
}

func TestParseIssuePolicy_PreservesUnknownKeys(t *testing.T) {
	policy, err := ParseIssuePolicy(map[string]any{
		"mode":            "auto",
		"expires_in_days": float64(14),
		"preset":          "welcome-pack",
		"display_color":   "#ff6600",
	})
	require.NoError(t, err)

	assert.Equal(t, PolicyModeAuto, policy.Mode)
	assert.Equal(t, 14, policy.ExpiresInDays)
	assert.Equal(t, "welcome-pack", policy.Extra["preset"])
	assert.Equal(t, "#ff6600", policy.Extra["display_color"])
}

func TestParseIssuePolicy_RejectsBadExpiry(t *testing.T) {
	_, err := ParseIssuePolicy(map[string]any{"expires_in_days": float64(0)})
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "issue_policy.expires_in_days", fieldErr.Field)
}

func TestParseWindow_ReversedRange(t *testing.T) {
	_, _, err := ParseWindow("2026-06-01", "2026-05-01")
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "valid_to", fieldErr.Field)
	assert.Equal(t, "reversed_window", fieldErr.Code)
}

func TestParseWindow_AcceptsBothLayouts(t *testing.T) {
	from, to, err := ParseWindow("2026-05-01", "2026-06-01T12:00:00Z")
	require.NoError(t, err)
	require.NotNil(t, from)
	require.NotNil(t, to)
	assert.True(t, from.Before(*to))
}
