package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

type RuleScope string

const (
	RuleScopeOrder RuleScope = "order"
	RuleScopeItem  RuleScope = "item"
)

// UseRule is the discount-rule union: exactly FixedAmountRule or
// PercentOffRule. The sealed method keeps the variant set closed so a
// type switch over UseRule is exhaustive.
type UseRule interface {
	RuleScope() RuleScope
	RuleItemIDs() []string
	RuleMinSubtotalCents() int64
	sealedRule()
}

type FixedAmountRule struct {
	Scope            RuleScope
	ItemIDs          []string
	AmountCents      int64
	MinSubtotalCents int64
}

func (r FixedAmountRule) RuleScope() RuleScope         { return r.Scope }
func (r FixedAmountRule) RuleItemIDs() []string        { return r.ItemIDs }
func (r FixedAmountRule) RuleMinSubtotalCents() int64  { return r.MinSubtotalCents }
func (FixedAmountRule) sealedRule() {}

type PercentOffRule struct {
	Scope            RuleScope
	ItemIDs          []string
	PercentOff       int
	MinSubtotalCents int64
}

func (r PercentOffRule) RuleScope() RuleScope        { return r.Scope }
func (r PercentOffRule) RuleItemIDs() []string       { return r.ItemIDs }
func (r PercentOffRule) RuleMinSubtotalCents() int64 { return r.MinSubtotalCents }
func (PercentOffRule) sealedRule() {}

// FieldError reports a validation failure against a single document field
// so callers can render per-field messages.
type FieldError struct {
	Field   string
	Code    string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Code)
}

func NewFieldError(field, code, message string) *FieldError {
	return &FieldError{Field: field, Code: code, Message: message}
}

// ParseUseRule validates a discount-rule document and returns the typed
// variant. Cross-field constraint: scope=item requires a non-empty
// item_ids list, scope=order forbids one.
func ParseUseRule(doc map[string]any) (UseRule, error) {
	if len(doc) == 0 {
		return nil, NewFieldError("use_rule", "required", "use rule document is required")
	}

	ruleType, ok := docString(doc, "type")
	if !ok || ruleType == "" {
		return nil, NewFieldError("use_rule.type", "required", "rule type is required")
	}
	ruleType = strings.ToLower(ruleType)

	scope, err := parseScope(doc)
	if err != nil {
		return nil, err
	}

	itemIDs, err := parseItemIDs(doc)
	if err != nil {
		return nil, err
	}
	if scope == RuleScopeItem && len(itemIDs) == 0 {
		return nil, NewFieldError("use_rule.item_ids", "required_for_item_scope", "item-scoped rules must list at least one item")
	}
	if scope == RuleScopeOrder && len(itemIDs) > 0 {
		return nil, NewFieldError("use_rule.item_ids", "forbidden_for_order_scope", "order-scoped rules must not list items")
	}

	minSubtotal, err := parseMinSubtotal(doc)
	if err != nil {
		return nil, err
	}

	switch ruleType {
	case "fixed_amount":
		amount, ok := docInt(doc, "amount_cents")
		if !ok || amount <= 0 {
			return nil, NewFieldError("use_rule.amount_cents", "positive_integer_required", "amount_cents must be a positive integer")
		}
		return FixedAmountRule{
			Scope:            scope,
			ItemIDs:          itemIDs,
			AmountCents:      amount,
			MinSubtotalCents: minSubtotal,
		}, nil
	case "percent_off":
		percent, ok := docInt(doc, "percent_off")
		if !ok || percent < 1 || percent > 100 {
			return nil, NewFieldError("use_rule.percent_off", "out_of_range", "percent_off must be an integer between 1 and 100")
		}
		return PercentOffRule{
			Scope:            scope,
			ItemIDs:          itemIDs,
			PercentOff:       int(percent),
			MinSubtotalCents: minSubtotal,
		}, nil
	default:
		return nil, NewFieldError("use_rule.type", "unknown_type", fmt.Sprintf("unknown rule type %q", ruleType))
	}
}

func parseScope(doc map[string]any) (RuleScope, error) {
	raw, ok := docString(doc, "scope")
	if !ok || raw == "" {
		return "", NewFieldError("use_rule.scope", "required", "scope is required")
	}
	switch RuleScope(strings.ToLower(raw)) {
	case RuleScopeOrder:
		return RuleScopeOrder, nil
	case RuleScopeItem:
		return RuleScopeItem, nil
	default:
		return "", NewFieldError("use_rule.scope", "unknown_scope", fmt.Sprintf("unknown scope %q", raw))
	}
}

func parseItemIDs(doc map[string]any) ([]string, error) {
	raw, present := doc["item_ids"]
	if !present || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, NewFieldError("use_rule.item_ids", "invalid_list", "item_ids must be a list of ids")
	}
	ids := make([]string, 0, len(list))
	for _, entry := range list {
		id, ok := entry.(string)
		if !ok || strings.TrimSpace(id) == "" {
			return nil, NewFieldError("use_rule.item_ids", "invalid_entry", "item_ids entries must be non-empty strings")
		}
		ids = append(ids, strings.TrimSpace(id))
	}
	return ids, nil
}

func parseMinSubtotal(doc map[string]any) (int64, error) {
	raw, present := doc["constraints"]
	if !present || raw == nil {
		return 0, nil
	}
	constraints, ok := raw.(map[string]any)
	if !ok {
		return 0, NewFieldError("use_rule.constraints", "invalid_document", "constraints must be an object")
	}
	if _, present := constraints["min_subtotal_cents"]; !present {
		return 0, nil
	}
	value, ok := docInt(constraints, "min_subtotal_cents")
	if !ok || value < 0 {
		return 0, NewFieldError("use_rule.constraints.min_subtotal_cents", "non_negative_integer_required", "min_subtotal_cents must be a non-negative integer")
	}
	return value, nil
}

func docString(doc map[string]any, key string) (string, bool) {
	raw, present := doc[key]
	if !present {
		return "", false
	}
	value, ok := raw.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// docInt accepts the numeric shapes a JSON document can carry: float64
// from plain unmarshalling and json.Number from documents read back out
// of storage. Fractional values are rejected rather than truncated.
func docInt(doc map[string]any, key string) (int64, bool) {
	raw, present := doc[key]
	if !present {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
