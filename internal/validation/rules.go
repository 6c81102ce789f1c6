package validation

import (
	"strings"

	"go.uber.org/multierr"

	"github.com/angelmondragon/quotation-engine/internal/pricing"
	pkgerrors "github.com/angelmondragon/quotation-engine/pkg/errors"
	"github.com/angelmondragon/quotation-engine/pkg/types"
)

// Rule identifies which pre-submission check failed.
type Rule string

const (
	RuleNoDescribedItem         Rule = "no_described_item"
	RuleNegativeAmount          Rule = "negative_amount"
	RuleMissingDescription      Rule = "missing_description"
	RuleDiscountExceedsSubtotal Rule = "discount_exceeds_subtotal"
	RuleNonPositiveTotal        Rule = "non_positive_total"
)

var ruleMessages = map[Rule]string{
	RuleNoDescribedItem:         "add a description to at least one line item",
	RuleNegativeAmount:          "line item quantity and unit price cannot be negative",
	RuleMissingDescription:      "every priced line item needs a description",
	RuleDiscountExceedsSubtotal: "discount cannot exceed the subtotal",
	RuleNonPositiveTotal:        "quote total must be greater than zero",
}

// Message is the user-facing text for the rule.
func (r Rule) Message() string {
	return ruleMessages[r]
}

// Violation is one failed check. ItemID is set for per-row rules.
type Violation struct {
	Rule    Rule   `json:"rule"`
	ItemID  string `json:"item_id,omitempty"`
	Message string `json:"message"`
}

func (v Violation) Error() string {
	if v.ItemID == "" {
		return string(v.Rule) + ": " + v.Message
	}
	return string(v.Rule) + " (" + v.ItemID + "): " + v.Message
}

// Check runs every rule and returns the failures in rule order.
func Check(items []types.LineItem, params types.QuoteParameters) []Violation {
	var violations []Violation

	described := false
	for _, item := range items {
		if hasDescription(item) {
			described = true
			break
		}
	}
	if !described {
		violations = append(violations, newViolation(RuleNoDescribedItem, ""))
	}

	for _, item := range items {
		if item.Quantity < 0 || item.UnitPrice < 0 {
			violations = append(violations, newViolation(RuleNegativeAmount, item.ID))
		}
	}

	for _, item := range items {
		if (item.Quantity != 0 || item.UnitPrice != 0) && !hasDescription(item) {
			violations = append(violations, newViolation(RuleMissingDescription, item.ID))
		}
	}

	totals := pricing.Totals(items, params, 0)
	if params.DiscountAmount > totals.Subtotal {
		violations = append(violations, newViolation(RuleDiscountExceedsSubtotal, ""))
	}
	if totals.Total <= 0 {
		violations = append(violations, newViolation(RuleNonPositiveTotal, ""))
	}

	return violations
}

// Validate returns nil when the quote may be submitted. Otherwise the error is a
// VALIDATION_ERROR whose message is the first failure and whose details list all of them.
func Validate(items []types.LineItem, params types.QuoteParameters) error {
	violations := Check(items, params)
	if len(violations) == 0 {
		return nil
	}
	var combined error
	for _, v := range violations {
		combined = multierr.Append(combined, v)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, combined, violations[0].Message).WithDetails(map[string]any{
		"violations": violations,
	})
}

// Violations extracts the ordered failures from an error returned by Validate.
func Violations(err error) []Violation {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		return nil
	}
	var out []Violation
	for _, e := range multierr.Errors(typed.Unwrap()) {
		if v, ok := e.(Violation); ok {
			out = append(out, v)
		}
	}
	return out
}

// FirstRule returns the first failed rule, or "" when err carries none.
func FirstRule(err error) Rule {
	violations := Violations(err)
	if len(violations) == 0 {
		return ""
	}
	return violations[0].Rule
}

func hasDescription(item types.LineItem) bool {
	return strings.TrimSpace(item.Description) != ""
}

func newViolation(rule Rule, itemID string) Violation {
	return Violation{Rule: rule, ItemID: itemID, Message: rule.Message()}
}
