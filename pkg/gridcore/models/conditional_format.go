package models

// RuleKind selects how a conditional format rule is matched.
type RuleKind string

const (
	RuleCellValue    RuleKind = "cellValue"
	RuleTextContains RuleKind = "textContains"
	RuleEmpty        RuleKind = "empty"
)

// Rule is the predicate of a conditional format.
type Rule struct {
	Kind RuleKind `json:"kind"`
	// Operator is one of >, >=, <, <=, =, <> for cellValue rules.
	Operator string `json:"operator,omitempty"`
	// Value is the comparison operand.
	Value string `json:"value,omitempty"`
}

// ConditionalFormat applies Style to the cells of Range matching Rule.
type ConditionalFormat struct {
	ID    string     `json:"id"`
	Range string     `json:"range"`
	Rule  Rule       `json:"rule"`
	Style *TextStyle `json:"style,omitempty"`
}
