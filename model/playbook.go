package model

// Rewrite is one before/after pair.
type Rewrite struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

type BeforeAfter struct {
	Headline  Rewrite `json:"headline"`
	Paragraph Rewrite `json:"paragraph"`
}

// WhyItFailsLen is the fixed number of why_it_fails bullets.
const WhyItFailsLen = 3

// Playbook is the actionable deliverable for one item.
type Playbook struct {
	EditorialVerdict  string      `json:"editorial_verdict"`
	WhyItFails        []string    `json:"why_it_fails"`
	TheFix            string      `json:"the_fix"`
	BeforeAfter       BeforeAfter `json:"before_after"`
	ReusablePrinciple string      `json:"reusable_principle"`
	QualityWarnings   []string    `json:"quality_warnings,omitempty"`
	ParseError        bool        `json:"parse_error,omitempty"`
}
