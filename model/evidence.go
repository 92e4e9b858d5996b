package model

type EvidenceStrength string

const (
	EvidenceStrong EvidenceStrength = "strong"
	EvidenceWeak   EvidenceStrength = "weak"
)

// EvidenceItem points at an exact OCR-located span on the isolated image.
type EvidenceItem struct {
	ID               int    `json:"id"`
	EditorialCaption string `json:"editorial_caption"`
	BoundingBox      Box    `json:"bounding_box"`
	WhyItMatters     string `json:"why_it_matters"`
}

// EvidenceResult is the evidence stage output for one item.
type EvidenceResult struct {
	Evidence         []EvidenceItem   `json:"evidence"`
	EvidenceStrength EvidenceStrength `json:"evidence_strength"`
	VerdictSupported bool             `json:"verdict_supported"`
	Source           string           `json:"source"`
}
