package model

import "strings"

// VerdictFields are the five fields the diagnosis model produces.
type VerdictFields struct {
	PrimaryStory       string `json:"primary_story"`
	ActualSignal       string `json:"actual_signal"`
	CoreGap            string `json:"core_gap"`
	Consequence        string `json:"consequence"`
	OneSentenceVerdict string `json:"one_sentence_verdict"`
}

// Joined concatenates every field, used for phrase scans.
func (f VerdictFields) Joined() string {
	return strings.Join([]string{
		f.PrimaryStory,
		f.ActualSignal,
		f.CoreGap,
		f.Consequence,
		f.OneSentenceVerdict,
	}, " ")
}

// Verdict is the diagnosis for one ContentItem. Regeneration replaces it.
type Verdict struct {
	VerdictFields
	OCRText           string   `json:"ocr_text"`
	PassedQualityGate bool     `json:"passed_quality_gate"`
	QualityIssues     []string `json:"quality_issues"`
	Attempts          int      `json:"attempts"`
}
