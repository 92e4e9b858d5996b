package model

// QualityReport aggregates the whole run.
type QualityReport struct {
	Score    int      `json:"score"`
	Passed   bool     `json:"passed"`
	Checks   []string `json:"checks"`
	Warnings []string `json:"warnings"`
}
