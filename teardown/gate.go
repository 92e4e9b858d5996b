package teardown

import (
	"fmt"
	"strings"

	"profile_teardown/model"
)

// DiagnosisConfig holds the quality gate vocabulary and the retry bound.
type DiagnosisConfig struct {
	BannedPhrases   []string `json:"banned_phrases"`
	MaxVerdictWords int      `json:"max_verdict_words"`
	WeakStarts      []string `json:"weak_starts"`
	GenericGaps     []string `json:"generic_gaps"`
	CostWords       []string `json:"cost_words"`
	MaxAttempts     int      `json:"max_attempts"`
	// VisionTranscript transcribes with a vision model instead of OCR lines.
	VisionTranscript bool `json:"vision_transcript"`
}

func DefaultDiagnosisConfig() DiagnosisConfig {
	return DiagnosisConfig{
		BannedPhrases: []string{
			"no change needed",
			"looks good",
			"well done",
			"great job",
			"add a hook",
			"improve engagement",
			"consider adding",
			"you might want to",
			"try adding",
			"boost your",
			"optimize your",
			"enhance your",
			"level up",
			"take it to the next level",
			"pro tip",
			"best practice",
			"industry standard",
			"thought leader",
			"value proposition",
		},
		MaxVerdictWords: 25,
		WeakStarts:      []string{"this could", "maybe", "perhaps", "it seems", "it appears", "potentially"},
		GenericGaps:     []string{"needs improvement", "could be better", "lacks clarity", "not optimized"},
		CostWords:       []string{"miss", "lose", "skip", "ignore", "scroll", "forget", "overlook", "pass", "won't", "don't"},
		MaxAttempts:     3,
	}
}

// QualityGate is the fixed rule set a verdict must pass. Check has no side
// effects and never calls a model.
type QualityGate struct {
	cfg DiagnosisConfig
}

func NewQualityGate(cfg DiagnosisConfig) QualityGate {
	return QualityGate{cfg: cfg}
}

// Check returns every failing rule; an empty result means the verdict passed.
// Matching is case-insensitive substring matching.
func (g QualityGate) Check(f model.VerdictFields) []string {
	var issues []string

	all := strings.ToLower(f.Joined())
	for _, p := range g.cfg.BannedPhrases {
		if strings.Contains(all, strings.ToLower(p)) {
			issues = append(issues, fmt.Sprintf("Contains banned phrase: '%s'", p))
		}
	}

	if n := len(strings.Fields(f.OneSentenceVerdict)); g.cfg.MaxVerdictWords > 0 && n > g.cfg.MaxVerdictWords {
		issues = append(issues, fmt.Sprintf("Verdict too long (%d words, max %d)", n, g.cfg.MaxVerdictWords))
	}

	verdict := strings.ToLower(strings.TrimSpace(f.OneSentenceVerdict))
	for _, w := range g.cfg.WeakStarts {
		if strings.HasPrefix(verdict, strings.ToLower(w)) {
			issues = append(issues, fmt.Sprintf("Verdict starts weak: '%s'", w))
		}
	}

	gap := strings.ToLower(f.CoreGap)
	for _, p := range g.cfg.GenericGaps {
		if strings.Contains(gap, strings.ToLower(p)) {
			issues = append(issues, fmt.Sprintf("Core gap is generic: '%s'", p))
		}
	}

	if len(g.cfg.CostWords) > 0 && !containsAny(strings.ToLower(f.Consequence), g.cfg.CostWords) {
		issues = append(issues, "Consequence doesn't mention a real cost/loss")
	}
	return issues
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
