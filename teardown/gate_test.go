package teardown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"profile_teardown/model"
)

func goodFields() model.VerdictFields {
	return model.VerdictFields{
		PrimaryStory:       "A builder who ships products for small teams",
		ActualSignal:       "A list of job titles with no point of view",
		CoreGap:            "The headline names roles instead of the problem solved",
		Consequence:        "Recruiters skim it and miss the product work entirely",
		OneSentenceVerdict: "All credentials, zero reason to keep reading.",
	}
}

func TestQualityGatePassesSpecificVerdict(t *testing.T) {
	gate := NewQualityGate(DefaultDiagnosisConfig())
	assert.Empty(t, gate.Check(goodFields()))
}

func TestQualityGateIssues(t *testing.T) {
	gate := NewQualityGate(DefaultDiagnosisConfig())

	tests := []struct {
		name   string
		mutate func(*model.VerdictFields)
		want   string
	}{
		{
			name:   "banned phrase in any field",
			mutate: func(f *model.VerdictFields) { f.ActualSignal = "Honestly it Looks Good overall" },
			want:   "Contains banned phrase: 'looks good'",
		},
		{
			name: "verdict too long",
			mutate: func(f *model.VerdictFields) {
				f.OneSentenceVerdict = strings.TrimSpace(strings.Repeat("word ", 26))
			},
			want: "Verdict too long (26 words, max 25)",
		},
		{
			name:   "hedging opener",
			mutate: func(f *model.VerdictFields) { f.OneSentenceVerdict = "Perhaps the headline is too vague." },
			want:   "Verdict starts weak: 'perhaps'",
		},
		{
			name:   "generic gap",
			mutate: func(f *model.VerdictFields) { f.CoreGap = "The about section needs improvement" },
			want:   "Core gap is generic: 'needs improvement'",
		},
		{
			name:   "consequence without cost",
			mutate: func(f *model.VerdictFields) { f.Consequence = "The profile is somewhat unclear" },
			want:   "Consequence doesn't mention a real cost/loss",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := goodFields()
			tt.mutate(&f)
			assert.Equal(t, []string{tt.want}, gate.Check(f))
		})
	}
}

func TestQualityGateExactly25WordsPasses(t *testing.T) {
	gate := NewQualityGate(DefaultDiagnosisConfig())
	f := goodFields()
	f.OneSentenceVerdict = strings.TrimSpace(strings.Repeat("word ", 25))
	assert.Empty(t, gate.Check(f))
}

func TestQualityGateUsesInjectedVocabulary(t *testing.T) {
	cfg := DefaultDiagnosisConfig()
	cfg.BannedPhrases = []string{"zero reason"}
	gate := NewQualityGate(cfg)
	assert.Equal(t, []string{"Contains banned phrase: 'zero reason'"}, gate.Check(goodFields()))
}

// Every verdict the gate accepts satisfies the banned-phrase, length and
// cost-verb rules.
func TestQualityGateAcceptedVerdictsHoldInvariants(t *testing.T) {
	cfg := DefaultDiagnosisConfig()
	gate := NewQualityGate(cfg)

	verdicts := []string{
		"All credentials, zero reason to keep reading.",
		"Looks good on paper, says nothing in person.",
		"Maybe a great engineer, but nobody would know.",
		strings.Repeat("long ", 30),
	}
	consequences := []string{
		"People scroll past",
		"Nothing happens",
		"Clients won't call back",
		"It is a value proposition problem so they skip it",
	}
	for _, v := range verdicts {
		for _, c := range consequences {
			f := goodFields()
			f.OneSentenceVerdict = v
			f.Consequence = c
			if len(gate.Check(f)) > 0 {
				continue
			}
			all := strings.ToLower(f.Joined())
			for _, p := range cfg.BannedPhrases {
				assert.NotContains(t, all, p)
			}
			assert.LessOrEqual(t, len(strings.Fields(f.OneSentenceVerdict)), 25)
			assert.True(t, containsAny(strings.ToLower(f.Consequence), cfg.CostWords))
		}
	}
}
