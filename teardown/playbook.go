package teardown

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"profile_teardown/generator"
	"profile_teardown/model"
)

type PlaybookConfig struct {
	BannedPhrases   []string `json:"banned_phrases"`
	TranscriptLimit int      `json:"transcript_limit"`
	PadBullet       string   `json:"pad_bullet"`
}

func DefaultPlaybookConfig() PlaybookConfig {
	return PlaybookConfig{
		BannedPhrases: []string{
			"consider adding",
			"you might want to",
			"try adding",
			"add a hook",
			"improve engagement",
			"boost your",
			"optimize your",
			"level up",
			"best practice",
			"industry standard",
			"thought leader",
			"value proposition",
			"personal brand",
			"target audience",
		},
		TranscriptLimit: 2000,
		PadBullet:       "See above for details",
	}
}

type PlaybookGenerator struct {
	cfg    PlaybookConfig
	agent  *generator.Agent
	logger *zap.Logger
}

func NewPlaybookGenerator(cfg PlaybookConfig, agent *generator.Agent, logger *zap.Logger) (*PlaybookGenerator, error) {
	if agent == nil {
		return nil, fmt.Errorf("playbook: agent is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PadBullet == "" {
		cfg.PadBullet = "See above for details"
	}
	return &PlaybookGenerator{cfg: cfg, agent: agent, logger: logger}, nil
}

// Generate makes one structured call. It never fails: an answer that cannot
// be decoded yields a minimal playbook with ParseError set.
func (g *PlaybookGenerator) Generate(ctx context.Context, verdict model.Verdict, evidence model.EvidenceResult, ct model.ContentType) model.Playbook {
	captions := make([]string, 0, len(evidence.Evidence))
	for _, e := range evidence.Evidence {
		captions = append(captions, e.EditorialCaption)
	}
	prompt := generator.BuildPlaybookPrompt(generator.PlaybookInput{
		ContentType:     ct,
		Verdict:         verdict,
		Captions:        captions,
		TranscriptLimit: g.cfg.TranscriptLimit,
	}, g.cfg.BannedPhrases)

	var pb model.Playbook
	raw, err := g.agent.Generate(ctx, prompt, &pb)
	if err != nil {
		g.logger.Warn("playbook generation failed", zap.Error(err), zap.Int("raw_len", len(raw)))
		pb = model.Playbook{
			EditorialVerdict:  verdict.OneSentenceVerdict,
			WhyItFails:        []string{"Unable to generate detailed analysis"},
			TheFix:            "Regenerate playbook",
			ReusablePrinciple: "Unable to generate",
			ParseError:        true,
		}
	}
	if strings.TrimSpace(pb.EditorialVerdict) == "" {
		pb.EditorialVerdict = verdict.OneSentenceVerdict
	}
	pb.ParseError = pb.ParseError || err != nil
	return g.validate(pb)
}

// validate forces exactly three bullets and attaches banned-phrase warnings.
// Warnings never block.
func (g *PlaybookGenerator) validate(pb model.Playbook) model.Playbook {
	pb.WhyItFails = fixLength(pb.WhyItFails, model.WhyItFailsLen, g.cfg.PadBullet)

	pb.QualityWarnings = nil
	body, err := json.Marshal(pb)
	if err != nil {
		return pb
	}
	text := strings.ToLower(string(body))
	for _, p := range g.cfg.BannedPhrases {
		if strings.Contains(text, strings.ToLower(p)) {
			pb.QualityWarnings = append(pb.QualityWarnings, "Contains banned phrase: "+p)
		}
	}
	return pb
}

func fixLength(items []string, n int, pad string) []string {
	out := make([]string, 0, n)
	for _, it := range items {
		if len(out) == n {
			break
		}
		out = append(out, it)
	}
	for len(out) < n {
		out = append(out, pad)
	}
	return out
}

const (
	heavyRule = "═══════════════════════════════════════════════"
	lightRule = "───────────────────────────────────────────────"
)

// FormatText renders the plain-text playbook deliverable.
func FormatText(pb model.Playbook) string {
	var sb strings.Builder
	section := func(rule, title string) {
		sb.WriteString(rule + "\n" + title + "\n" + rule + "\n")
	}

	section(heavyRule, "EDITORIAL VERDICT")
	fmt.Fprintf(&sb, "\n\"%s\"\n\n", orNA(pb.EditorialVerdict))

	section(lightRule, "WHY THIS FAILS")
	for _, b := range pb.WhyItFails {
		fmt.Fprintf(&sb, "• %s\n", b)
	}
	sb.WriteString("\n")

	section(lightRule, "THE FIX")
	fmt.Fprintf(&sb, "\n%s\n\n", orNA(pb.TheFix))

	section(lightRule, "BEFORE → AFTER")
	if h := pb.BeforeAfter.Headline; h.Before != "" {
		fmt.Fprintf(&sb, "\n[HEADLINE]\nBefore: \"%s\"\nAfter:  \"%s\"\n", h.Before, h.After)
	}
	if p := pb.BeforeAfter.Paragraph; p.Before != "" {
		fmt.Fprintf(&sb, "\n[KEY SECTION]\nBefore: \"%s\"\nAfter:  \"%s\"\n", p.Before, p.After)
	}
	sb.WriteString("\n")

	section(lightRule, "REUSABLE PRINCIPLE")
	fmt.Fprintf(&sb, "\n\"%s\"\n", orNA(pb.ReusablePrinciple))

	if len(pb.QualityWarnings) > 0 {
		sb.WriteString("\n")
		section(lightRule, "QUALITY WARNINGS")
		for _, w := range pb.QualityWarnings {
			fmt.Fprintf(&sb, "! %s\n", w)
		}
	}
	return sb.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
