package teardown

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"profile_teardown/generator"
	"profile_teardown/model"
	"profile_teardown/ocr"
)

// MaxEvidence is the hard ceiling on evidence items per content item.
const MaxEvidence = 3

const (
	SourceModel    = "model"
	SourceFallback = "fallback"
)

type EvidenceConfig struct {
	MaxResults       int              `json:"max_results"`
	MaxCandidates    int              `json:"max_candidates"`
	FallbackMinWidth int              `json:"fallback_min_width"`
	CaptionChars     int              `json:"caption_chars"`
	Grouping         ocr.GroupOptions `json:"grouping"`
}

func DefaultEvidenceConfig() EvidenceConfig {
	return EvidenceConfig{
		MaxResults:       2,
		MaxCandidates:    30,
		FallbackMinWidth: 50,
		CaptionChars:     35,
		Grouping:         ocr.CandidateOptions(),
	}
}

// EvidenceSelector points the verdict at OCR-located phrases. The model only
// picks candidate numbers, so every box comes from a real text line.
type EvidenceSelector struct {
	cfg       EvidenceConfig
	agent     *generator.Agent
	extractor ocr.Extractor
	logger    *zap.Logger
}

// NewEvidenceSelector builds a selector. A nil agent selects with the
// deterministic fallback only; a nil extractor requires callers to pass
// elements.
func NewEvidenceSelector(cfg EvidenceConfig, agent *generator.Agent, extractor ocr.Extractor, logger *zap.Logger) *EvidenceSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxResults < 1 {
		cfg.MaxResults = 1
	}
	if cfg.MaxResults > MaxEvidence {
		cfg.MaxResults = MaxEvidence
	}
	if cfg.MaxCandidates < 1 {
		cfg.MaxCandidates = 30
	}
	return &EvidenceSelector{cfg: cfg, agent: agent, extractor: extractor, logger: logger}
}

type selectionAnswer struct {
	Selected []int `json:"selected"`
}

// Select never fails: a broken selection call falls back to the widest-enough
// lines in document order, and no candidates at all yields a weak result.
// elements are reused when non-nil, otherwise OCR runs again.
func (s *EvidenceSelector) Select(ctx context.Context, imagePath string, verdict model.Verdict, elements []model.OCRElement) model.EvidenceResult {
	if elements == nil && s.extractor != nil {
		var err error
		elements, err = s.extractor.Extract(ctx, imagePath)
		if err != nil {
			s.logger.Warn("evidence ocr failed", zap.String("image", imagePath), zap.Error(err))
		}
	}

	groups := ocr.Group(elements, s.cfg.Grouping)
	candidates := groups
	if len(candidates) > s.cfg.MaxCandidates {
		candidates = candidates[:s.cfg.MaxCandidates]
	}

	var (
		picked []model.TextGroup
		why    []string
		source = SourceModel
	)
	if len(candidates) > 0 {
		picked, why = s.ask(ctx, verdict, candidates)
	}
	if len(picked) == 0 {
		source = SourceFallback
		picked, why = s.fallback(groups)
	}

	caption := s.caption(verdict.OneSentenceVerdict)
	res := model.EvidenceResult{Source: source, Evidence: []model.EvidenceItem{}}
	for i, g := range picked {
		res.Evidence = append(res.Evidence, model.EvidenceItem{
			ID:               i + 1,
			EditorialCaption: caption,
			BoundingBox:      g.Box,
			WhyItMatters:     why[i],
		})
	}
	res.VerdictSupported = len(res.Evidence) > 0
	res.EvidenceStrength = model.EvidenceWeak
	if res.VerdictSupported {
		res.EvidenceStrength = model.EvidenceStrong
	}
	return res
}

// ask returns the model's picks in the order it gave them. Out-of-range and
// repeated ids are dropped.
func (s *EvidenceSelector) ask(ctx context.Context, verdict model.Verdict, candidates []model.TextGroup) ([]model.TextGroup, []string) {
	if s.agent == nil {
		return nil, nil
	}
	prompt := generator.BuildSelectionPrompt(verdict.OneSentenceVerdict, verdict.CoreGap, candidates, s.cfg.MaxResults)
	var ans selectionAnswer
	raw, err := s.agent.Generate(ctx, prompt, &ans)
	if err != nil {
		s.logger.Warn("evidence selection failed, using fallback", zap.Error(err), zap.String("raw", raw))
		return nil, nil
	}

	var (
		picked []model.TextGroup
		why    []string
		seen   = map[int]bool{}
	)
	for _, id := range ans.Selected {
		if len(picked) == s.cfg.MaxResults {
			break
		}
		if id < 1 || id > len(candidates) || seen[id] {
			continue
		}
		seen[id] = true
		picked = append(picked, candidates[id-1])
		why = append(why, fmt.Sprintf("Matches: Element %d", id))
	}
	if len(picked) == 0 {
		s.logger.Warn("evidence selection returned no usable ids, using fallback", zap.Ints("selected", ans.Selected))
	}
	return picked, why
}

func (s *EvidenceSelector) fallback(groups []model.TextGroup) ([]model.TextGroup, []string) {
	var (
		picked []model.TextGroup
		why    []string
	)
	for _, g := range groups {
		if len(picked) == s.cfg.MaxResults {
			break
		}
		if g.Box.Width() > s.cfg.FallbackMinWidth {
			picked = append(picked, g)
			why = append(why, "Fallback")
		}
	}
	return picked, why
}

func (s *EvidenceSelector) caption(verdict string) string {
	r := []rune(verdict)
	switch {
	case len(r) == 0:
		return "Issue here"
	case s.cfg.CaptionChars > 0 && len(r) > s.cfg.CaptionChars:
		return string(r[:s.cfg.CaptionChars]) + "..."
	default:
		return verdict
	}
}
