package teardown

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profile_teardown/generator"
	"profile_teardown/model"
	"profile_teardown/ocr"
)

// pageElements lays out a nav bar, a short line and three content lines.
func pageElements() []model.OCRElement {
	return []model.OCRElement{
		{Text: "Home", X1: 10, Y1: 10, X2: 60, Y2: 30, Confidence: 90},
		{Text: "Hi", X1: 40, Y1: 80, X2: 80, Y2: 96, Confidence: 90},
		{Text: "Jane", X1: 40, Y1: 120, X2: 100, Y2: 144, Confidence: 95},
		{Text: "Doe", X1: 108, Y1: 121, X2: 160, Y2: 144, Confidence: 96},
		{Text: "Engineer", X1: 40, Y1: 170, X2: 140, Y2: 190, Confidence: 91},
		{Text: "Manager", X1: 150, Y1: 171, X2: 250, Y2: 190, Confidence: 92},
		{Text: "Experienced", X1: 40, Y1: 240, X2: 170, Y2: 260, Confidence: -1},
		{Text: "professional", X1: 176, Y1: 241, X2: 320, Y2: 260, Confidence: 88},
	}
}

func verdictFor(text string) model.Verdict {
	v := model.Verdict{VerdictFields: goodFields()}
	v.OneSentenceVerdict = text
	return v
}

func assertGrounded(t *testing.T, res model.EvidenceResult, elements []model.OCRElement) {
	t.Helper()
	groups := ocr.Group(elements, ocr.CandidateOptions())
	for _, e := range res.Evidence {
		found := false
		for _, g := range groups {
			if g.Box == e.BoundingBox {
				found = true
			}
		}
		assert.True(t, found, "evidence %d box %+v is not an OCR line", e.ID, e.BoundingBox)
		assert.True(t, e.BoundingBox.Valid())
	}
}

func TestSelectUsesModelPicksInOrder(t *testing.T) {
	llm := &generator.MockLLM{Respond: func(generator.Prompt) (string, error) {
		return `{"selected": [3, 1, 3]}`, nil
	}}
	sel := NewEvidenceSelector(DefaultEvidenceConfig(), newAgent(t, llm), nil, nil)

	res := sel.Select(context.Background(), "clean.png", verdictFor("All credentials, zero reason to keep reading."), pageElements())

	require.Len(t, res.Evidence, 2)
	assert.Equal(t, SourceModel, res.Source)
	assert.Equal(t, model.EvidenceStrong, res.EvidenceStrength)
	assert.True(t, res.VerdictSupported)
	assert.Equal(t, 1, res.Evidence[0].ID)
	assert.Equal(t, 2, res.Evidence[1].ID)
	// candidate 3 is "Engineer Manager", candidate 1 is "Hi"
	assert.Equal(t, model.Box{X1: 40, Y1: 170, X2: 250, Y2: 190}, res.Evidence[0].BoundingBox)
	assert.Equal(t, "Matches: Element 3", res.Evidence[0].WhyItMatters)
	assert.Equal(t, "Matches: Element 1", res.Evidence[1].WhyItMatters)
	assert.Equal(t, "All credentials, zero reason to kee...", res.Evidence[0].EditorialCaption)
	assertGrounded(t, res, pageElements())

	prompt := llm.Prompts()[0]
	assert.NotContains(t, prompt.User, "Home")
}

func TestSelectMalformedAnswerFallsBack(t *testing.T) {
	llm := &generator.MockLLM{Respond: func(generator.Prompt) (string, error) {
		return `{"selected": [1,`, nil
	}}
	sel := NewEvidenceSelector(DefaultEvidenceConfig(), newAgent(t, llm), nil, nil)

	res := sel.Select(context.Background(), "clean.png", verdictFor("Titles only."), pageElements())

	require.Len(t, res.Evidence, 2)
	assert.Equal(t, SourceFallback, res.Source)
	for _, e := range res.Evidence {
		assert.Greater(t, e.BoundingBox.Width(), 50)
		assert.Equal(t, "Fallback", e.WhyItMatters)
		assert.Equal(t, "Titles only.", e.EditorialCaption)
	}
	// "Hi" is too narrow, so document order starts at "Jane Doe"
	assert.Equal(t, model.Box{X1: 40, Y1: 120, X2: 160, Y2: 144}, res.Evidence[0].BoundingBox)
	assert.Equal(t, model.Box{X1: 40, Y1: 170, X2: 250, Y2: 190}, res.Evidence[1].BoundingBox)
	assertGrounded(t, res, pageElements())
}

func TestSelectFallsBackOnModelErrorAndUnusableIDs(t *testing.T) {
	answers := map[string]func(generator.Prompt) (string, error){
		"error":        func(generator.Prompt) (string, error) { return "", errors.New("deadline exceeded") },
		"out of range": func(generator.Prompt) (string, error) { return `{"selected": [0, 99]}`, nil },
		"empty":        func(generator.Prompt) (string, error) { return `{"selected": []}`, nil },
	}
	for name, respond := range answers {
		t.Run(name, func(t *testing.T) {
			sel := NewEvidenceSelector(DefaultEvidenceConfig(), newAgent(t, &generator.MockLLM{Respond: respond}), nil, nil)
			res := sel.Select(context.Background(), "clean.png", verdictFor("x"), pageElements())
			assert.Equal(t, SourceFallback, res.Source)
			assert.Len(t, res.Evidence, 2)
		})
	}
}

func TestSelectCapsMaxResults(t *testing.T) {
	cfg := DefaultEvidenceConfig()
	cfg.MaxResults = 10
	llm := &generator.MockLLM{Respond: func(generator.Prompt) (string, error) {
		return `{"selected": [1, 2, 3, 4]}`, nil
	}}
	sel := NewEvidenceSelector(cfg, newAgent(t, llm), nil, nil)
	res := sel.Select(context.Background(), "clean.png", verdictFor("x"), pageElements())
	assert.Len(t, res.Evidence, MaxEvidence)
}

func TestSelectWithoutTextIsWeak(t *testing.T) {
	llm := &generator.MockLLM{}
	sel := NewEvidenceSelector(DefaultEvidenceConfig(), newAgent(t, llm), nil, nil)

	res := sel.Select(context.Background(), "clean.png", verdictFor(""), []model.OCRElement{})
	assert.Empty(t, res.Evidence)
	assert.NotNil(t, res.Evidence)
	assert.Equal(t, model.EvidenceWeak, res.EvidenceStrength)
	assert.False(t, res.VerdictSupported)
	assert.Equal(t, 0, llm.Calls())
}

type fakeExtractor struct {
	elements []model.OCRElement
	err      error
	calls    int
}

func (f *fakeExtractor) Extract(context.Context, string) ([]model.OCRElement, error) {
	f.calls++
	return f.elements, f.err
}

func TestSelectRerunsOCRWhenNoElementsGiven(t *testing.T) {
	ext := &fakeExtractor{elements: pageElements()}
	sel := NewEvidenceSelector(DefaultEvidenceConfig(), nil, ext, nil)

	res := sel.Select(context.Background(), "clean.png", verdictFor(""), nil)
	assert.Equal(t, 1, ext.calls)
	require.Len(t, res.Evidence, 2)
	assert.Equal(t, "Issue here", res.Evidence[0].EditorialCaption)
}
