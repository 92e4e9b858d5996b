package teardown

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profile_teardown/generator"
	"profile_teardown/model"
)

func newAgent(t *testing.T, llm generator.LLMClient) *generator.Agent {
	t.Helper()
	agent, err := generator.NewAgent(llm)
	require.NoError(t, err)
	return agent
}

func fieldsJSON(t *testing.T, f model.VerdictFields) string {
	t.Helper()
	b, err := json.Marshal(f)
	require.NoError(t, err)
	return string(b)
}

var testElements = []model.OCRElement{
	{Text: "Jane", X1: 40, Y1: 100, X2: 100, Y2: 124, Confidence: 95},
	{Text: "Doe", X1: 108, Y1: 101, X2: 160, Y2: 124, Confidence: 96},
	{Text: "Engineer", X1: 40, Y1: 150, X2: 140, Y2: 170, Confidence: 91},
}

func TestDiagnoseGivesUpAfterThreeAttempts(t *testing.T) {
	bad := goodFields()
	bad.ActualSignal = "Honestly the profile looks good"
	llm := &generator.MockLLM{Respond: func(generator.Prompt) (string, error) {
		return fieldsJSON(t, bad), nil
	}}
	engine, err := NewDiagnosisEngine(DefaultDiagnosisConfig(), newAgent(t, llm), nil, nil)
	require.NoError(t, err)

	v := engine.Diagnose(context.Background(), model.IsolatedImage{Path: "clean.png"}, model.ContentProfile, "", testElements)

	assert.Equal(t, 3, llm.Calls(generator.TaskDiagnose))
	assert.Equal(t, 3, v.Attempts)
	assert.False(t, v.PassedQualityGate)
	assert.Contains(t, v.QualityIssues, "Contains banned phrase: 'looks good'")
	assert.Equal(t, bad.OneSentenceVerdict, v.OneSentenceVerdict)
	assert.Equal(t, "Jane Doe\nEngineer", v.OCRText)
}

func TestDiagnoseRegeneratesUntilGatePasses(t *testing.T) {
	n := 0
	llm := &generator.MockLLM{Respond: func(generator.Prompt) (string, error) {
		n++
		f := goodFields()
		if n == 1 {
			f.OneSentenceVerdict = "Maybe the headline is unclear."
		}
		return "```json\n" + fieldsJSON(t, f) + "\n```", nil
	}}
	engine, err := NewDiagnosisEngine(DefaultDiagnosisConfig(), newAgent(t, llm), nil, nil)
	require.NoError(t, err)

	v := engine.Diagnose(context.Background(), model.IsolatedImage{}, model.ContentPost, "", testElements)
	assert.True(t, v.PassedQualityGate)
	assert.Empty(t, v.QualityIssues)
	assert.Equal(t, 2, v.Attempts)
	assert.Equal(t, goodFields(), v.VerdictFields)
}

func TestDiagnoseCountsFailedCallsAsAttempts(t *testing.T) {
	n := 0
	llm := &generator.MockLLM{Respond: func(generator.Prompt) (string, error) {
		n++
		switch n {
		case 1:
			return "", errors.New("timeout")
		case 2:
			return "no json here", nil
		default:
			return fieldsJSON(t, goodFields()), nil
		}
	}}
	engine, err := NewDiagnosisEngine(DefaultDiagnosisConfig(), newAgent(t, llm), nil, nil)
	require.NoError(t, err)

	v := engine.Diagnose(context.Background(), model.IsolatedImage{}, model.ContentProfile, "", nil)
	assert.True(t, v.PassedQualityGate)
	assert.Equal(t, 3, v.Attempts)
}

func TestDiagnoseAllCallsFailStillReturnsVerdict(t *testing.T) {
	llm := &generator.MockLLM{Respond: func(generator.Prompt) (string, error) {
		return "", errors.New("upstream 503")
	}}
	engine, err := NewDiagnosisEngine(DefaultDiagnosisConfig(), newAgent(t, llm), nil, nil)
	require.NoError(t, err)

	v := engine.Diagnose(context.Background(), model.IsolatedImage{}, model.ContentProfile, "", testElements)
	assert.False(t, v.PassedQualityGate)
	assert.Equal(t, 3, v.Attempts)
	require.Len(t, v.QualityIssues, 1)
	assert.Contains(t, v.QualityIssues[0], "Generation failed")
}

func TestDiagnosePassesContextAndTranscriptOnly(t *testing.T) {
	llm := &generator.MockLLM{}
	engine, err := NewDiagnosisEngine(DefaultDiagnosisConfig(), newAgent(t, llm), nil, nil)
	require.NoError(t, err)

	engine.Diagnose(context.Background(), model.IsolatedImage{Path: "clean.png"}, model.ContentPost, "Profile verdict: All titles.", testElements)
	prompts := llm.Prompts()
	require.Len(t, prompts, 1)
	assert.Empty(t, prompts[0].Images)
	assert.Contains(t, prompts[0].User, "Jane Doe")
	assert.Contains(t, prompts[0].User, "Profile verdict: All titles.")
}

func TestVisionTranscriberFallsBackToOCR(t *testing.T) {
	llm := &generator.MockLLM{}
	tr := NewVisionTranscriber(newAgent(t, llm), nil)

	text, err := tr.Transcribe(context.Background(), model.IsolatedImage{Path: "does-not-exist.png"}, testElements)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nEngineer", text)
	assert.Equal(t, 0, llm.Calls())
}
