package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profile_teardown/config"
	"profile_teardown/generator"
	"profile_teardown/model"
)

func TestBuildLLM(t *testing.T) {
	cfg := config.Default()

	cfg.LLM.Provider = "mock"
	llm, err := buildLLM(cfg)
	require.NoError(t, err)
	assert.IsType(t, &generator.MockLLM{}, llm)

	cfg.LLM.Provider = "deepseek"
	cfg.LLM.BaseURL = ""
	_, err = buildLLM(cfg)
	assert.ErrorContains(t, err, "base_url")

	cfg.LLM.Provider = "claude"
	_, err = buildLLM(cfg)
	assert.ErrorContains(t, err, "not supported")
}

func TestBuildAgentMock(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "mock"
	agent, err := buildAgent(cfg)
	require.NoError(t, err)
	assert.NotNil(t, agent)
}

func TestBuildAgentValidatesModelSettings(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "openai"
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.APIKey = ""
	_, err := buildAgent(cfg)
	assert.ErrorContains(t, err, "api_key")
}

func TestLoadConfigSkipsModelSettings(t *testing.T) {
	t.Setenv("TEARDOWN_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	configPath = filepath.Join(t.TempDir(), "missing.json")
	t.Cleanup(func() { configPath = config.DefaultPath })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestCaptureConfig(t *testing.T) {
	captureHeaded = false
	c := captureConfig(config.CaptureConfig{Headless: true, Width: 1024, WaitSeconds: 1, BrowserBin: "/usr/bin/chromium"})
	assert.True(t, c.Headless)
	assert.Equal(t, 1024, c.Width)
	assert.Equal(t, 2000, c.Height)
	assert.Equal(t, time.Second, c.Settle)
	assert.Equal(t, "/usr/bin/chromium", c.BrowserBin)

	captureHeaded = true
	t.Cleanup(func() { captureHeaded = false })
	assert.False(t, captureConfig(config.Default().Capture).Headless)
}

func TestReadEvidence(t *testing.T) {
	dir := t.TempDir()
	single := filepath.Join(dir, "one.json")
	require.NoError(t, os.WriteFile(single, []byte(`{"evidence":[{"id":1,"editorial_caption":"Issue here"}],"evidence_strength":"strong"}`), 0o644))
	ev, err := readEvidence(single, "")
	require.NoError(t, err)
	assert.Len(t, ev.Evidence, 1)

	subject := filepath.Join(dir, "evidence.json")
	require.NoError(t, os.WriteFile(subject, []byte(`{"profile":{"evidence":[],"evidence_strength":"weak"}}`), 0o644))
	ev, err = readEvidence(subject, model.ProfileKey)
	require.NoError(t, err)
	assert.Equal(t, model.EvidenceWeak, ev.EvidenceStrength)

	_, err = readEvidence(subject, "post_9")
	assert.ErrorContains(t, err, "no evidence for post_9")
}
