// Package config loads the JSON config file, the .env file and environment
// overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"profile_teardown/generator"
	"profile_teardown/teardown"
)

const DefaultPath = "config/config.json"

// LLMConfig selects the model provider.
type LLMConfig struct {
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	VisionModel    string `json:"vision_model,omitempty"`
	APIKey         string `json:"api_key,omitempty"`
	BaseURL        string `json:"base_url,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// CaptureConfig drives the headless browser screenshotter.
type CaptureConfig struct {
	Headless    bool   `json:"headless"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	WaitSeconds int    `json:"wait_seconds"`
	BrowserBin  string `json:"browser_bin,omitempty"`
}

type Config struct {
	LLM        LLMConfig               `json:"llm"`
	OutputDir  string                  `json:"output_dir"`
	RunlogPath string                  `json:"runlog_path"`
	Capture    CaptureConfig           `json:"capture"`
	Pipeline   teardown.PipelineConfig `json:"pipeline"`
}

// defaultModels are the text and vision models used when the config leaves
// them empty. They are picked after the provider is final.
var defaultModels = map[string][2]string{
	"openai":   {"gpt-4o-mini", "gpt-4o"},
	"deepseek": {"deepseek-chat", "deepseek-chat"},
	"gemini":   {"gemini-2.5-flash", "gemini-2.5-flash"},
}

// Default leaves the model names empty; Load fills them for the provider.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:       "openai",
			TimeoutSeconds: int(generator.DefaultRequestTimeout / time.Second),
		},
		OutputDir:  "output",
		RunlogPath: "output/runs.db",
		Capture: CaptureConfig{
			Headless:    true,
			Width:       1280,
			Height:      2000,
			WaitSeconds: 3,
		},
		Pipeline: teardown.DefaultPipelineConfig(),
	}
}

// Load reads path over the defaults. A missing file is not an error. A .env
// file in the working directory is loaded first, then environment overrides
// are applied.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("TEARDOWN_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := getenv("TEARDOWN_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.resolveModels()
	if c.LLM.APIKey != "" {
		return
	}
	switch c.LLM.Provider {
	case "openai", "deepseek":
		c.LLM.APIKey = getenv("OPENAI_API_KEY")
	case "gemini":
		c.LLM.APIKey = getenv("GEMINI_API_KEY")
	}
}

func (c *Config) resolveModels() {
	models, ok := defaultModels[c.LLM.Provider]
	if !ok {
		return
	}
	if c.LLM.Model == "" {
		c.LLM.Model = models[0]
	}
	if c.LLM.VisionModel == "" {
		c.LLM.VisionModel = models[1]
	}
}

// Validate checks the model settings and the pipeline bounds.
func (c Config) Validate() error {
	if err := c.ValidateLLM(); err != nil {
		return err
	}
	return c.ValidatePipeline()
}

// ValidateLLM checks what a model client needs. Commands that never call a
// model skip it.
func (c Config) ValidateLLM() error {
	switch c.LLM.Provider {
	case "mock":
	case "openai", "deepseek", "gemini":
		if c.LLM.Model == "" {
			return fmt.Errorf("llm.model is required for provider %s", c.LLM.Provider)
		}
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for provider %s (or set the provider's API key env var)", c.LLM.Provider)
		}
		if c.LLM.Provider == "deepseek" && c.LLM.BaseURL == "" {
			return errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
	case "":
		return errors.New("llm.provider is required")
	default:
		return fmt.Errorf("llm provider %s not supported", c.LLM.Provider)
	}
	if c.LLM.TimeoutSeconds < 0 {
		return errors.New("llm.timeout_seconds must not be negative")
	}
	return nil
}

// ValidatePipeline checks the stage tuning bounds.
func (c Config) ValidatePipeline() error {
	p := c.Pipeline
	if p.Diagnosis.MaxAttempts < 1 {
		return errors.New("pipeline.diagnosis.max_attempts must be at least 1")
	}
	if p.Evidence.MaxResults < 1 || p.Evidence.MaxResults > teardown.MaxEvidence {
		return fmt.Errorf("pipeline.evidence.max_results must be between 1 and %d", teardown.MaxEvidence)
	}
	if p.Render.Passes < 2 || p.Render.Passes > 4 {
		return errors.New("pipeline.render.passes must be between 2 and 4")
	}
	return nil
}

// RequestTimeout is the per-call model timeout.
func (c Config) RequestTimeout() time.Duration {
	if c.LLM.TimeoutSeconds <= 0 {
		return generator.DefaultRequestTimeout
	}
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c Config) LLMSettings() *generator.LLMSettings {
	return &generator.LLMSettings{
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		VisionModel: c.LLM.VisionModel,
		APIKey:      c.LLM.APIKey,
		BaseURL:     c.LLM.BaseURL,
	}
}
