package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"profile_teardown/config"
	"profile_teardown/generator"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Editorial teardowns of LinkedIn profile screenshots",
	Long: `teardown isolates the content of profile and post screenshots, reads them
with OCR, diagnoses what a stranger would conclude, circles the evidence
and writes a playbook per item.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to config.json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")

	rootCmd.AddCommand(runCmd, resumeCmd, isolateCmd, ocrCmd, renderCmd, captureCmd, runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ValidatePipeline(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func buildLLM(cfg config.Config) (generator.LLMClient, error) {
	switch cfg.LLM.Provider {
	case "mock":
		return &generator.MockLLM{}, nil
	case "openai":
		return generator.NewOpenAILLMFromConfig(cfg.LLMSettings())
	case "deepseek":
		// OpenAI-compatible endpoint.
		if cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(cfg.LLMSettings())
	case "gemini":
		return generator.NewGeminiLLMFromConfig(cfg.LLMSettings())
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}

// buildAgent is the only path to a model client, so the model settings are
// validated here and not for every command.
func buildAgent(cfg config.Config) (*generator.Agent, error) {
	if err := cfg.ValidateLLM(); err != nil {
		return nil, err
	}
	llm, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}
	agent, err := generator.NewAgent(llm)
	if err != nil {
		return nil, err
	}
	return agent.WithTimeout(cfg.RequestTimeout()), nil
}
