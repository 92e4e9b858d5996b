package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"profile_teardown/config"
	"profile_teardown/ocr"
	"profile_teardown/publisher"
	"profile_teardown/runlog"
	"profile_teardown/teardown"
)

var (
	subjectName     string
	subjectHeadline string
	noRunlog        bool
	resumeFrom      string
)

var runCmd = &cobra.Command{
	Use:   "run <subject-dir>",
	Short: "Run the full teardown pipeline over a subject directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, args[0], "")
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <subject-dir> --from <stage>",
	Short: "Re-run the pipeline from a stage, reusing earlier artifacts",
	Long:  "Stages: isolate, diagnose, evidence, render, playbook.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, args[0], resumeFrom)
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, resumeCmd} {
		c.Flags().StringVar(&subjectName, "name", "", "subject's name, used as diagnosis context")
		c.Flags().StringVar(&subjectHeadline, "headline", "", "subject's headline, used as diagnosis context")
		c.Flags().BoolVar(&noRunlog, "no-runlog", false, "do not record the run in the run log")
	}
	resumeCmd.Flags().StringVar(&resumeFrom, "from", "", "stage to resume from")
	_ = resumeCmd.MarkFlagRequired("from")
}

func runPipeline(cmd *cobra.Command, dir, stage string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch, closeFn, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	subj := teardown.Subject{Dir: dir, Name: subjectName, Headline: subjectHeadline}
	ctx := cmd.Context()

	var res *teardown.RunResult
	if stage == "" {
		res, err = orch.Run(ctx, subj)
	} else {
		st, perr := teardown.ParseStage(stage)
		if perr != nil {
			return perr
		}
		res, err = orch.Resume(ctx, subj, st)
	}
	if err != nil {
		return err
	}

	printResult(cmd, res)
	return nil
}

func buildPipeline(cfg config.Config) (*teardown.Orchestrator, func(), error) {
	agent, err := buildAgent(cfg)
	if err != nil {
		return nil, nil, err
	}
	extractor, err := ocr.NewTesseract(cfg.Pipeline.OCR, logger.Named("ocr"))
	if err != nil {
		return nil, nil, err
	}

	extras := teardown.Extras{
		Briefs: publisher.New(subjectName, logger.Named("publisher")),
		Logger: logger,
	}
	closeFn := func() {}
	if !noRunlog && cfg.RunlogPath != "" {
		store, err := runlog.Open(cfg.RunlogPath)
		if err != nil {
			return nil, nil, err
		}
		extras.Recorder = store
		closeFn = func() {
			if err := store.Close(); err != nil {
				logger.Warn("close run log", zap.Error(err))
			}
		}
	}

	orch, err := teardown.NewPipeline(cfg.Pipeline, agent, extractor, extras)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return orch, closeFn, nil
}

func printResult(cmd *cobra.Command, res *teardown.RunResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d item(s) in %s\n", res.RunID, len(res.Items), res.Duration.Round(time.Millisecond))
	for _, it := range res.Items {
		line := fmt.Sprintf("  %-8s %s", it.Item.Key, it.Item.State)
		if it.Verdict != nil && it.Verdict.OneSentenceVerdict != "" {
			line += "  " + it.Verdict.OneSentenceVerdict
		}
		if it.Item.FailedErr != "" {
			line += "  (" + it.Item.FailedErr + ")"
		}
		fmt.Fprintln(out, line)
	}
	status := "FAILED"
	if res.Report.Passed {
		status = "PASSED"
	}
	fmt.Fprintf(out, "quality: %d/100 %s\n", res.Report.Score, status)
	if len(res.Report.Warnings) > 0 {
		fmt.Fprintf(out, "warnings:\n  %s\n", strings.Join(res.Report.Warnings, "\n  "))
	}
}
