package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"profile_teardown/imaging"
	"profile_teardown/model"
	"profile_teardown/ocr"
	"profile_teardown/teardown"
)

var (
	ocrGrouped bool
	renderOut  string
	renderKey  string
)

var isolateCmd = &cobra.Command{
	Use:   "isolate <subject-dir>",
	Short: "Crop every screenshot of a subject to its content column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		items, err := teardown.Discover(args[0])
		if err != nil {
			return err
		}

		var detector imaging.BoundsDetector
		if cfg.Pipeline.VisionBounds {
			agent, err := buildAgent(cfg)
			if err != nil {
				return err
			}
			detector = imaging.NewVisionBounds(agent)
		}
		iso := imaging.NewIsolator(cfg.Pipeline.Isolate, detector, logger.Named("isolate"))
		store := teardown.NewStore(args[0])

		out := cmd.OutOrStdout()
		for _, it := range items {
			res, err := iso.Isolate(cmd.Context(), it.RawPath, it.Key.Type(), store.CleanPath(it.Key))
			if err != nil {
				logger.Warn("isolation failed", zap.String("key", string(it.Key)), zap.Error(err))
				fmt.Fprintf(out, "%-8s FAILED  %v\n", it.Key, err)
				continue
			}
			fmt.Fprintf(out, "%-8s %dx%d  %s\n", it.Key, res.Width, res.Height, res.Path)
		}
		return nil
	},
}

var ocrCmd = &cobra.Command{
	Use:   "ocr <image>",
	Short: "Print the OCR transcript of one image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		t, err := ocr.NewTesseract(cfg.Pipeline.OCR, logger.Named("ocr"))
		if err != nil {
			return err
		}
		elements, err := t.Extract(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !ocrGrouped {
			fmt.Fprintln(out, ocr.Transcript(elements))
			return nil
		}
		for i, g := range ocr.Group(elements, ocr.CandidateOptions()) {
			fmt.Fprintf(out, "%3d  [%d,%d %d,%d]  %s\n", i+1, g.Box.X1, g.Box.Y1, g.Box.X2, g.Box.Y2, g.Text)
		}
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <image> <evidence.json>",
	Short: "Draw evidence annotations onto an isolated image",
	Long: `The evidence file is either one evidence result or a subject's
evidence.json, in which case --key picks the item.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ev, err := readEvidence(args[1], model.ContentKey(renderKey))
		if err != nil {
			return err
		}
		r, err := imaging.NewRenderer(cfg.Pipeline.Render, logger.Named("render"))
		if err != nil {
			return err
		}
		res, err := r.Render(cmd.Context(), args[0], ev.Evidence, renderOut)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: drew %v\n", res.Path, res.Drawn)
		for _, sk := range res.Skipped {
			fmt.Fprintf(out, "  skipped %d: %s\n", sk.ID, sk.Reason)
		}
		return nil
	},
}

func readEvidence(path string, key model.ContentKey) (model.EvidenceResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.EvidenceResult{}, fmt.Errorf("read evidence: %w", err)
	}
	if key == "" {
		var ev model.EvidenceResult
		if err := json.Unmarshal(data, &ev); err != nil {
			return model.EvidenceResult{}, fmt.Errorf("decode evidence %s: %w", path, err)
		}
		return ev, nil
	}
	var all map[model.ContentKey]model.EvidenceResult
	if err := json.Unmarshal(data, &all); err != nil {
		return model.EvidenceResult{}, fmt.Errorf("decode evidence %s: %w", path, err)
	}
	ev, ok := all[key]
	if !ok {
		return model.EvidenceResult{}, fmt.Errorf("no evidence for %s in %s", key, path)
	}
	return ev, nil
}

func init() {
	renderCmd.Flags().StringVar(&renderOut, "out", "teardown.png", "output PNG path")
	renderCmd.Flags().StringVar(&renderKey, "key", "", "content key to pick from a subject evidence.json")
	ocrCmd.Flags().BoolVar(&ocrGrouped, "groups", false, "print the numbered evidence candidates instead of the transcript")
}
