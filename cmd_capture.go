package main

import (
	"time"

	"github.com/spf13/cobra"

	"profile_teardown/capture"
	"profile_teardown/config"
)

var (
	captureProfile string
	capturePosts   []string
	captureHeaded  bool
)

var captureCmd = &cobra.Command{
	Use:   "capture <subject-dir>",
	Short: "Screenshot a public profile and its posts into a subject directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c := capture.NewRodCapturer(captureConfig(cfg.Capture), logger.Named("capture"))
		return capture.CaptureSubject(cmd.Context(), c, args[0], captureProfile, capturePosts)
	},
}

func init() {
	captureCmd.Flags().StringVar(&captureProfile, "profile", "", "profile URL")
	captureCmd.Flags().StringSliceVar(&capturePosts, "post", nil, "post URL, repeatable, captured in order")
	captureCmd.Flags().BoolVar(&captureHeaded, "headed", false, "show the browser window")
}

func captureConfig(c config.CaptureConfig) capture.Config {
	out := capture.DefaultConfig()
	out.Headless = c.Headless && !captureHeaded
	out.BrowserBin = c.BrowserBin
	if c.Width > 0 {
		out.Width = c.Width
	}
	if c.Height > 0 {
		out.Height = c.Height
	}
	if c.WaitSeconds >= 0 {
		out.Settle = time.Duration(c.WaitSeconds) * time.Second
	}
	return out
}
