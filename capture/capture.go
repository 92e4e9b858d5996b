// Package capture takes the raw screenshots the pipeline starts from, using
// a headless Chrome driven by rod. It never handles cookies or logins.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"profile_teardown/teardown"
)

type Config struct {
	Headless          bool
	Width             int
	Height            int
	Settle            time.Duration
	NavigationTimeout time.Duration
	// BrowserBin overrides rod's browser lookup.
	BrowserBin string
}

func DefaultConfig() Config {
	return Config{
		Headless:          true,
		Width:             1280,
		Height:            2000,
		Settle:            3 * time.Second,
		NavigationTimeout: 30 * time.Second,
	}
}

// Capturer writes a PNG screenshot of url to outPath.
type Capturer interface {
	Capture(ctx context.Context, pageURL, outPath string) error
}

type RodCapturer struct {
	cfg    Config
	logger *zap.Logger
}

func NewRodCapturer(cfg Config, logger *zap.Logger) *RodCapturer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		d := DefaultConfig()
		cfg.Width, cfg.Height = d.Width, d.Height
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultConfig().NavigationTimeout
	}
	return &RodCapturer{cfg: cfg, logger: logger}
}

// Capture launches a fresh browser per call and takes a full-page shot in an
// incognito context.
func (c *RodCapturer) Capture(ctx context.Context, pageURL, outPath string) error {
	if err := validURL(pageURL); err != nil {
		return err
	}

	l := launcher.New().Headless(c.cfg.Headless)
	if c.cfg.BrowserBin != "" {
		l = l.Bin(c.cfg.BrowserBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	defer browser.Close()

	incognito, err := browser.Incognito()
	if err != nil {
		return fmt.Errorf("incognito context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             c.cfg.Width,
		Height:            c.cfg.Height,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		c.logger.Warn("failed to set viewport", zap.Error(err))
	}

	nav := page.Timeout(c.cfg.NavigationTimeout)
	if err := nav.Navigate(pageURL); err != nil {
		return fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	if err := nav.WaitLoad(); err != nil {
		c.logger.Warn("page load did not settle", zap.String("url", pageURL), zap.Error(err))
	}
	if c.cfg.Settle > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.Settle):
		}
	}

	data, err := page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("screenshot %s: %w", pageURL, err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	c.logger.Info("captured", zap.String("url", pageURL), zap.String("path", outPath), zap.Int("bytes", len(data)))
	return nil
}

// Targets maps a subject's URLs to the raw screenshot paths the pipeline
// discovers: the profile first, then posts numbered from 1.
func Targets(subjectDir, profileURL string, postURLs []string) map[string]string {
	out := make(map[string]string, len(postURLs)+1)
	if profileURL != "" {
		out[profileURL] = filepath.Join(subjectDir, teardown.RawProfileFile)
	}
	for i, u := range postURLs {
		out[u] = filepath.Join(subjectDir, teardown.PostScreenshotDir, fmt.Sprintf("post_%d.png", i+1))
	}
	return out
}

// CaptureSubject captures every target. Post screenshots left by an earlier
// capture are removed first, so the post set on disk is exactly postURLs. It
// stops at the first failure.
func CaptureSubject(ctx context.Context, c Capturer, subjectDir, profileURL string, postURLs []string) error {
	if profileURL == "" && len(postURLs) == 0 {
		return errors.New("nothing to capture")
	}
	if profileURL != "" {
		if err := c.Capture(ctx, profileURL, filepath.Join(subjectDir, teardown.RawProfileFile)); err != nil {
			return err
		}
	}
	if err := clearPosts(subjectDir); err != nil {
		return err
	}
	for i, u := range postURLs {
		out := filepath.Join(subjectDir, teardown.PostScreenshotDir, fmt.Sprintf("post_%d.png", i+1))
		if err := c.Capture(ctx, u, out); err != nil {
			return err
		}
	}
	return nil
}

func clearPosts(subjectDir string) error {
	stale, err := filepath.Glob(filepath.Join(subjectDir, teardown.PostScreenshotDir, "post_*.png"))
	if err != nil {
		return err
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale screenshot: %w", err)
		}
	}
	return nil
}

func validURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url %q: want an http(s) address", raw)
	}
	return nil
}
