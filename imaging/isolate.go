// Package imaging crops screenshots to their main content and draws the
// editorial markup.
package imaging

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	"go.uber.org/zap"

	"profile_teardown/model"
)

// Margin is one side's trim: min(Cap, Ratio*width) pixels.
type Margin struct {
	Ratio float64 `json:"ratio"`
	Cap   int     `json:"cap"`
}

func (m Margin) pixels(width int) int {
	px := int(float64(width) * m.Ratio)
	if m.Cap > 0 && px > m.Cap {
		px = m.Cap
	}
	if px < 0 {
		return 0
	}
	return px
}

// IsolateConfig holds the deterministic crop margins per content type. Posts
// trim more on the right where the feed's sidebar sits.
type IsolateConfig struct {
	ProfileLeft  Margin `json:"profile_left"`
	ProfileRight Margin `json:"profile_right"`
	PostLeft     Margin `json:"post_left"`
	PostRight    Margin `json:"post_right"`
}

func DefaultIsolateConfig() IsolateConfig {
	return IsolateConfig{
		ProfileLeft:  Margin{Ratio: 0.02, Cap: 30},
		ProfileRight: Margin{Ratio: 0.02, Cap: 30},
		PostLeft:     Margin{Ratio: 0.03, Cap: 50},
		PostRight:    Margin{Ratio: 0.05, Cap: 100},
	}
}

// BoundsDetector proposes a tight box around the main content column.
type BoundsDetector interface {
	DetectBounds(ctx context.Context, imagePath string, width, height int, ct model.ContentType) (model.Box, error)
}

// Isolator crops raw screenshots. With a detector it tries the detected box
// first and falls back to the percentage crop.
type Isolator struct {
	cfg      IsolateConfig
	detector BoundsDetector
	logger   *zap.Logger
}

func NewIsolator(cfg IsolateConfig, detector BoundsDetector, logger *zap.Logger) *Isolator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Isolator{cfg: cfg, detector: detector, logger: logger}
}

// CropRect is the deterministic crop for an image of the given size.
func (i *Isolator) CropRect(width, height int, ct model.ContentType) model.Box {
	left, right := i.cfg.ProfileLeft, i.cfg.ProfileRight
	if ct == model.ContentPost {
		left, right = i.cfg.PostLeft, i.cfg.PostRight
	}
	x1 := left.pixels(width)
	x2 := width - right.pixels(width)
	if x2 <= x1 {
		return model.Box{X1: 0, Y1: 0, X2: width, Y2: height}
	}
	return model.Box{X1: x1, Y1: 0, X2: x2, Y2: height}
}

// Isolate crops rawPath and writes the result as PNG to outPath. A missing
// input yields a NotFoundError. No retries.
func (i *Isolator) Isolate(ctx context.Context, rawPath string, ct model.ContentType, outPath string) (model.IsolatedImage, error) {
	src, err := Load(rawPath)
	if err != nil {
		return model.IsolatedImage{}, err
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return model.IsolatedImage{}, fmt.Errorf("image %s has no pixels", rawPath)
	}

	crop := i.CropRect(w, h, ct)
	if i.detector != nil {
		detected, err := i.detector.DetectBounds(ctx, rawPath, w, h, ct)
		switch {
		case err != nil:
			i.logger.Warn("content bounds detection failed, using margin crop",
				zap.String("image", rawPath), zap.Error(err))
		case !detected.Clamp(w, h).Valid():
			i.logger.Warn("content bounds outside image, using margin crop",
				zap.String("image", rawPath), zap.Any("bounds", detected))
		default:
			crop = detected.Clamp(w, h)
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, crop.Width(), crop.Height()))
	draw.Draw(out, out.Bounds(), src, image.Pt(b.Min.X+crop.X1, b.Min.Y+crop.Y1), draw.Src)
	if err := SavePNG(outPath, out); err != nil {
		return model.IsolatedImage{}, err
	}

	i.logger.Debug("isolated content",
		zap.String("source", rawPath),
		zap.String("output", outPath),
		zap.Any("crop", crop))
	return model.IsolatedImage{
		Path:   outPath,
		Width:  crop.Width(),
		Height: crop.Height(),
		Crop:   crop,
	}, nil
}
