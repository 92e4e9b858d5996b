package imaging

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomediumitalic"

	"profile_teardown/model"
)

// Annotator draws evidence markup onto an isolated image.
type Annotator interface {
	Render(ctx context.Context, imagePath string, items []model.EvidenceItem, outPath string) (RenderResult, error)
}

// RenderConfig tunes the sketch look. Seed makes the jitter reproducible.
type RenderConfig struct {
	Color           string  `json:"color"`
	Passes          int     `json:"passes"`
	Jitter          float64 `json:"jitter"`
	Padding         int     `json:"padding"`
	LineWidth       float64 `json:"line_width"`
	FontSize        float64 `json:"font_size"`
	MaxCaptionWords int     `json:"max_caption_words"`
	NoteWidth       int     `json:"note_width"`
	NoteGap         int     `json:"note_gap"`
	EdgePad         int     `json:"edge_pad"`
	Seed            int64   `json:"seed"`
}

func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Color:           "#C41E3A",
		Passes:          3,
		Jitter:          2.5,
		Padding:         6,
		LineWidth:       2.5,
		FontSize:        16,
		MaxCaptionWords: 10,
		NoteWidth:       180,
		NoteGap:         24,
		EdgePad:         8,
		Seed:            7,
	}
}

// Skip records an evidence item that was not drawn.
type Skip struct {
	ID     int    `json:"id"`
	Reason string `json:"reason"`
}

// RenderResult lists what made it onto the image.
type RenderResult struct {
	Path    string `json:"path"`
	Drawn   []int  `json:"drawn"`
	Skipped []Skip `json:"skipped,omitempty"`
}

// Renderer is the deterministic hand-drawn annotator. It never calls a model.
type Renderer struct {
	cfg    RenderConfig
	face   font.Face
	logger *zap.Logger
}

func NewRenderer(cfg RenderConfig, logger *zap.Logger) (*Renderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Passes < 2 {
		cfg.Passes = 2
	}
	if cfg.Passes > 4 {
		cfg.Passes = 4
	}
	f, err := truetype.Parse(gomediumitalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse note font: %w", err)
	}
	face := truetype.NewFace(f, &truetype.Options{Size: cfg.FontSize})
	return &Renderer{cfg: cfg, face: face, logger: logger}, nil
}

// Render draws every valid item and writes the flattened PNG. Malformed
// boxes are skipped silently, items outside the image are skipped and
// reported; neither stops the remaining items.
func (r *Renderer) Render(ctx context.Context, imagePath string, items []model.EvidenceItem, outPath string) (RenderResult, error) {
	src, err := Load(imagePath)
	if err != nil {
		return RenderResult{}, err
	}
	b := src.Bounds()
	overlay, res := r.Overlay(b.Dx(), b.Dy(), items)
	for _, s := range res.Skipped {
		r.logger.Debug("evidence skipped", zap.String("image", imagePath), zap.Int("id", s.ID), zap.String("reason", s.Reason))
	}

	if err := SavePNG(outPath, Compose(src, overlay)); err != nil {
		return RenderResult{}, err
	}
	res.Path = outPath
	return res, nil
}

// Compose flattens overlay onto src over white. Pixels where the overlay is
// fully transparent keep the source value.
func Compose(src image.Image, overlay image.Image) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), src, b.Min, draw.Over)
	draw.Draw(out, out.Bounds(), overlay, overlay.Bounds().Min, draw.Over)
	return out
}

// Overlay draws the markup for items on a transparent width x height layer.
func (r *Renderer) Overlay(width, height int, items []model.EvidenceItem) (image.Image, RenderResult) {
	dc := gg.NewContext(width, height)
	dc.SetFontFace(r.face)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()

	var res RenderResult
	for _, item := range items {
		if !item.BoundingBox.Valid() {
			res.Skipped = append(res.Skipped, Skip{ID: item.ID, Reason: "malformed bounding box"})
			continue
		}
		box := item.BoundingBox.Clamp(width, height)
		if !box.Valid() {
			res.Skipped = append(res.Skipped, Skip{ID: item.ID, Reason: "bounding box outside image"})
			continue
		}
		rng := rand.New(rand.NewSource(r.cfg.Seed + int64(item.ID)*7919))
		r.sketchShape(dc, rng, box)
		shape := r.shapeBounds(box)
		if caption := truncateWords(item.EditorialCaption, r.cfg.MaxCaptionWords); caption != "" {
			note := r.placeNote(dc, shape, caption, width, height)
			r.leader(dc, rng, note.from, note.to)
			r.drawNote(dc, note)
		}
		res.Drawn = append(res.Drawn, item.ID)
	}
	return dc.Image(), res
}

// roundness is the superellipse exponent of the sketched shape: 2 is an
// ellipse, higher values hug the corners of a text line more tightly.
const roundness = 4.0

// sketchShape strokes a rounded loop through the corners of box, grown by the
// padding on every side. Jitter only ever pushes the stroke outward, so no
// pass crosses the text it circles.
func (r *Renderer) sketchShape(dc *gg.Context, rng *rand.Rand, box model.Box) {
	cx := float64(box.X1+box.X2) / 2
	cy := float64(box.Y1+box.Y2) / 2
	// Scaling by 2^(1/n) puts the curve through the corners at 45 degrees.
	scale := math.Pow(2, 1/roundness)
	pad := float64(r.cfg.Padding)
	rx := float64(box.Width())/2*scale + pad
	ry := float64(box.Height())/2*scale + pad
	const points = 48

	dc.SetHexColor(r.cfg.Color)
	for pass := 0; pass < r.cfg.Passes; pass++ {
		offset := rng.Float64() * 0.3
		for i := 0; i <= points; i++ {
			angle := 2*math.Pi*float64(i)/points + offset
			c, s := math.Cos(angle), math.Sin(angle)
			out := math.Abs(r.jitter(rng))
			x := cx + (rx+out)*signedPow(c, 2/roundness)
			y := cy + (ry+out)*signedPow(s, 2/roundness)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.SetLineWidth(r.cfg.LineWidth - 0.5 + rng.Float64())
		dc.Stroke()
	}
}

// shapeBounds is the box the sketched shape and its jitter stay within.
func (r *Renderer) shapeBounds(box model.Box) model.Box {
	scale := math.Pow(2, 1/roundness)
	pad := float64(r.cfg.Padding) + math.Abs(r.cfg.Jitter) + r.cfg.LineWidth
	gx := int(math.Ceil(float64(box.Width())/2*(scale-1) + pad))
	gy := int(math.Ceil(float64(box.Height())/2*(scale-1) + pad))
	return model.Box{X1: box.X1 - gx, Y1: box.Y1 - gy, X2: box.X2 + gx, Y2: box.Y2 + gy}
}

func signedPow(v, p float64) float64 {
	return math.Copysign(math.Pow(math.Abs(v), p), v)
}

func (r *Renderer) jitter(rng *rand.Rand) float64 {
	return (rng.Float64()*2 - 1) * r.cfg.Jitter
}

// leader draws a slightly wobbly line from the note back to the shape with
// an arrowhead at the shape end.
func (r *Renderer) leader(dc *gg.Context, rng *rand.Rand, from, to gg.Point) {
	const steps = 6
	dc.SetHexColor(r.cfg.Color)
	dc.SetLineWidth(r.cfg.LineWidth - 0.5)
	for i := 0; i <= steps; i++ {
		t := float64(i) / steps
		x := to.X + t*(from.X-to.X)
		y := to.Y + t*(from.Y-to.Y)
		if i > 0 && i < steps {
			x += r.jitter(rng) * 0.6
			y += r.jitter(rng) * 0.6
		}
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	dx, dy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	dx, dy = dx/length, dy/length
	const headLen, headW = 9.0, 4.5
	dc.MoveTo(to.X, to.Y)
	dc.LineTo(to.X-headLen*dx+headW*dy, to.Y-headLen*dy-headW*dx)
	dc.LineTo(to.X-headLen*dx-headW*dy, to.Y-headLen*dy+headW*dx)
	dc.ClosePath()
	dc.Fill()
}

type noteLayout struct {
	lines      []string
	x, y       float64
	w, h       float64
	lineHeight float64
	from, to   gg.Point
}

// placeNote puts the note to the right of the shape, or below it when the
// right margin is too narrow, or above it when below runs off the image.
func (r *Renderer) placeNote(dc *gg.Context, shape model.Box, caption string, width, height int) noteLayout {
	edge := float64(r.cfg.EdgePad)
	gap := float64(r.cfg.NoteGap)
	wrapW := math.Min(float64(r.cfg.NoteWidth), float64(width)-2*edge)
	if wrapW < 20 {
		wrapW = 20
	}
	lines := dc.WordWrap(caption, wrapW)
	lineH := dc.FontHeight() * 1.3
	noteW := 0.0
	for _, l := range lines {
		w, _ := dc.MeasureString(l)
		noteW = math.Max(noteW, w)
	}
	noteH := float64(len(lines)) * lineH

	n := noteLayout{lines: lines, w: noteW, h: noteH, lineHeight: lineH}
	midY := float64(shape.Y1+shape.Y2) / 2
	midX := float64(shape.X1+shape.X2) / 2

	if x := float64(shape.X2) + gap; x+noteW+edge <= float64(width) {
		n.x = x
		n.y = clampF(midY-noteH/2, edge, float64(height)-noteH-edge)
		n.from = gg.Point{X: n.x - 4, Y: n.y + noteH/2}
		n.to = gg.Point{X: float64(shape.X2), Y: midY}
		return n
	}

	n.x = clampF(float64(shape.X1), edge, float64(width)-noteW-edge)
	below := float64(shape.Y2) + gap/2
	if below+noteH+edge <= float64(height) {
		n.y = below
		n.from = gg.Point{X: n.x + math.Min(noteW/2, 24), Y: n.y - 2}
		n.to = gg.Point{X: midX, Y: float64(shape.Y2)}
		return n
	}
	n.y = math.Max(edge, float64(shape.Y1)-gap/2-noteH)
	n.from = gg.Point{X: n.x + math.Min(noteW/2, 24), Y: n.y + noteH + 2}
	n.to = gg.Point{X: midX, Y: float64(shape.Y1)}
	return n
}

func (r *Renderer) drawNote(dc *gg.Context, n noteLayout) {
	dc.SetRGBA255(255, 255, 255, 215)
	dc.DrawRoundedRectangle(n.x-4, n.y-2, n.w+8, n.h+4, 4)
	dc.Fill()
	dc.SetHexColor(r.cfg.Color)
	for i, line := range n.lines {
		dc.DrawStringAnchored(line, n.x, n.y+float64(i)*n.lineHeight+n.lineHeight/2, 0, 0.5)
	}
}

func truncateWords(s string, limit int) string {
	words := strings.Fields(s)
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}
	return strings.Join(words, " ")
}

func clampF(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
