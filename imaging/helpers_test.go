package imaging

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/fogleman/gg"
	"github.com/stretchr/testify/require"
)

// writeTestPNG writes an opaque gradient so pixel comparisons are meaningful.
func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: uint8((x + y) % 256), A: 255})
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, SavePNG(path, img))
	return path
}

func newContextForTest(r *Renderer, width, height int) *gg.Context {
	dc := gg.NewContext(width, height)
	dc.SetFontFace(r.face)
	return dc
}
