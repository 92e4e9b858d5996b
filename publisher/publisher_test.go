package publisher

import (
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profile_teardown/model"
)

func samplePlaybook() model.Playbook {
	return model.Playbook{
		EditorialVerdict: "All credentials, zero reason to keep reading.",
		WhyItFails:       []string{"Titles, not outcomes.", "Dates before story.", "No problem named."},
		TheFix:           "Shift from listing roles to naming the problem you solve.",
		BeforeAfter: model.BeforeAfter{
			Headline: model.Rewrite{Before: "Engineer | Manager", After: "I help small teams ship products that sell"},
		},
		ReusablePrinciple: "If someone reads your first line, they should feel the problem you solve.",
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 196, G: 30, B: 58, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestWriteBrief(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "profile_teardown.png")
	writePNG(t, imgPath)
	out := filepath.Join(dir, "editorial_teardown", "profile_brief.html")

	p := New("Jane Doe", nil)
	require.NoError(t, p.WriteBrief(model.ProfileKey, samplePlaybook(), imgPath, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	doc := string(data)
	assert.Contains(t, doc, "<title>Teardown: Jane Doe (profile)</title>")
	assert.Contains(t, doc, `src="data:image/png;base64,`)
	assert.Contains(t, doc, "<p>• Titles, not outcomes.</p>")
	assert.Contains(t, doc, "All credentials, zero reason to keep reading.")
	assert.Contains(t, doc, "Engineer | Manager")
	assert.NotContains(t, doc, "Key section")
	assert.NotContains(t, doc, "<h2")
	assert.NotContains(t, doc, "<ul>")
}

func TestWriteBriefMissingImage(t *testing.T) {
	dir := t.TempDir()
	err := New("", nil).WriteBrief(model.PostKey(1), samplePlaybook(), filepath.Join(dir, "nope.png"), filepath.Join(dir, "b.html"))
	assert.Error(t, err)
}

func TestInlineImageKeepsRemoteRefs(t *testing.T) {
	for _, ref := range []string{"https://example.com/a.png", "data:image/png;base64,AAAA"} {
		out, err := inlineImage(ref, t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, ref, out)
	}
}

func TestWriteBriefTreatsPlaybookTextAsText(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "profile_teardown.png")
	writePNG(t, imgPath)
	secret := []byte("TOPSECRET credentials")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), secret, 0o600))

	pb := samplePlaybook()
	pb.BeforeAfter.Headline.After = "![a](secret.txt) and [call me](https://example.com)"
	pb.TheFix = "Lead with the outcome.\n# <script>alert(1)</script> ![gone](missing.png)"
	out := filepath.Join(dir, "profile_brief.html")

	require.NoError(t, New("", nil).WriteBrief(model.ProfileKey, pb, imgPath, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	doc := string(data)
	assert.Equal(t, 1, strings.Count(doc, "<img"))
	assert.NotContains(t, doc, base64.StdEncoding.EncodeToString(secret))
	assert.NotContains(t, doc, "<a ")
	assert.NotContains(t, doc, "<script>")
	assert.Contains(t, doc, "![a](secret.txt)")
	assert.Contains(t, doc, "Lead with the outcome. #")
}

func TestNormalizeForEmail(t *testing.T) {
	in := "<h2>Why</h2><ol><li>one</li><li>two</li></ol><ul><li>x</li></ul>"
	out := normalizeForEmail(in)
	assert.Equal(t, `<p style="font-size:20px;font-weight:700;margin:1em 0 0.6em;">Why</p>`+
		"<p>1. one</p><p>2. two</p><p>• x</p>", out)
}

func TestBriefMarkdownSkipsEmptyRewrites(t *testing.T) {
	pb := samplePlaybook()
	pb.BeforeAfter = model.BeforeAfter{}
	md := BriefMarkdown(model.PostKey(2), pb, "")
	assert.False(t, strings.Contains(md, "Before and after"))
	assert.False(t, strings.Contains(md, "!["))
	assert.Contains(t, md, "# Editorial teardown: post_2")
}
