package teardown

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profile_teardown/generator"
	"profile_teardown/imaging"
	"profile_teardown/model"
	"profile_teardown/ocr"
	"profile_teardown/runlog"
)

func writeScreenshot(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 600, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 600; x++ {
			img.Set(x, y, color.RGBA{R: 240, G: uint8(200 + x%50), B: uint8(200 + y%50), A: 255})
		}
	}
	require.NoError(t, imaging.SavePNG(path, img))
}

type fakeRecorder struct {
	runs []runlog.Run
}

func (f *fakeRecorder) Record(_ context.Context, r runlog.Run) error {
	f.runs = append(f.runs, r)
	return nil
}

type harness struct {
	dir  string
	llm  *generator.MockLLM
	ext  *fakeExtractor
	rec  *fakeRecorder
	orch *Orchestrator
}

func newHarness(t *testing.T, dir string) *harness {
	t.Helper()
	h := &harness{
		dir: dir,
		llm: &generator.MockLLM{},
		ext: &fakeExtractor{elements: pageElements()},
		rec: &fakeRecorder{},
	}
	orch, err := NewPipeline(DefaultPipelineConfig(), newAgent(t, h.llm), h.ext, Extras{Recorder: h.rec})
	require.NoError(t, err)
	h.orch = orch
	return h
}

func TestRunProfileOnly(t *testing.T) {
	dir := t.TempDir()
	writeScreenshot(t, filepath.Join(dir, RawProfileFile))
	h := newHarness(t, dir)

	res, err := h.orch.Run(context.Background(), Subject{Dir: dir, Name: "Jane Doe"})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	it := res.Items[0]
	assert.Equal(t, model.ProfileKey, it.Item.Key)
	assert.Equal(t, model.StateDone, it.Item.State)
	assert.True(t, it.Verdict.PassedQualityGate)
	assert.Len(t, it.Evidence.Evidence, 2)
	require.NotNil(t, it.Render)
	assert.Equal(t, []int{1, 2}, it.Render.Drawn)

	assert.Len(t, res.Report.Checks, 3)
	assert.Equal(t, 100, res.Report.Score)
	assert.True(t, res.Report.Passed)
	assert.NotEmpty(t, res.RunID)

	store := NewStore(dir)
	for _, p := range []string{store.CleanPath(model.ProfileKey), store.TeardownPath(model.ProfileKey), store.PlaybookTextPath(model.ProfileKey)} {
		assert.FileExists(t, p)
	}
	for _, name := range []string{OCRFile, DiagnosesFile, EvidenceFile, PlaybooksFile, RenderedFile, SummaryFile} {
		data, err := os.ReadFile(store.Path(name))
		require.NoError(t, err, name)
		assert.NotContains(t, string(data), "post_", name)
	}

	var diagnoses map[model.ContentKey]model.Verdict
	require.NoError(t, store.ReadJSON(DiagnosesFile, &diagnoses))
	assert.Len(t, diagnoses, 1)

	var sum Summary
	require.NoError(t, store.ReadJSON(SummaryFile, &sum))
	assert.Equal(t, res.RunID, sum.RunID)
	assert.Equal(t, 1, sum.ContentCount)
	assert.Equal(t, model.StateDone, sum.States[model.ProfileKey])
	assert.Equal(t, 100, sum.QualityScore)

	require.Len(t, h.rec.runs, 1)
	assert.Equal(t, res.RunID, h.rec.runs[0].ID)
}

func TestRunIsolatesItemFailure(t *testing.T) {
	dir := t.TempDir()
	writeScreenshot(t, filepath.Join(dir, RawProfileFile))
	posts := filepath.Join(dir, PostScreenshotDir)
	require.NoError(t, os.MkdirAll(posts, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(posts, "post_1.png"), []byte("not an image"), 0o644))
	writeScreenshot(t, filepath.Join(posts, "post_2.png"))
	h := newHarness(t, dir)

	res, err := h.orch.Run(context.Background(), Subject{Dir: dir})
	require.NoError(t, err)

	require.Len(t, res.Items, 3)
	assert.Equal(t, model.StateDone, res.Item(model.ProfileKey).Item.State)
	failed := res.Item(model.PostKey(1))
	assert.Equal(t, model.StateFailed, failed.Item.State)
	assert.NotEmpty(t, failed.Item.FailedErr)
	assert.Nil(t, failed.Verdict)
	assert.Equal(t, model.StateDone, res.Item(model.PostKey(2)).Item.State)

	assert.Len(t, res.Report.Checks, 6)
	assert.Contains(t, strings.Join(res.Report.Warnings, "\n"), "post_1: failed before diagnosis")
	assert.Equal(t, 2, h.llm.Calls(generator.TaskDiagnose))
}

func TestRunAbortsWithoutOCRBackend(t *testing.T) {
	dir := t.TempDir()
	writeScreenshot(t, filepath.Join(dir, RawProfileFile))
	h := newHarness(t, dir)
	h.ext.err = &ocr.MissingDependencyError{Backend: "tesseract", Err: errors.New("executable file not found")}

	_, err := h.orch.Run(context.Background(), Subject{Dir: dir})
	require.Error(t, err)
	var md *ocr.MissingDependencyError
	assert.True(t, errors.As(err, &md))
	assert.Equal(t, 0, h.llm.Calls(generator.TaskDiagnose))
}

func TestRunDegradesOnOtherOCRErrors(t *testing.T) {
	dir := t.TempDir()
	writeScreenshot(t, filepath.Join(dir, RawProfileFile))
	h := newHarness(t, dir)
	h.ext.elements = nil
	h.ext.err = errors.New("tesseract crashed")

	res, err := h.orch.Run(context.Background(), Subject{Dir: dir})
	require.NoError(t, err)
	it := res.Items[0]
	assert.Equal(t, model.StateDone, it.Item.State)
	assert.Equal(t, model.EvidenceWeak, it.Evidence.EvidenceStrength)
	assert.Nil(t, it.Render)
	assert.Contains(t, res.Report.Warnings, "profile: weak evidence, nothing on the image supports the verdict")
}

func TestRunGivesPostsProfileContext(t *testing.T) {
	dir := t.TempDir()
	writeScreenshot(t, filepath.Join(dir, RawProfileFile))
	writeScreenshot(t, filepath.Join(dir, PostScreenshotDir, "post_1.png"))
	h := newHarness(t, dir)

	_, err := h.orch.Run(context.Background(), Subject{Dir: dir, Name: "Jane Doe", Headline: "Engineer | Manager"})
	require.NoError(t, err)

	var diag []generator.Prompt
	for _, p := range h.llm.Prompts() {
		if p.Task == generator.TaskDiagnose {
			diag = append(diag, p)
		}
	}
	require.Len(t, diag, 2)
	assert.Contains(t, diag[0].User, "Name: Jane Doe. Headline: Engineer | Manager.")
	assert.NotContains(t, diag[0].User, "Profile verdict:")
	assert.Contains(t, diag[1].User, "Profile verdict: All credentials, zero reason to keep reading.")
}

func TestResumeReusesEarlierStages(t *testing.T) {
	dir := t.TempDir()
	writeScreenshot(t, filepath.Join(dir, RawProfileFile))
	first := newHarness(t, dir)
	orig, err := first.orch.Run(context.Background(), Subject{Dir: dir})
	require.NoError(t, err)

	second := newHarness(t, dir)
	res, err := second.orch.Resume(context.Background(), Subject{Dir: dir}, StagePlaybook)
	require.NoError(t, err)

	assert.Equal(t, 0, second.ext.calls)
	assert.Equal(t, 0, second.llm.Calls(generator.TaskDiagnose))
	assert.Equal(t, 0, second.llm.Calls(generator.TaskSelect))
	assert.Equal(t, 1, second.llm.Calls(generator.TaskPlaybook))
	assert.Equal(t, StagePlaybook, res.ResumedFrom)
	assert.Equal(t, orig.Items[0].Verdict.OneSentenceVerdict, res.Items[0].Verdict.OneSentenceVerdict)
	assert.Equal(t, orig.Items[0].Render.Path, res.Items[0].Render.Path)
	assert.Equal(t, model.StateDone, res.Items[0].Item.State)
	assert.NotEqual(t, orig.RunID, res.RunID)
}

func TestResumeFromDiagnoseRecomputesLaterStages(t *testing.T) {
	dir := t.TempDir()
	writeScreenshot(t, filepath.Join(dir, RawProfileFile))
	_, err := newHarness(t, dir).orch.Run(context.Background(), Subject{Dir: dir})
	require.NoError(t, err)

	h := newHarness(t, dir)
	_, err = h.orch.Resume(context.Background(), Subject{Dir: dir}, StageDiagnose)
	require.NoError(t, err)
	assert.Equal(t, 0, h.ext.calls)
	assert.Equal(t, 1, h.llm.Calls(generator.TaskDiagnose))
	assert.Equal(t, 1, h.llm.Calls(generator.TaskSelect))
}

func TestResumeRejectsUnknownStage(t *testing.T) {
	h := newHarness(t, t.TempDir())
	_, err := h.orch.Resume(context.Background(), Subject{Dir: h.dir}, Stage("publish"))
	assert.Error(t, err)

	_, err = ParseStage("Evidence")
	assert.NoError(t, err)
	_, err = ParseStage("send")
	assert.Error(t, err)
}

func TestDiscoverOrdersPostsNumerically(t *testing.T) {
	dir := t.TempDir()
	posts := filepath.Join(dir, PostScreenshotDir)
	require.NoError(t, os.MkdirAll(posts, 0o755))
	for _, name := range []string{"post_10.png", "post_2.png", "notes.txt", "post_x.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(posts, name), []byte("x"), 0o644))
	}

	items, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.PostKey(1), items[0].Key)
	assert.Equal(t, filepath.Join(posts, "post_2.png"), items[0].RawPath)
	assert.Equal(t, model.PostKey(2), items[1].Key)
	assert.Equal(t, model.StatePending, items[1].State)
}

func TestDiscoverEmptyDir(t *testing.T) {
	_, err := Discover(t.TempDir())
	assert.Error(t, err)
}
