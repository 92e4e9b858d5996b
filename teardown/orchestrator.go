// Package teardown runs the editorial teardown pipeline: isolation, OCR,
// diagnosis, evidence, rendering and playbooks for every content item of a
// subject, then scores the run.
package teardown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"profile_teardown/imaging"
	"profile_teardown/model"
	"profile_teardown/ocr"
	"profile_teardown/runlog"
)

// Stage is an entry point for re-running part of the pipeline.
type Stage string

const (
	StageIsolate  Stage = "isolate"
	StageDiagnose Stage = "diagnose"
	StageEvidence Stage = "evidence"
	StageRender   Stage = "render"
	StagePlaybook Stage = "playbook"
)

var stageOrder = map[Stage]int{
	StageIsolate:  0,
	StageDiagnose: 1,
	StageEvidence: 2,
	StageRender:   3,
	StagePlaybook: 4,
}

func ParseStage(s string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := stageOrder[st]; !ok {
		return "", fmt.Errorf("unknown stage %q (want isolate, diagnose, evidence, render or playbook)", s)
	}
	return st, nil
}

// Subject is the person being torn down. Name and headline are optional
// diagnosis context.
type Subject struct {
	Dir      string
	Name     string
	Headline string
}

// ItemResult is everything the run produced for one content item.
type ItemResult struct {
	Item         model.ContentItem     `json:"item"`
	Isolated     *model.IsolatedImage  `json:"isolated,omitempty"`
	OCR          []model.OCRElement    `json:"-"`
	Verdict      *model.Verdict        `json:"verdict,omitempty"`
	Evidence     *model.EvidenceResult `json:"evidence,omitempty"`
	Render       *imaging.RenderResult `json:"render,omitempty"`
	RenderErr    string                `json:"render_error,omitempty"`
	Playbook     *model.Playbook       `json:"playbook,omitempty"`
	PlaybookText string                `json:"playbook_text,omitempty"`
	Brief        string                `json:"brief,omitempty"`
}

type RunResult struct {
	RunID       string
	Subject     Subject
	ResumedFrom Stage
	StartedAt   time.Time
	Duration    time.Duration
	Items       []*ItemResult
	Report      model.QualityReport
}

// Item returns the result for key, or nil.
func (r *RunResult) Item(key model.ContentKey) *ItemResult {
	for _, it := range r.Items {
		if it.Item.Key == key {
			return it
		}
	}
	return nil
}

// BriefWriter publishes a finished playbook next to its annotated image.
type BriefWriter interface {
	WriteBrief(key model.ContentKey, pb model.Playbook, imagePath, outPath string) error
}

// RunRecorder keeps a ledger of completed runs.
type RunRecorder interface {
	Record(ctx context.Context, r runlog.Run) error
}

// Components are the stages the orchestrator drives. Briefs, Recorder and
// Logger are optional.
type Components struct {
	Isolator  *imaging.Isolator
	Extractor ocr.Extractor
	Diagnosis *DiagnosisEngine
	Evidence  *EvidenceSelector
	Annotator imaging.Annotator
	Playbooks *PlaybookGenerator
	Briefs    BriefWriter
	Recorder  RunRecorder
	Logger    *zap.Logger
}

type Orchestrator struct {
	c      Components
	logger *zap.Logger
	now    func() time.Time
}

func NewOrchestrator(c Components) (*Orchestrator, error) {
	switch {
	case c.Isolator == nil:
		return nil, errors.New("orchestrator: isolator is required")
	case c.Extractor == nil:
		return nil, errors.New("orchestrator: ocr extractor is required")
	case c.Diagnosis == nil:
		return nil, errors.New("orchestrator: diagnosis engine is required")
	case c.Evidence == nil:
		return nil, errors.New("orchestrator: evidence selector is required")
	case c.Annotator == nil:
		return nil, errors.New("orchestrator: annotator is required")
	case c.Playbooks == nil:
		return nil, errors.New("orchestrator: playbook generator is required")
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{c: c, logger: logger, now: time.Now}, nil
}

// Run processes every item of the subject from scratch. Items run strictly
// one after another, each through all stages. Only a missing OCR backend
// aborts the run; every other failure is isolated to its item or degrades in
// place and shows up in the quality report.
func (o *Orchestrator) Run(ctx context.Context, subj Subject) (*RunResult, error) {
	return o.run(ctx, subj, StageIsolate)
}

// Resume re-runs the pipeline from the given stage, reusing the artifacts
// earlier stages persisted. Items missing an earlier artifact recompute it.
func (o *Orchestrator) Resume(ctx context.Context, subj Subject, from Stage) (*RunResult, error) {
	if _, ok := stageOrder[from]; !ok {
		return nil, fmt.Errorf("unknown stage %q", from)
	}
	return o.run(ctx, subj, from)
}

func (o *Orchestrator) run(ctx context.Context, subj Subject, from Stage) (*RunResult, error) {
	items, err := Discover(subj.Dir)
	if err != nil {
		return nil, err
	}
	store := NewStore(subj.Dir)
	prior := &artifacts{}
	if from != StageIsolate {
		if prior, err = store.loadArtifacts(); err != nil {
			return nil, fmt.Errorf("load artifacts: %w", err)
		}
	}

	res := &RunResult{RunID: uuid.NewString(), Subject: subj, StartedAt: o.now()}
	if from != StageIsolate {
		res.ResumedFrom = from
	}
	log := o.logger.With(zap.String("run_id", res.RunID), zap.String("subject", subj.Dir))
	log.Info("teardown started", zap.Int("items", len(items)), zap.String("from", string(from)))

	var profile *model.Verdict
	for _, item := range items {
		ir := &ItemResult{Item: item}
		res.Items = append(res.Items, ir)

		p := itemRun{
			o:     o,
			store: store,
			prior: prior,
			from:  from,
			extra: diagnosisContext(subj, item.Key, profile),
			log:   log.With(zap.String("key", string(item.Key))),
		}
		if err := p.process(ctx, ir); err != nil {
			log.Error("teardown aborted", zap.Error(err))
			return res, err
		}
		if item.Key == model.ProfileKey {
			profile = ir.Verdict
		}
		if err := o.persist(store, res); err != nil {
			return res, err
		}
	}

	res.Duration = o.now().Sub(res.StartedAt)
	res.Report = BuildQualityReport(res.Items)
	if err := o.writeSummary(store, res); err != nil {
		return res, err
	}
	if o.c.Recorder != nil {
		if err := o.c.Recorder.Record(ctx, runRecord(res)); err != nil {
			log.Warn("run ledger write failed", zap.Error(err))
		}
	}
	log.Info("teardown finished",
		zap.Int("score", res.Report.Score),
		zap.Bool("passed", res.Report.Passed),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// diagnosisContext is the optional metadata handed to the diagnosis prompt.
// Posts also get the profile's verdict.
func diagnosisContext(subj Subject, key model.ContentKey, profile *model.Verdict) string {
	var parts []string
	if subj.Name != "" {
		parts = append(parts, fmt.Sprintf("Name: %s.", subj.Name))
	}
	if subj.Headline != "" {
		parts = append(parts, fmt.Sprintf("Headline: %s.", subj.Headline))
	}
	if key != model.ProfileKey && profile != nil && profile.OneSentenceVerdict != "" {
		parts = append(parts, fmt.Sprintf("Profile verdict: %s", profile.OneSentenceVerdict))
	}
	return strings.Join(parts, " ")
}

// itemRun carries one item through the stages.
type itemRun struct {
	o     *Orchestrator
	store *Store
	prior *artifacts
	from  Stage
	extra string
	log   *zap.Logger
}

// reuse reports whether the persisted output of stage may stand in for
// running it.
func (p itemRun) reuse(stage Stage) bool {
	return stageOrder[stage] < stageOrder[p.from]
}

func (p itemRun) process(ctx context.Context, ir *ItemResult) error {
	key := ir.Item.Key
	c := p.o.c

	iso, err := p.isolate(ctx, ir.Item)
	if err != nil {
		p.log.Error("isolation failed", zap.Error(err))
		return ir.Item.Fail(err)
	}
	ir.Isolated = &iso
	if err := ir.Item.Advance(model.StateIsolated); err != nil {
		return err
	}

	elements, ok := p.prior.OCR[key]
	if !ok || !p.reuse(StageIsolate) {
		elements, err = c.Extractor.Extract(ctx, iso.Path)
		if err != nil {
			if ocr.IsMissingDependency(err) {
				return err
			}
			p.log.Warn("ocr failed, continuing without text", zap.Error(err))
		}
		if elements == nil {
			elements = []model.OCRElement{}
		}
	}
	ir.OCR = elements

	if v, ok := p.prior.Diagnoses[key]; ok && p.reuse(StageDiagnose) {
		ir.Verdict = &v
	} else {
		v := c.Diagnosis.Diagnose(ctx, iso, key.Type(), p.extra, elements)
		ir.Verdict = &v
		p.log.Info("diagnosed",
			zap.String("verdict", v.OneSentenceVerdict),
			zap.Bool("passed_quality_gate", v.PassedQualityGate),
			zap.Int("attempts", v.Attempts))
	}
	if err := ir.Item.Advance(model.StateDiagnosed); err != nil {
		return err
	}

	if ev, ok := p.prior.Evidence[key]; ok && p.reuse(StageEvidence) {
		ir.Evidence = &ev
	} else {
		ev := c.Evidence.Select(ctx, iso.Path, *ir.Verdict, elements)
		ir.Evidence = &ev
		p.log.Info("evidence selected",
			zap.Int("items", len(ev.Evidence)),
			zap.String("strength", string(ev.EvidenceStrength)),
			zap.String("source", ev.Source))
	}
	if err := ir.Item.Advance(model.StateEvidenced); err != nil {
		return err
	}

	p.render(ctx, ir, iso)
	if err := ir.Item.Advance(model.StateRendered); err != nil {
		return err
	}

	if pb, ok := p.prior.Playbooks[key]; ok && p.reuse(StagePlaybook) {
		ir.Playbook = &pb
	} else {
		pb := c.Playbooks.Generate(ctx, *ir.Verdict, *ir.Evidence, key.Type())
		ir.Playbook = &pb
	}
	p.publish(ir, iso)
	if err := ir.Item.Advance(model.StatePlaybooked); err != nil {
		return err
	}
	return ir.Item.Advance(model.StateDone)
}

func (p itemRun) isolate(ctx context.Context, item model.ContentItem) (model.IsolatedImage, error) {
	out := p.store.CleanPath(item.Key)
	if p.reuse(StageIsolate) {
		if iso, ok := p.prior.Clean[item.Key]; ok {
			if _, err := os.Stat(iso.Path); err == nil {
				return iso, nil
			}
		}
		if w, h, err := imaging.Size(out); err == nil {
			return model.IsolatedImage{Path: out, Width: w, Height: h, Crop: model.Box{X2: w, Y2: h}}, nil
		}
	}
	return p.o.c.Isolator.Isolate(ctx, item.RawPath, item.Key.Type(), out)
}

// render skips items without evidence and records a failed render without
// stopping the item.
func (p itemRun) render(ctx context.Context, ir *ItemResult, iso model.IsolatedImage) {
	key := ir.Item.Key
	if path, ok := p.prior.Rendered[key]; ok && p.reuse(StageRender) {
		if _, err := os.Stat(path); err == nil {
			ir.Render = &imaging.RenderResult{Path: path}
			return
		}
	}
	if len(ir.Evidence.Evidence) == 0 {
		p.log.Info("nothing to draw, render skipped")
		return
	}
	rr, err := p.o.c.Annotator.Render(ctx, iso.Path, ir.Evidence.Evidence, p.store.TeardownPath(key))
	if err != nil {
		ir.RenderErr = err.Error()
		p.log.Warn("render failed", zap.Error(err))
		return
	}
	ir.Render = &rr
}

// publish writes the text playbook and, when configured, the HTML brief.
// Failures are logged; the playbook itself is already persisted.
func (p itemRun) publish(ir *ItemResult, iso model.IsolatedImage) {
	key := ir.Item.Key
	textPath := p.store.PlaybookTextPath(key)
	if err := p.store.WriteFile(textPath, []byte(FormatText(*ir.Playbook))); err != nil {
		p.log.Warn("playbook text write failed", zap.Error(err))
	} else {
		ir.PlaybookText = textPath
	}

	if p.o.c.Briefs == nil {
		return
	}
	image := iso.Path
	if ir.Render != nil {
		image = ir.Render.Path
	}
	briefPath := p.store.BriefPath(key)
	if err := p.o.c.Briefs.WriteBrief(key, *ir.Playbook, image, briefPath); err != nil {
		p.log.Warn("brief write failed", zap.Error(err))
		return
	}
	ir.Brief = briefPath
}

// persist rewrites the per-key artifact maps after every item so a later
// Resume can pick up from any stage.
func (o *Orchestrator) persist(store *Store, res *RunResult) error {
	ocrOut := map[model.ContentKey][]model.OCRElement{}
	diagnoses := map[model.ContentKey]model.Verdict{}
	evidence := map[model.ContentKey]model.EvidenceResult{}
	playbooks := map[model.ContentKey]model.Playbook{}
	rendered := map[model.ContentKey]string{}
	for _, it := range res.Items {
		k := it.Item.Key
		if it.OCR != nil {
			ocrOut[k] = it.OCR
		}
		if it.Verdict != nil {
			diagnoses[k] = *it.Verdict
		}
		if it.Evidence != nil {
			evidence[k] = *it.Evidence
		}
		if it.Playbook != nil {
			playbooks[k] = *it.Playbook
		}
		if it.Render != nil {
			rendered[k] = it.Render.Path
		}
	}

	writes := []struct {
		name string
		v    any
	}{
		{OCRFile, ocrOut},
		{DiagnosesFile, diagnoses},
		{EvidenceFile, evidence},
		{PlaybooksFile, playbooks},
		{RenderedFile, rendered},
	}
	for _, w := range writes {
		if err := store.WriteJSON(w.name, w.v); err != nil {
			return fmt.Errorf("persist %s: %w", w.name, err)
		}
	}
	return nil
}

func (o *Orchestrator) writeSummary(store *Store, res *RunResult) error {
	sum := Summary{
		RunID:           res.RunID,
		Timestamp:       o.now(),
		DurationSeconds: res.Duration.Seconds(),
		SubjectDir:      res.Subject.Dir,
		ResumedFrom:     res.ResumedFrom,
		ContentCount:    len(res.Items),
		States:          map[model.ContentKey]model.State{},
		QualityScore:    res.Report.Score,
		QualityPassed:   res.Report.Passed,
		Quality:         res.Report,
		Outputs: SummaryOutputs{
			CleanContent:   map[model.ContentKey]model.IsolatedImage{},
			OCRFile:        store.Path(OCRFile),
			DiagnosesFile:  store.Path(DiagnosesFile),
			EvidenceFile:   store.Path(EvidenceFile),
			PlaybooksFile:  store.Path(PlaybooksFile),
			RenderedFile:   store.Path(RenderedFile),
			TeardownImages: map[model.ContentKey]string{},
			PlaybookTexts:  map[model.ContentKey]string{},
		},
	}
	for _, it := range res.Items {
		k := it.Item.Key
		sum.States[k] = it.Item.State
		if it.Item.FailedErr != "" {
			if sum.Errors == nil {
				sum.Errors = map[model.ContentKey]string{}
			}
			sum.Errors[k] = it.Item.FailedErr
		}
		if it.Isolated != nil {
			sum.Outputs.CleanContent[k] = *it.Isolated
		}
		if it.Render != nil {
			sum.Outputs.TeardownImages[k] = it.Render.Path
		}
		if it.PlaybookText != "" {
			sum.Outputs.PlaybookTexts[k] = it.PlaybookText
		}
		if it.Brief != "" {
			if sum.Outputs.Briefs == nil {
				sum.Outputs.Briefs = map[model.ContentKey]string{}
			}
			sum.Outputs.Briefs[k] = it.Brief
		}
	}
	return store.WriteJSON(SummaryFile, sum)
}

func runRecord(res *RunResult) runlog.Run {
	states := make(map[model.ContentKey]model.State, len(res.Items))
	for _, it := range res.Items {
		states[it.Item.Key] = it.Item.State
	}
	return runlog.Run{
		ID:           res.RunID,
		SubjectDir:   res.Subject.Dir,
		StartedAt:    res.StartedAt,
		Duration:     res.Duration,
		ResumedFrom:  string(res.ResumedFrom),
		ContentCount: len(res.Items),
		Score:        res.Report.Score,
		Passed:       res.Report.Passed,
		States:       states,
	}
}
