package teardown

import (
	"go.uber.org/zap"

	"profile_teardown/generator"
	"profile_teardown/imaging"
	"profile_teardown/ocr"
)

// PipelineConfig holds every stage's tuning values.
type PipelineConfig struct {
	Isolate imaging.IsolateConfig `json:"isolate"`
	// VisionBounds lets a vision model propose the content column before
	// the margin crop is used.
	VisionBounds bool                 `json:"vision_bounds"`
	OCR          ocr.TesseractConfig  `json:"ocr"`
	Diagnosis    DiagnosisConfig      `json:"diagnosis"`
	Evidence     EvidenceConfig       `json:"evidence"`
	Render       imaging.RenderConfig `json:"render"`
	Playbook     PlaybookConfig       `json:"playbook"`
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Isolate:   imaging.DefaultIsolateConfig(),
		OCR:       ocr.DefaultTesseractConfig(),
		Diagnosis: DefaultDiagnosisConfig(),
		Evidence:  DefaultEvidenceConfig(),
		Render:    imaging.DefaultRenderConfig(),
		Playbook:  DefaultPlaybookConfig(),
	}
}

// Extras are the optional collaborators of a pipeline.
type Extras struct {
	Briefs   BriefWriter
	Recorder RunRecorder
	Logger   *zap.Logger
}

// NewPipeline wires every stage from cfg around one model agent and one OCR
// backend.
func NewPipeline(cfg PipelineConfig, agent *generator.Agent, extractor ocr.Extractor, extras Extras) (*Orchestrator, error) {
	logger := extras.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var detector imaging.BoundsDetector
	if cfg.VisionBounds {
		detector = imaging.NewVisionBounds(agent)
	}
	var transcriber Transcriber = OCRTranscriber{}
	if cfg.Diagnosis.VisionTranscript {
		transcriber = NewVisionTranscriber(agent, logger.Named("transcribe"))
	}

	diagnosis, err := NewDiagnosisEngine(cfg.Diagnosis, agent, transcriber, logger.Named("diagnosis"))
	if err != nil {
		return nil, err
	}
	playbooks, err := NewPlaybookGenerator(cfg.Playbook, agent, logger.Named("playbook"))
	if err != nil {
		return nil, err
	}
	renderer, err := imaging.NewRenderer(cfg.Render, logger.Named("render"))
	if err != nil {
		return nil, err
	}

	return NewOrchestrator(Components{
		Isolator:  imaging.NewIsolator(cfg.Isolate, detector, logger.Named("isolate")),
		Extractor: extractor,
		Diagnosis: diagnosis,
		Evidence:  NewEvidenceSelector(cfg.Evidence, agent, extractor, logger.Named("evidence")),
		Annotator: renderer,
		Playbooks: playbooks,
		Briefs:    extras.Briefs,
		Recorder:  extras.Recorder,
		Logger:    logger,
	})
}
