package teardown

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"profile_teardown/generator"
	"profile_teardown/model"
	"profile_teardown/ocr"
)

// Transcriber turns an isolated image into the text the verdict is built
// from. The diagnosis call itself never sees the image.
type Transcriber interface {
	Transcribe(ctx context.Context, img model.IsolatedImage, elements []model.OCRElement) (string, error)
}

// OCRTranscriber joins the OCR lines top to bottom.
type OCRTranscriber struct{}

func (OCRTranscriber) Transcribe(_ context.Context, _ model.IsolatedImage, elements []model.OCRElement) (string, error) {
	return ocr.Transcript(elements), nil
}

// VisionTranscriber asks a vision model for a richer transcript and falls
// back to the OCR lines when the call fails or comes back empty.
type VisionTranscriber struct {
	agent  *generator.Agent
	logger *zap.Logger
}

func NewVisionTranscriber(agent *generator.Agent, logger *zap.Logger) *VisionTranscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisionTranscriber{agent: agent, logger: logger}
}

func (v *VisionTranscriber) Transcribe(ctx context.Context, img model.IsolatedImage, elements []model.OCRElement) (string, error) {
	fallback := ocr.Transcript(elements)
	data, err := generator.LoadImage(img.Path)
	if err != nil {
		v.logger.Warn("vision transcript unavailable, using ocr lines", zap.String("image", img.Path), zap.Error(err))
		return fallback, nil
	}
	text, err := v.agent.Complete(ctx, generator.BuildTranscribePrompt(data))
	if err != nil || strings.TrimSpace(text) == "" {
		v.logger.Warn("vision transcript failed, using ocr lines", zap.String("image", img.Path), zap.Error(err))
		return fallback, nil
	}
	return strings.TrimSpace(text), nil
}

// DiagnosisEngine produces one gated verdict per item.
type DiagnosisEngine struct {
	cfg         DiagnosisConfig
	gate        QualityGate
	agent       *generator.Agent
	transcriber Transcriber
	logger      *zap.Logger
}

func NewDiagnosisEngine(cfg DiagnosisConfig, agent *generator.Agent, transcriber Transcriber, logger *zap.Logger) (*DiagnosisEngine, error) {
	if agent == nil {
		return nil, fmt.Errorf("diagnosis: agent is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if transcriber == nil {
		transcriber = OCRTranscriber{}
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &DiagnosisEngine{
		cfg:         cfg,
		gate:        NewQualityGate(cfg),
		agent:       agent,
		transcriber: transcriber,
		logger:      logger,
	}, nil
}

// Diagnose always returns a verdict. When no attempt clears the gate the last
// one comes back with PassedQualityGate false and its issues attached.
func (e *DiagnosisEngine) Diagnose(ctx context.Context, img model.IsolatedImage, ct model.ContentType, extra string, elements []model.OCRElement) model.Verdict {
	transcript, err := e.transcriber.Transcribe(ctx, img, elements)
	if err != nil {
		e.logger.Warn("transcription failed, using ocr lines", zap.String("image", img.Path), zap.Error(err))
		transcript = ocr.Transcript(elements)
	}

	fields, issues, passed, attempts := e.generateWithGate(ctx, transcript, ct, extra)
	v := model.Verdict{
		VerdictFields:     fields,
		OCRText:           transcript,
		PassedQualityGate: passed,
		Attempts:          attempts,
	}
	if !passed {
		v.QualityIssues = issues
	}
	return v
}

// generateWithGate runs at most MaxAttempts generations. A failed call or
// unparseable answer counts as a failed attempt. The fields returned are the
// most recent ones that decoded.
func (e *DiagnosisEngine) generateWithGate(ctx context.Context, transcript string, ct model.ContentType, extra string) (model.VerdictFields, []string, bool, int) {
	prompt := generator.BuildDiagnosisPrompt(transcript, ct, extra, e.cfg.BannedPhrases)

	var (
		last     model.VerdictFields
		issues   []string
		attempts int
	)
	for attempts < e.cfg.MaxAttempts {
		if ctx.Err() != nil {
			issues = []string{fmt.Sprintf("Generation failed: %v", ctx.Err())}
			break
		}
		attempts++

		var f model.VerdictFields
		if _, err := e.agent.Generate(ctx, prompt, &f); err != nil {
			issues = []string{fmt.Sprintf("Generation failed: %v", err)}
			e.logger.Warn("diagnosis attempt failed",
				zap.Int("attempt", attempts), zap.Error(err))
			continue
		}
		last = f
		issues = e.gate.Check(f)
		if len(issues) == 0 {
			return f, nil, true, attempts
		}
		e.logger.Info("verdict rejected by quality gate",
			zap.Int("attempt", attempts), zap.Strings("issues", issues))
	}
	return last, issues, false, attempts
}
