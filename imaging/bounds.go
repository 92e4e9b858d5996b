package imaging

import (
	"context"
	"errors"
	"fmt"

	"profile_teardown/generator"
	"profile_teardown/model"
)

// VisionBounds asks a vision model for the content column.
type VisionBounds struct {
	agent *generator.Agent
}

func NewVisionBounds(agent *generator.Agent) *VisionBounds {
	return &VisionBounds{agent: agent}
}

type boundsAnswer struct {
	X1 *int `json:"x1"`
	Y1 *int `json:"y1"`
	X2 *int `json:"x2"`
	Y2 *int `json:"y2"`
}

func (v *VisionBounds) DetectBounds(ctx context.Context, imagePath string, width, height int, ct model.ContentType) (model.Box, error) {
	img, err := generator.LoadImage(imagePath)
	if err != nil {
		return model.Box{}, err
	}
	var ans boundsAnswer
	if _, err := v.agent.Generate(ctx, generator.BuildBoundsPrompt(img, width, height, ct), &ans); err != nil {
		return model.Box{}, fmt.Errorf("content bounds: %w", err)
	}
	if ans.X1 == nil || ans.Y1 == nil || ans.X2 == nil || ans.Y2 == nil {
		return model.Box{}, errors.New("content bounds: incomplete box")
	}
	return model.Box{X1: *ans.X1, Y1: *ans.Y1, X2: *ans.X2, Y2: *ans.Y2}.Clamp(width, height), nil
}
