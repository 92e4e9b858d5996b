package generator

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
)

// LLMClient abstracts the model backend so stages can be mocked.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings is the provider-independent client configuration.
type LLMSettings struct {
	Provider    string
	Model       string
	VisionModel string
	APIKey      string
	BaseURL     string
}

// Image is an inline image attached to a prompt.
type Image struct {
	MIMEType string
	Data     []byte
}

// LoadImage reads an image file for a vision prompt.
func LoadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("read image %s: %w", path, err)
	}
	return Image{MIMEType: http.DetectContentType(data), Data: data}, nil
}

func (i Image) DataURI() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}
