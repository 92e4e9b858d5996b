package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"profile_teardown/imaging"
	"profile_teardown/model"
)

// TesseractConfig tunes the tesseract invocation.
type TesseractConfig struct {
	Binary   string `json:"binary"`
	PSM      int    `json:"psm"`
	Language string `json:"language"`
}

func DefaultTesseractConfig() TesseractConfig {
	return TesseractConfig{Binary: "tesseract", PSM: 3, Language: "eng"}
}

// Tesseract extracts words through the tesseract CLI's TSV output.
type Tesseract struct {
	cfg    TesseractConfig
	bin    string
	logger *zap.Logger
}

// NewTesseract resolves the binary up front so a missing install surfaces
// before any item is processed.
func NewTesseract(cfg TesseractConfig, logger *zap.Logger) (*Tesseract, error) {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	bin, err := exec.LookPath(cfg.Binary)
	if err != nil {
		return nil, &MissingDependencyError{Backend: cfg.Binary, Err: err}
	}
	return &Tesseract{cfg: cfg, bin: bin, logger: logger}, nil
}

func (t *Tesseract) Extract(ctx context.Context, imagePath string) ([]model.OCRElement, error) {
	w, h, err := imaging.Size(imagePath)
	if err != nil {
		return nil, err
	}

	args := []string{imagePath, "stdout"}
	if t.cfg.Language != "" {
		args = append(args, "-l", t.cfg.Language)
	}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	args = append(args, "tsv")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if execErr, ok := err.(*exec.Error); ok {
			return nil, &MissingDependencyError{Backend: t.bin, Err: execErr}
		}
		return nil, fmt.Errorf("tesseract %s: %w: %s", imagePath, err, strings.TrimSpace(stderr.String()))
	}

	elements, err := ParseTSV(stdout.Bytes(), w, h)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("ocr extracted",
		zap.String("image", imagePath),
		zap.Int("words", len(elements)))
	return elements, nil
}

// ParseTSV converts tesseract TSV rows into word elements. Boxes are clamped
// to the image and zero-area words dropped.
func ParseTSV(data []byte, width, height int) ([]model.OCRElement, error) {
	var out []model.OCRElement
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	header := true
	for sc.Scan() {
		line := sc.Text()
		if header {
			header = false
			if strings.HasPrefix(line, "level") {
				continue
			}
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		if cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(strings.Join(cols[11:], "\t"))
		if text == "" {
			continue
		}
		nums := make([]int, 4)
		for i := range nums {
			n, err := strconv.Atoi(strings.TrimSpace(cols[6+i]))
			if err != nil {
				return nil, fmt.Errorf("parse tsv column %d %q: %w", 6+i, cols[6+i], err)
			}
			nums[i] = n
		}
		conf := model.UnknownConfidence
		if c := strings.TrimSpace(cols[10]); c != "" && c != "-1" {
			f, err := strconv.ParseFloat(c, 64)
			if err == nil {
				conf = f
			}
		}
		box := model.Box{X1: nums[0], Y1: nums[1], X2: nums[0] + nums[2], Y2: nums[1] + nums[3]}.Clamp(width, height)
		if !box.Valid() {
			continue
		}
		out = append(out, model.OCRElement{
			Text:       text,
			X1:         box.X1,
			Y1:         box.Y1,
			X2:         box.X2,
			Y2:         box.Y2,
			Confidence: conf,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tsv: %w", err)
	}
	return out, nil
}
