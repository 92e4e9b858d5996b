package ocr

import (
	"sort"
	"strings"

	"profile_teardown/model"
)

// GroupOptions controls line grouping and chrome filtering.
type GroupOptions struct {
	// Tolerance is the max vertical distance in px between a word's top and
	// the line's top for the word to join the line.
	Tolerance int `json:"tolerance"`
	// FilterChrome drops words in the top band or too small to be content.
	FilterChrome bool `json:"filter_chrome"`
	SkipTop      int  `json:"skip_top"`
	MinWidth     int  `json:"min_width"`
	MinHeight    int  `json:"min_height"`
}

// TranscriptOptions groups every word, for full-page text.
func TranscriptOptions() GroupOptions {
	return GroupOptions{Tolerance: 15}
}

// CandidateOptions groups with nav-bar and stray-glyph filtering.
func CandidateOptions() GroupOptions {
	return GroupOptions{Tolerance: 15, FilterChrome: true, SkipTop: 60, MinWidth: 20, MinHeight: 8}
}

// Group merges words into line-level phrases in reading order. If chrome
// filtering removes everything, the unfiltered words are used.
func Group(elements []model.OCRElement, opts GroupOptions) []model.TextGroup {
	if len(elements) == 0 {
		return nil
	}
	src := elements
	if opts.FilterChrome {
		var kept []model.OCRElement
		for _, e := range elements {
			if e.Y1 > opts.SkipTop && e.X2-e.X1 > opts.MinWidth && e.Y2-e.Y1 > opts.MinHeight {
				kept = append(kept, e)
			}
		}
		if len(kept) > 0 {
			src = kept
		}
	}

	sorted := append([]model.OCRElement(nil), src...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y1 != sorted[j].Y1 {
			return sorted[i].Y1 < sorted[j].Y1
		}
		return sorted[i].X1 < sorted[j].X1
	})

	var groups []model.TextGroup
	var line []model.OCRElement
	anchor := 0
	flush := func() {
		if g, ok := mergeLine(line); ok {
			groups = append(groups, g)
		}
		line = line[:0]
	}
	for _, e := range sorted {
		if len(line) > 0 && abs(e.Y1-anchor) < opts.Tolerance {
			line = append(line, e)
			continue
		}
		flush()
		anchor = e.Y1
		line = append(line, e)
	}
	flush()
	return groups
}

// mergeLine joins one line's words left to right under a unioned box.
func mergeLine(line []model.OCRElement) (model.TextGroup, bool) {
	if len(line) == 0 {
		return model.TextGroup{}, false
	}
	words := append([]model.OCRElement(nil), line...)
	sort.SliceStable(words, func(i, j int) bool { return words[i].X1 < words[j].X1 })
	texts := make([]string, 0, len(words))
	box := words[0].Box()
	for _, w := range words {
		texts = append(texts, w.Text)
		box = box.Union(w.Box())
	}
	text := strings.Join(texts, " ")
	if strings.TrimSpace(text) == "" {
		return model.TextGroup{}, false
	}
	return model.TextGroup{Text: text, Box: box}, true
}

// Transcript renders the words as newline-separated lines.
func Transcript(elements []model.OCRElement) string {
	groups := Group(elements, TranscriptOptions())
	lines := make([]string, len(groups))
	for i, g := range groups {
		lines[i] = g.Text
	}
	return strings.Join(lines, "\n")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
