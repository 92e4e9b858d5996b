package model

// UnknownConfidence marks an OCR element whose backend reported no score.
const UnknownConfidence = -1.0

// OCRElement is one recognised word with its pixel box.
type OCRElement struct {
	Text       string  `json:"text"`
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
	Confidence float64 `json:"confidence"`
}

func (e OCRElement) Box() Box { return Box{X1: e.X1, Y1: e.Y1, X2: e.X2, Y2: e.Y2} }

// ConfidenceKnown is false when the backend reported -1.
func (e OCRElement) ConfidenceKnown() bool { return e.Confidence >= 0 }

// TextGroup is a run of OCR words on one visual line.
type TextGroup struct {
	Text string `json:"text"`
	Box  Box    `json:"box"`
}
