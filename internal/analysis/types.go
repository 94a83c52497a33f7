// types.go - Detection report and terminology types

package analysis

// TerminologyEntry is one authoritative term definition passed to the
// model as reference data. Never mutated by the analyzer.
type TerminologyEntry struct {
	Term       string `json:"term"`
	Category   string `json:"category,omitempty"`
	Definition string `json:"definition,omitempty"`
	Preferred  string `json:"preferred,omitempty"` // preferred alternative wording
}

// Error categories the model is constrained to.
const (
	CategorySpelling    = "spelling"
	CategoryGrammar     = "grammar"
	CategoryTerminology = "terminology"
	CategoryStyle       = "style"
)

// Position is a bounding box in normalized coordinates (0..1), top-left
// (X1,Y1) to bottom-right (X2,Y2).
type Position struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// DetectionError is a single flagged span in the analyzed document.
type DetectionError struct {
	Text         string   `json:"text"`
	Category     string   `json:"category"`
	Suggestion   string   `json:"suggestion"`
	Alternatives []string `json:"alternatives"`
	Explanation  string   `json:"explanation"`
	Position     Position `json:"position"`
}

// DetectionResult is the strictly-typed analysis report. Produced fresh
// per call and returned directly to the caller.
type DetectionResult struct {
	Text           string           `json:"text"`
	IsProfessional bool             `json:"isProfessional"`
	Score          float64          `json:"score"`
	Errors         []DetectionError `json:"errors"`
}
