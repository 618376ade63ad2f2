package entity

// ParseResult is one candidate value the scanner found for a field.
type ParseResult struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"` // 0..1
	SourceLine string  `json:"sourceLine,omitempty"`
}

// Candidates holds the ranked candidates per field, best first.
type Candidates struct {
	Registration []ParseResult `json:"registration"`
	WIPNumber    []ParseResult `json:"wipNumber"`
	JobNumber    []ParseResult `json:"jobNumber"`
}

// Top returns the top match of a ranked list.
func Top(list []ParseResult) (ParseResult, bool) {
	if len(list) == 0 {
		return ParseResult{}, false
	}
	return list[0], true
}
