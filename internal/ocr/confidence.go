package ocr

import (
	"regexp"
	"strings"
)

var (
	reLabel = regexp.MustCompile(`\b(wip|w\.i\.p|reg|registration|job\s*(no|card|number|#))\b`)
	rePlate = regexp.MustCompile(`\b[a-z]{2}[0-9]{2}\s?[a-z]{3}\b`)
	reDigit = regexp.MustCompile(`\b\d{4,8}\b`)
)

// heuristicConfidence scores text that looks like a job card when the
// provider reports no confidence of its own.
func heuristicConfidence(txt string) float64 {
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	l := strings.ToLower(txt)
	score := 0.2
	if reLabel.MatchString(l) {
		score += 0.25
	}
	if rePlate.MatchString(l) {
		score += 0.2
	}
	if reDigit.MatchString(l) {
		score += 0.15
	}
	if len(txt) > 80 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}
