package extract

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/techtime/constants"
	"github.com/joseph-ayodele/techtime/internal/entity"
)

var labelPatterns = map[constants.FieldType]*regexp.Regexp{
	constants.FieldWIPNumber: regexp.MustCompile(
		`(?i)(\bw\.?\s?i\.?\s?p\b\.?|\bwork\s+in\s+progress\b)(\s*(no|number|num)\b\.?|\s*#)?\s*[:#\-]?`),
	constants.FieldRegistration: regexp.MustCompile(
		`(?i)\b(vehicle\s+)?(registration|reg|vrm)\b\.?(\s*(no|number|mark)\b\.?)?\s*[:#\-]?`),
	constants.FieldJobNumber: regexp.MustCompile(
		`(?i)\bjob\s*(card\s*(no\b\.?|number\b)?|no\b\.?|number\b|#|ref\b\.?|:)\s*[:#\-]?`),
}

// labelSpan is a field label found on a line. Its segment is the text between
// the end of the label and the start of the next label on the same line.
type labelSpan struct {
	field      constants.FieldType
	start, end int
	segEnd     int
}

type line struct {
	text   string
	labels []labelSpan
}

// labelOnly reports whether the line holds a label for f and nothing after it.
func (l line) labelOnly(f constants.FieldType) bool {
	for _, s := range l.labels {
		if s.field == f && strings.TrimSpace(l.text[s.end:s.segEnd]) == "" {
			return true
		}
	}
	return false
}

func (l line) hasLabel(f constants.FieldType) bool {
	for _, s := range l.labels {
		if s.field == f {
			return true
		}
	}
	return false
}

// segmentOf returns the label of field f whose segment contains [start, end).
func (l line) segmentOf(start, end int) (labelSpan, bool) {
	for _, s := range l.labels {
		if start >= s.end && end <= s.segEnd {
			return s, true
		}
	}
	return labelSpan{}, false
}

func splitLines(text string) []line {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]line, 0, len(raw))
	for _, t := range raw {
		out = append(out, line{text: t, labels: findLabels(t)})
	}
	return out
}

func findLabels(text string) []labelSpan {
	var spans []labelSpan
	for _, f := range constants.AllFields() {
		re := labelPatterns[f]
		for _, loc := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, labelSpan{field: f, start: loc[0], end: loc[1]})
		}
	}
	// "W I P No: 123" style labels the patterns miss
	if i := strings.IndexByte(text, ':'); i > 0 && !overlaps(spans, 0, i) {
		if f, ok := constants.CanonicalizeLabel(text[:i]); ok {
			spans = append(spans, labelSpan{field: f, start: 0, end: i + 1})
		}
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	// drop labels nested inside an earlier one ("Job No" inside "Job Card No")
	kept := spans[:0]
	for _, s := range spans {
		if n := len(kept); n > 0 && s.start < kept[n-1].end {
			continue
		}
		kept = append(kept, s)
	}
	for i := range kept {
		kept[i].segEnd = len(text)
		if i+1 < len(kept) {
			kept[i].segEnd = kept[i+1].start
		}
	}
	return kept
}

func overlaps(spans []labelSpan, start, end int) bool {
	for _, s := range spans {
		if s.start < end && start < s.end {
			return true
		}
	}
	return false
}

func clamp(c float64) float64 {
	c = math.Round(c*100) / 100
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// rank drops zero-confidence hits, merges duplicate values (keeping the first
// position and the highest confidence) and stable-sorts by descending confidence.
func rank(in []entity.ParseResult) []entity.ParseResult {
	out := make([]entity.ParseResult, 0, len(in))
	index := make(map[string]int, len(in))
	for _, r := range in {
		r.Confidence = clamp(r.Confidence)
		if r.Confidence <= 0 {
			continue
		}
		if i, ok := index[r.Value]; ok {
			if r.Confidence > out[i].Confidence {
				out[i].Confidence = r.Confidence
				out[i].SourceLine = r.SourceLine
			}
			continue
		}
		index[r.Value] = len(out)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}
