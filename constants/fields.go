package constants

import (
	"strings"
)

// FieldType names one of the job fields the scanner tries to fill.
type FieldType string

const (
	FieldRegistration FieldType = "registration"
	FieldWIPNumber    FieldType = "wip_number"
	FieldJobNumber    FieldType = "job_number"
)

var allFields = []FieldType{
	FieldRegistration,
	FieldWIPNumber,
	FieldJobNumber,
}

func AllFields() []FieldType {
	out := make([]FieldType, len(allFields))
	copy(out, allFields)
	return out
}

// label synonyms seen on job cards, keyed by normalized text
var labelSynonyms = map[string]FieldType{
	"reg":                  FieldRegistration,
	"reg no":               FieldRegistration,
	"registration":         FieldRegistration,
	"registration no":      FieldRegistration,
	"registration number":  FieldRegistration,
	"vehicle reg":          FieldRegistration,
	"vehicle registration": FieldRegistration,
	"vrm":                  FieldRegistration,
	"wip":                  FieldWIPNumber,
	"wip no":               FieldWIPNumber,
	"wip number":           FieldWIPNumber,
	"w i p":                FieldWIPNumber,
	"work in progress":     FieldWIPNumber,
	"job":                  FieldJobNumber,
	"job no":               FieldJobNumber,
	"job number":           FieldJobNumber,
	"job card":             FieldJobNumber,
	"job ref":              FieldJobNumber,
	"job card no":          FieldJobNumber,
}

// NormalizeLabel lowercases and strips punctuation so "W.I.P. No:" becomes "w i p no".
func NormalizeLabel(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// CanonicalizeLabel maps a label as printed on a job card to a field type.
func CanonicalizeLabel(input string) (FieldType, bool) {
	normalized := NormalizeLabel(input)
	if normalized == "" {
		return "", false
	}
	if f, ok := labelSynonyms[normalized]; ok {
		return f, true
	}
	collapsed := strings.ReplaceAll(normalized, " ", "")
	switch {
	case strings.HasPrefix(collapsed, "wip"):
		return FieldWIPNumber, true
	case strings.HasPrefix(collapsed, "reg") || strings.HasPrefix(collapsed, "vrm"):
		return FieldRegistration, true
	case strings.HasPrefix(collapsed, "jobno") || strings.HasPrefix(collapsed, "jobcard") || strings.HasPrefix(collapsed, "jobnumber"):
		return FieldJobNumber, true
	}
	return "", false
}
