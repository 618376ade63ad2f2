package extract

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/techtime/constants"
	"github.com/joseph-ayodele/techtime/internal/entity"
)

var (
	reWIPDigits  = regexp.MustCompile(`\b\d{4,8}\b`)
	reJobDigits  = regexp.MustCompile(`\b\d{4,10}\b`)
	reJobToken   = regexp.MustCompile(`\b[A-Za-z0-9][A-Za-z0-9\-/]{2,14}\b`)
	reDateSpan   = regexp.MustCompile(`\b\d{1,4}[/.\-]\d{1,2}[/.\-]\d{1,4}\b`)
	rePhoneLabel = regexp.MustCompile(`(?i)\b(tel|telephone|phone|mob|mobile|fax)\b`)
	reYear       = regexp.MustCompile(`^(19|20)\d{2}$`)
)

const (
	wipBase          = 0.3
	wipSameLineBoost = 0.5
	wipNextLineBoost = 0.3
	wipDatePenalty   = 0.25
	wipYearPenalty   = 0.1
	wipPhonePenalty  = 0.3
	wipMoneyPenalty  = 0.3
	wipOtherLabel    = 0.15

	jobLabelled      = 0.75
	jobFirstAfter    = 0.1
	jobNextLine      = 0.5
	jobDigitFallback = 0.15
)

// ParseWIPNumber finds 4-8 digit work-in-progress numbers, best first.
func ParseWIPNumber(text string) []entity.ParseResult {
	lines := splitLines(text)
	var out []entity.ParseResult
	for li, ln := range lines {
		afterLabel := li > 0 && lines[li-1].labelOnly(constants.FieldWIPNumber)
		for _, loc := range reWIPDigits.FindAllStringIndex(ln.text, -1) {
			start, end := loc[0], loc[1]
			value := ln.text[start:end]
			conf := wipBase

			seg, labelled := ln.segmentOf(start, end)
			switch {
			case labelled && seg.field == constants.FieldWIPNumber:
				conf += wipSameLineBoost
			case labelled:
				conf -= wipOtherLabel
			case afterLabel:
				conf += wipNextLineBoost
			}
			if inDate(ln.text, start, end) {
				conf -= wipDatePenalty
			} else if reYear.MatchString(value) {
				conf -= wipYearPenalty
			}
			if phoneLike(ln.text, start, end) {
				conf -= wipPhonePenalty
			}
			if moneyLike(ln.text, start, end) {
				conf -= wipMoneyPenalty
			}
			out = append(out, entity.ParseResult{Value: value, Confidence: conf, SourceLine: strings.TrimSpace(ln.text)})
		}
	}
	return rank(out)
}

// ParseJobNumber finds job card numbers. wipTop is the best WIP value, which
// is never offered again from a line carrying a WIP label.
func ParseJobNumber(text, wipTop string) []entity.ParseResult {
	lines := splitLines(text)
	var out []entity.ParseResult
	for li, ln := range lines {
		src := strings.TrimSpace(ln.text)
		for _, s := range ln.labels {
			if s.field != constants.FieldJobNumber {
				continue
			}
			seg := ln.text[s.end:s.segEnd]
			for k, loc := range reJobToken.FindAllStringIndex(seg, -1) {
				v := strings.ToUpper(seg[loc[0]:loc[1]])
				if !strings.ContainsAny(v, "0123456789") {
					continue
				}
				conf := jobLabelled
				if k == 0 {
					conf += jobFirstAfter
				}
				out = append(out, entity.ParseResult{Value: v, Confidence: conf, SourceLine: src})
			}
		}

		if li > 0 && lines[li-1].labelOnly(constants.FieldJobNumber) && len(ln.labels) == 0 {
			if loc := reJobToken.FindStringIndex(ln.text); loc != nil {
				v := strings.ToUpper(ln.text[loc[0]:loc[1]])
				if strings.ContainsAny(v, "0123456789") {
					out = append(out, entity.ParseResult{Value: v, Confidence: jobNextLine, SourceLine: src})
				}
			}
		}

		if ln.hasLabel(constants.FieldWIPNumber) || ln.hasLabel(constants.FieldJobNumber) {
			continue
		}
		for _, loc := range reJobDigits.FindAllStringIndex(ln.text, -1) {
			if inDate(ln.text, loc[0], loc[1]) || phoneLike(ln.text, loc[0], loc[1]) || moneyLike(ln.text, loc[0], loc[1]) {
				continue
			}
			if _, labelled := ln.segmentOf(loc[0], loc[1]); labelled {
				continue
			}
			out = append(out, entity.ParseResult{Value: ln.text[loc[0]:loc[1]], Confidence: jobDigitFallback, SourceLine: src})
		}
	}

	ranked := rank(out)
	if wipTop == "" {
		return ranked
	}
	kept := ranked[:0]
	for _, r := range ranked {
		if r.Value == wipTop && lineHasWIPLabel(r.SourceLine) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// ParseAll runs every field parser over the same OCR text.
func ParseAll(text string) entity.Candidates {
	wip := ParseWIPNumber(text)
	var wipTop string
	if top, ok := entity.Top(wip); ok {
		wipTop = top.Value
	}
	return entity.Candidates{
		Registration: ParseRegistration(text),
		WIPNumber:    wip,
		JobNumber:    ParseJobNumber(text, wipTop),
	}
}

func lineHasWIPLabel(s string) bool {
	return line{text: s, labels: findLabels(s)}.hasLabel(constants.FieldWIPNumber)
}

func inDate(s string, start, end int) bool {
	for _, loc := range reDateSpan.FindAllStringIndex(s, -1) {
		if start >= loc[0] && end <= loc[1] {
			return true
		}
	}
	return false
}

// phoneLike: a phone label earlier on the line, or a leading-zero group
// followed by another digit group ("01632 960123").
func phoneLike(s string, start, end int) bool {
	if loc := rePhoneLabel.FindStringIndex(s); loc != nil && loc[1] <= start {
		return true
	}
	if s[start] != '0' {
		return false
	}
	rest := strings.TrimLeft(s[end:], " ")
	return rest != "" && rest[0] >= '0' && rest[0] <= '9'
}

func moneyLike(s string, start, end int) bool {
	before := strings.TrimRight(s[:start], " ")
	if strings.HasSuffix(before, "£") || strings.HasSuffix(before, "$") || strings.HasSuffix(before, "€") {
		return true
	}
	after := s[end:]
	return len(after) >= 3 && (after[0] == '.' || after[0] == ',') && isDigit(after[1]) && isDigit(after[2])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
