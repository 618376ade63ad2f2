package extract

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/techtime/constants"
	"github.com/joseph-ayodele/techtime/internal/entity"
)

type plateFormat struct {
	name string
	re   *regexp.Regexp
	base float64
	fold bool
	// split is where the display space goes
	split func(s string) int
}

var (
	reCurrentPlate = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z]{3}$`)
	rePrefixPlate  = regexp.MustCompile(`^[A-Z][0-9]{1,3}[A-Z]{3}$`)
	reSuffixPlate  = regexp.MustCompile(`^[A-Z]{3}[0-9]{1,3}[A-Z]$`)
	reDatelessA    = regexp.MustCompile(`^[A-Z]{1,3}[0-9]{1,4}$`)
	reDatelessB    = regexp.MustCompile(`^[0-9]{1,4}[A-Z]{1,3}$`)
	reToken        = regexp.MustCompile(`[A-Za-z0-9]+`)
)

var strongFormats = []plateFormat{
	{name: "current", re: reCurrentPlate, base: 0.8, split: func(string) int { return 4 }},
	{name: "prefix", re: rePrefixPlate, base: 0.6, split: func(s string) int { return len(s) - 3 }},
	{name: "suffix", re: reSuffixPlate, base: 0.55, split: func(string) int { return 3 }},
	{name: "current", re: reCurrentPlate, base: 0.8, fold: true, split: func(string) int { return 4 }},
}

var datelessFormats = []plateFormat{
	{name: "dateless", re: reDatelessA, base: 0.35, split: firstDigit},
	{name: "dateless", re: reDatelessB, base: 0.35, split: firstLetter},
}

// words that look like dateless plates next to a number ("NO 1234", "TEL 0161")
var plateStopwords = map[string]bool{
	"NO": true, "TEL": true, "JOB": true, "WIP": true, "REG": true, "REF": true, "VRM": true,
	"MOB": true, "FAX": true, "TAX": true, "VAT": true, "QTY": true, "PG": true, "PAGE": true,
	"DATE": true, "TIME": true, "INV": true, "ACC": true, "ID": true, "AM": true, "PM": true,
	"MILES": true, "KM": true, "MI": true, "HRS": true, "AW": true, "AWS": true,
}

const (
	regSameLineBoost = 0.15
	regNextLineBoost = 0.08
	foldPenalty      = 0.05
)

type token struct {
	text       string
	start, end int
}

// ParseRegistration finds UK vehicle registrations, best first.
func ParseRegistration(text string) []entity.ParseResult {
	lines := splitLines(text)
	var out []entity.ParseResult
	for li, ln := range lines {
		afterLabel := li > 0 && lines[li-1].labelOnly(constants.FieldRegistration)
		toks := tokenize(ln.text)
		for i := 0; i < len(toks); {
			r, used := matchPlate(toks, i)
			if used == 0 {
				i++
				continue
			}
			start, end := toks[i].start, toks[i+used-1].end
			if seg, ok := ln.segmentOf(start, end); ok && seg.field == constants.FieldRegistration {
				r.Confidence += regSameLineBoost
			} else if afterLabel {
				r.Confidence += regNextLineBoost
			} else if ok {
				// value of some other label
				r.Confidence -= 0.2
			}
			r.SourceLine = strings.TrimSpace(ln.text)
			out = append(out, r)
			i += used
		}
	}
	return rank(out)
}

// matchPlate tries the token pair at i, then the single token, strong formats
// before dateless ones. It returns how many tokens were consumed.
func matchPlate(toks []token, i int) (entity.ParseResult, int) {
	single := strings.ToUpper(toks[i].text)
	var pair string
	if i+1 < len(toks) && toks[i+1].start-toks[i].end <= 2 {
		pair = single + strings.ToUpper(toks[i+1].text)
	}
	try := func(candidate string, formats []plateFormat) (entity.ParseResult, bool) {
		if candidate == "" || len(candidate) > 7 || len(candidate) < 2 {
			return entity.ParseResult{}, false
		}
		for _, f := range formats {
			value, folded := candidate, false
			if f.fold {
				value, folded = foldCurrent(candidate)
			}
			if !f.re.MatchString(value) {
				continue
			}
			if f.name == "dateless" && isStopword(value) {
				continue
			}
			conf := f.base
			if folded {
				conf -= foldPenalty
			}
			at := f.split(value)
			return entity.ParseResult{Value: value[:at] + " " + value[at:], Confidence: conf}, true
		}
		return entity.ParseResult{}, false
	}

	if r, ok := try(pair, strongFormats); ok {
		return r, 2
	}
	if r, ok := try(single, strongFormats); ok {
		return r, 1
	}
	if r, ok := try(pair, datelessFormats); ok {
		return r, 2
	}
	if r, ok := try(single, datelessFormats); ok {
		return r, 1
	}
	return entity.ParseResult{}, 0
}

// foldCurrent fixes O/0 and I/1 confusions position by position for the
// AB12 CDE layout. It returns the input unchanged when lengths differ.
func foldCurrent(s string) (string, bool) {
	if len(s) != 7 {
		return s, false
	}
	b := []byte(s)
	folded := false
	for i, c := range b {
		letter := i < 2 || i > 3
		switch {
		case letter && c == '0':
			b[i], folded = 'O', true
		case letter && c == '1':
			b[i], folded = 'I', true
		case !letter && c == 'O':
			b[i], folded = '0', true
		case !letter && c == 'I':
			b[i], folded = '1', true
		}
	}
	return string(b), folded
}

func isStopword(value string) bool {
	letters := strings.TrimFunc(value, func(r rune) bool { return r >= '0' && r <= '9' })
	return plateStopwords[letters]
}

func firstDigit(s string) int {
	return strings.IndexAny(s, "0123456789")
}

func firstLetter(s string) int {
	return strings.IndexFunc(s, func(r rune) bool { return r >= 'A' && r <= 'Z' })
}

func tokenize(s string) []token {
	locs := reToken.FindAllStringIndex(s, -1)
	out := make([]token, len(locs))
	for i, l := range locs {
		out[i] = token{text: s[l[0]:l[1]], start: l[0], end: l[1]}
	}
	return out
}
