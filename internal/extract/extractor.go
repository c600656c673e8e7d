package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/receiptwise/expense-tracker/constants"
	"github.com/receiptwise/expense-tracker/internal/entity"
	"github.com/receiptwise/expense-tracker/internal/recognize"
)

var (
	// Loose on purpose: the validator is the gatekeeper for scale and sign,
	// so a printed "$23.456" still surfaces as a candidate here.
	moneyRe = regexp.MustCompile(`[$£€]\s*\d{1,3}(?:,\d{3})*(?:\.\d+)?|\b\d{1,3}(?:,\d{3})*\.\d{2,}\b`)

	totalKeywordRe = regexp.MustCompile(`(?i)\b(?:grand\s+total|amount\s+due|balance\s+due|total)\b`)

	dateRes = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{2,4}\b`),
		regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?,?\s+\d{4}\b`),
	}

	dateLayouts = []string{
		"2006-1-2",
		"1/2/2006",
		"1/2/06",
		"1-2-2006",
		"1-2-06",
		"Jan 2, 2006",
		"Jan 2 2006",
		"January 2, 2006",
		"January 2 2006",
		"2 Jan 2006",
		"2 January 2006",
		"2 Jan, 2006",
	}

	streetSuffixRe = regexp.MustCompile(`(?i)\b(?:st|street|ave|avenue|rd|road|blvd|boulevard|dr|drive|ln|lane|way|ct|court|pl|place|hwy|highway)\b\.?`)
	streetNumberRe = regexp.MustCompile(`^\d{1,6}\s+\S+`)
	postalRe       = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	cityStateRe    = regexp.MustCompile(`^[A-Za-z .'-]+,\s*[A-Za-z]{2,}`)
	ordinalRe      = regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)`)
)

// Extractor scans recognized text for field candidates. It proposes, the
// validator disposes: everything it emits is a guess with a confidence score,
// and a single field kind may get several competing candidates.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract groups fragments into lines and emits candidates for every field
// kind it can find. now bounds date parsing: matches that parse only to a
// future date are not plausible transaction dates and are skipped.
func (e *Extractor) Extract(frags []recognize.Fragment, now time.Time) []Candidate {
	lines := groupLines(frags)
	if len(lines) == 0 {
		return nil
	}

	var out []Candidate
	claimed := make([]bool, len(lines))

	out = append(out, e.amountCandidates(lines, claimed)...)
	out = append(out, e.dateCandidates(lines, claimed, now)...)
	out = append(out, e.addressCandidates(lines, claimed)...)
	out = append(out, e.merchantCandidate(lines, claimed)...)
	out = append(out, e.itemsCandidate(lines, claimed)...)
	return out
}

// amountCandidates finds monetary values. A totals keyword on the same line,
// or alone on the previous line, marks the authoritative amount; otherwise
// confidence grows toward the bottom of the receipt where totals live.
func (e *Extractor) amountCandidates(lines []textLine, claimed []bool) []Candidate {
	type hit struct {
		line    int
		raw     string
		value   string
		cents   int64
		keyword bool
	}
	var hits []hit

	for i, ln := range lines {
		matches := moneyRe.FindAllString(ln.Text, -1)
		keyword := totalKeywordRe.MatchString(ln.Text)
		if keyword && len(matches) == 0 && i+1 < len(lines) {
			// "TOTAL" printed on its own line, amount on the next.
			if next := moneyRe.FindAllString(lines[i+1].Text, -1); len(next) > 0 {
				claimed[i] = true
				continue
			}
		}
		if len(matches) == 0 {
			continue
		}
		prevKeyword := i > 0 && totalKeywordRe.MatchString(lines[i-1].Text) &&
			!moneyRe.MatchString(lines[i-1].Text)
		claimed[i] = true
		for _, m := range matches {
			cents, err := entity.ParseAmount(m)
			if err != nil {
				cents = -1 // still a candidate; the validator rejects it
			}
			hits = append(hits, hit{
				line:    i,
				raw:     m,
				value:   strings.TrimSpace(m),
				cents:   cents,
				keyword: keyword || prevKeyword,
			})
		}
	}
	if len(hits) == 0 {
		return nil
	}

	// Larger values get a nudge so the total outranks line items when no
	// keyword disambiguates.
	var maxCents int64
	for _, h := range hits {
		if h.cents > maxCents {
			maxCents = h.cents
		}
	}

	cands := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		var conf float32
		if h.keyword {
			conf = 0.90
		} else {
			posFrac := float32(h.line) / float32(len(lines))
			conf = 0.55 + 0.08*posFrac
			if maxCents > 0 && h.cents == maxCents {
				conf += 0.05
			}
		}
		cands = append(cands, Candidate{
			Kind:       constants.FieldAmount,
			RawText:    h.raw,
			Value:      h.value,
			Confidence: conf,
			Fragments:  lines[h.line].Fragments,
		})
	}
	return cands
}

func (e *Extractor) dateCandidates(lines []textLine, claimed []bool, now time.Time) []Candidate {
	var cands []Candidate
	for i, ln := range lines {
		for _, re := range dateRes {
			m := re.FindString(ln.Text)
			if m == "" {
				continue
			}
			t, ok := parseDate(m)
			if !ok || t.After(now) {
				continue
			}
			posFrac := float32(i) / float32(len(lines))
			conf := 0.92 - 0.4*posFrac
			if conf < 0.52 {
				conf = 0.52
			}
			claimed[i] = true
			cands = append(cands, Candidate{
				Kind:       constants.FieldDate,
				RawText:    m,
				Value:      t.Format("2006-01-02"),
				Confidence: conf,
				Fragments:  ln.Fragments,
			})
			break
		}
	}
	return cands
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	s = ordinalRe.ReplaceAllString(s, "$1")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// addressCandidates joins consecutive address-looking lines into one
// candidate. A line qualifies by leading street number plus a street suffix,
// or by a postal code continuing the block.
func (e *Extractor) addressCandidates(lines []textLine, claimed []bool) []Candidate {
	var cands []Candidate
	for i := 0; i < len(lines); i++ {
		if claimed[i] || !looksLikeAddressStart(lines[i].Text) {
			continue
		}
		parts := []string{lines[i].Text}
		var fragIdx []int
		fragIdx = append(fragIdx, lines[i].Fragments...)
		claimed[i] = true
		for j := i + 1; j < len(lines) && !claimed[j]; j++ {
			if !looksLikeAddressCont(lines[j].Text) {
				break
			}
			parts = append(parts, lines[j].Text)
			fragIdx = append(fragIdx, lines[j].Fragments...)
			claimed[j] = true
			i = j
		}
		cands = append(cands, Candidate{
			Kind:       constants.FieldAddress,
			RawText:    strings.Join(parts, "\n"),
			Value:      strings.Join(parts, ", "),
			Confidence: 0.80,
			Fragments:  fragIdx,
		})
	}
	return cands
}

func looksLikeAddressStart(s string) bool {
	return streetNumberRe.MatchString(s) &&
		(streetSuffixRe.MatchString(s) || postalRe.MatchString(s))
}

func looksLikeAddressCont(s string) bool {
	if postalRe.MatchString(s) {
		return true
	}
	// "City, ST 12345" style continuation.
	return cityStateRe.MatchString(s)
}

// merchantCandidate takes the first line no other field claimed: receipts
// print the merchant name at the top.
func (e *Extractor) merchantCandidate(lines []textLine, claimed []bool) []Candidate {
	for i, ln := range lines {
		if claimed[i] {
			continue
		}
		claimed[i] = true
		return []Candidate{{
			Kind:       constants.FieldMerchant,
			RawText:    ln.Text,
			Value:      strings.TrimSpace(ln.Text),
			Confidence: 0.85,
			Fragments:  ln.Fragments,
		}}
	}
	return nil
}

// itemsCandidate gathers every remaining unclaimed line as the purchased
// items, joined with commas.
func (e *Extractor) itemsCandidate(lines []textLine, claimed []bool) []Candidate {
	var parts []string
	var fragIdx []int
	for i, ln := range lines {
		if claimed[i] {
			continue
		}
		parts = append(parts, ln.Text)
		fragIdx = append(fragIdx, ln.Fragments...)
	}
	if len(parts) == 0 {
		return nil
	}
	return []Candidate{{
		Kind:       constants.FieldItem,
		RawText:    strings.Join(parts, "\n"),
		Value:      strings.Join(parts, ", "),
		Confidence: 0.70,
		Fragments:  fragIdx,
	}}
}
