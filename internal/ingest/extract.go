package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

// PriceExtractor pulls an exit price out of free text. Strategies are tried
// in a fixed priority order; see DefaultExtractors.
type PriceExtractor interface {
	Name() string
	TryExtract(text string) (float64, bool)
}

// DefaultExtractors is the production cascade: "@ price", then exit keywords,
// then a filtered scan of bare numbers.
func DefaultExtractors() []PriceExtractor {
	return []PriceExtractor{
		AtSignExtractor{},
		NewKeywordExtractor(DefaultExitKeywords...),
		TokenScanExtractor{},
	}
}

// ExtractExitPrice runs the cascade strategy by strategy: every text is tried
// with the first strategy before the second strategy sees any of them.
// A zero price counts as no signal.
func ExtractExitPrice(extractors []PriceExtractor, texts ...string) (price float64, strategy string, ok bool) {
	for _, ex := range extractors {
		for _, text := range texts {
			if v, found := ex.TryExtract(text); found && v != 0 {
				return v, ex.Name(), true
			}
		}
	}
	return 0, "", false
}

var yearRe = regexp.MustCompile(`^20\d{2}$`)

// priceNumber is a 1-6 digit integer part with up to two decimals
const priceNumber = `(\d{1,6}(?:\.\d{1,2})?)`

func isYear(s string) bool {
	return yearRe.MatchString(s)
}

// normalizeText upper-cases text and reports whether it carries anything
func normalizeText(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if t == "" || t == "0" {
		return "", false
	}
	return strings.ToUpper(t), true
}

func parsePrice(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// AtSignExtractor reads the first number following '@'
type AtSignExtractor struct{}

var atSignRe = regexp.MustCompile(`@\s*` + priceNumber)

func (AtSignExtractor) Name() string { return "at_sign" }

func (AtSignExtractor) TryExtract(text string) (float64, bool) {
	t, ok := normalizeText(text)
	if !ok {
		return 0, false
	}
	m := atSignRe.FindStringSubmatch(t)
	if m == nil || isYear(m[1]) {
		return 0, false
	}
	return parsePrice(m[1])
}

// DefaultExitKeywords are checked in order; longer phrases come first
var DefaultExitKeywords = []string{"EXIT AT", "BOOK PROFIT AT", "SL HIT AT", "EXIT", "BOOK PROFIT"}

// KeywordExtractor reads a number directly after one of its keywords
type KeywordExtractor struct {
	patterns []*regexp.Regexp
}

func NewKeywordExtractor(keywords ...string) KeywordExtractor {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		patterns = append(patterns, regexp.MustCompile(regexp.QuoteMeta(strings.ToUpper(kw))+`\s*`+priceNumber))
	}
	return KeywordExtractor{patterns: patterns}
}

func (KeywordExtractor) Name() string { return "keyword" }

func (k KeywordExtractor) TryExtract(text string) (float64, bool) {
	t, ok := normalizeText(text)
	if !ok {
		return 0, false
	}
	for _, re := range k.patterns {
		m := re.FindStringSubmatch(t)
		if m == nil || isYear(m[1]) {
			continue
		}
		return parsePrice(m[1])
	}
	return 0, false
}

// TokenScanExtractor returns the first bare number that does not look like an
// option strike, a date, a year or part of a price range.
type TokenScanExtractor struct{}

var (
	tokenRe        = regexp.MustCompile(`\d{2,6}(?:\.\d{1,2})?`)
	optionSuffixRe = regexp.MustCompile(`(?i)^(CE|PE)`)
	yearFollowsRe  = regexp.MustCompile(`^\s*20\d{2}`)
	priceRangeRe   = regexp.MustCompile(`(?i)at\s*\d{1,6}\s*-\s*\d{1,6}`)
	monthPrefixes  = []string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}
)

func (TokenScanExtractor) Name() string { return "token_scan" }

func (TokenScanExtractor) TryExtract(text string) (float64, bool) {
	t, ok := normalizeText(text)
	if !ok {
		return 0, false
	}
	for _, loc := range tokenRe.FindAllStringIndex(t, -1) {
		start, end := loc[0], loc[1]
		token := t[start:end]
		next := t[end:min(end+6, len(t))]
		prev := t[max(0, start-10):start]

		if optionSuffixRe.MatchString(t[end:min(end+2, len(t))]) {
			continue
		}
		if startsWithMonth(strings.TrimSpace(next)) {
			continue
		}
		if yearFollowsRe.MatchString(next) || isYear(token) {
			continue
		}
		if priceRangeRe.MatchString(prev + token + next) {
			continue
		}
		return parsePrice(token)
	}
	return 0, false
}

func startsWithMonth(s string) bool {
	for _, m := range monthPrefixes {
		if strings.HasPrefix(s, m) {
			return true
		}
	}
	return false
}
