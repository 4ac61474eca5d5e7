package product

import (
	"regexp"
	"strconv"
	"strings"
)

// A space, NBSP or narrow NBSP groups thousands only when exactly three
// digits follow it, so "12.99 3 left" stays 12.99.
const (
	groupedNumber = `\d{1,3}(?:[ \x{00A0}\x{202F}]\d{3})+`
	plainNumber   = `\d+(?:[.,']\d+)*`
	currencyMark  = `(?:[$€£¥₹]|zł|\b(?:usd|eur|gbp|pln|chf|kr)\b)`
)

var (
	priceNumberRe     = regexp.MustCompile(groupedNumber + `(?:[.,]\d+)?\b|` + plainNumber)
	normalizedPriceRe = regexp.MustCompile(`^\d+\.\d{2}$`)
	// A leading currency accepts space grouping only with a decimal part; a
	// trailing currency marker closes the number itself.
	currencyAmountRe = regexp.MustCompile(`(?i)(?:[$€£¥₹]|\b(?:usd|eur|gbp|pln|chf)\b)\s?(?:` +
		groupedNumber + `[.,]\d{2}\b|` + plainNumber + `)|(?:` +
		groupedNumber + `(?:[.,]\d+)?|` + plainNumber + `)\s?` + currencyMark)
)

// NormalizePrice turns a human price ("1.299,00 €", "$1,299", "12,5") into
// dot-decimal form with two fraction digits. The last separator is the
// decimal mark when both kinds appear; a lone separator followed by exactly
// three digits is read as a thousands separator. Input without digits yields
// the empty string.
func NormalizePrice(s string) string {
	m := priceNumberRe.FindString(s)
	if m == "" {
		return ""
	}
	m = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\'', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, m)

	lastDot := strings.LastIndexByte(m, '.')
	lastComma := strings.LastIndexByte(m, ',')
	intPart, frac := m, ""
	switch {
	case lastDot >= 0 && lastComma >= 0:
		sep := max(lastDot, lastComma)
		intPart, frac = m[:sep], m[sep+1:]
	case lastDot >= 0 || lastComma >= 0:
		sep := max(lastDot, lastComma)
		tail := m[sep+1:]
		if strings.Count(m, string(m[sep])) == 1 && len(tail) != 3 {
			intPart, frac = m[:sep], tail
		}
	}
	intPart = digitsOnly(intPart)
	frac = digitsOnly(frac)
	if intPart == "" {
		intPart = "0"
	}
	if frac == "" {
		frac = "0"
	}
	v, err := strconv.ParseFloat(intPart+"."+frac, 64)
	if err != nil {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// IsNormalizedPrice reports whether s is already in dot-decimal form.
func IsNormalizedPrice(s string) bool {
	return normalizedPriceRe.MatchString(s)
}

// FindPrice returns the first currency amount in free text, normalized, or "".
func FindPrice(text string) string {
	m := currencyAmountRe.FindString(text)
	if m == "" {
		return ""
	}
	return NormalizePrice(m)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ReplaceCurrencyAmounts substitutes every currency amount in text.
func ReplaceCurrencyAmounts(text, repl string) string {
	return currencyAmountRe.ReplaceAllLiteralString(text, repl)
}
