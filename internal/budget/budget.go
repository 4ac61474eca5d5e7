// Package budget estimates prompt sizes and bounds how much page content is
// handed to the model.
package budget

import (
	"math"
	"strings"
	"unicode/utf8"
)

// DefaultMaxContentChars bounds page content sent to the model.
const DefaultMaxContentChars = 10_000

// charsPerToken is a conservative English-text heuristic.
const charsPerToken = 4

// EstimateTokensFromChars converts a character count into an estimated token
// count. The result is at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / charsPerToken))
}

// EstimateTokens returns the estimated token count of a string.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(len(s))
}

// EstimatePromptTokens sums the estimates of every message part.
func EstimatePromptTokens(parts ...string) int {
	total := 0
	for _, p := range parts {
		total += EstimateTokens(p)
	}
	return total
}

// ModelContextTokens returns an estimated maximum context window for a given
// model name. Unknown models fall back to 8192.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return 8192
	}
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	for _, s := range suffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.tokens
		}
	}
	if strings.Contains(name, "-mini") || strings.HasPrefix(name, "gpt-4o") || strings.HasPrefix(name, "gpt-4.1") {
		return 128_000
	}
	return 8192
}

// HeadroomTokens is the larger of 5% of the model context or 512 tokens,
// covering tokenizer and message framing overheads.
func HeadroomTokens(modelName string) int {
	max := ModelContextTokens(modelName)
	dyn := int(math.Ceil(float64(max) * 0.05))
	if dyn < 512 {
		return 512
	}
	return dyn
}

// RemainingContext is the input token budget left after the prompt, the
// output reservation and headroom. Never negative.
func RemainingContext(modelName string, reservedForOutput int, promptTokens int) int {
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	remaining := ModelContextTokens(modelName) - HeadroomTokens(modelName) - reservedForOutput - promptTokens
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ContentCharLimit returns how many characters of page content fit next to
// the fixed prompt parts: the smaller of maxChars and what the model
// context allows. A non-positive maxChars means DefaultMaxContentChars.
func ContentCharLimit(modelName string, maxChars int, reservedForOutput int, fixedParts ...string) int {
	if maxChars <= 0 {
		maxChars = DefaultMaxContentChars
	}
	byContext := RemainingContext(modelName, reservedForOutput, EstimatePromptTokens(fixedParts...)) * charsPerToken
	return min(maxChars, byContext)
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

var knownModelMax = map[string]int{
	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-4-turbo":   128_000,
	"gpt-4.1":       1_000_000,
	"gpt-4.1-mini":  1_000_000,
	"gpt-3.5-turbo": 16_384,
	"llama-3":       8_192,
	"llama-3.1":     128_000,
	"gpt-oss-20b":   4_096,
}

var suffixes = []struct {
	suffix string
	tokens int
}{
	{"1m", 1_000_000},
	{"512k", 512_000},
	{"200k", 200_000},
	{"128k", 128_000},
	{"32k", 32_768},
}
