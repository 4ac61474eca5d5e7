package budget

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEstimateTokensFromChars(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, 0},
		{1, 1},
		{4, 1},
		{5, 2},
		{400, 100},
	}
	for _, c := range cases {
		if got := EstimateTokensFromChars(c.in); got != c.want {
			t.Fatalf("EstimateTokensFromChars(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestEstimatePromptTokens(t *testing.T) {
	// "system"(6)->2, "user message"(12)->3, "abc"->1
	if got := EstimatePromptTokens("system", "user message", "abc"); got != 6 {
		t.Fatalf("EstimatePromptTokens() = %d, want 6", got)
	}
}

func TestModelContextTokens(t *testing.T) {
	if ModelContextTokens("") != 8192 {
		t.Fatal("empty model should default to 8192")
	}
	if ModelContextTokens("GPT-4o") != 128_000 {
		t.Fatal("case-insensitive match for gpt-4o")
	}
	if ModelContextTokens("mystery-512k") != 512_000 {
		t.Fatal("512k suffix heuristic")
	}
	if ModelContextTokens("gpt-4o-2024-08-06") != 128_000 {
		t.Fatal("dated gpt-4o snapshot should be 128k")
	}
}

func TestContentCharLimit(t *testing.T) {
	if got := ContentCharLimit("gpt-4o", 0, 2000, "system prompt"); got != DefaultMaxContentChars {
		t.Fatalf("large model should keep default bound, got %d", got)
	}
	if got := ContentCharLimit("gpt-4o", 500, 2000); got != 500 {
		t.Fatalf("explicit bound should win, got %d", got)
	}
	// gpt-oss-20b: 4096 - 512 headroom - 2000 output - 0 prompt = 1584 tokens
	if got := ContentCharLimit("gpt-oss-20b", 50_000, 2000); got != 1584*4 {
		t.Fatalf("small model should clamp, got %d", got)
	}
	if got := ContentCharLimit("gpt-oss-20b", 50_000, 2000, strings.Repeat("x", 100_000)); got != 0 {
		t.Fatalf("overflowing prompt should leave no room, got %d", got)
	}
}

func TestTruncate(t *testing.T) {
	if Truncate("abc", 10) != "abc" {
		t.Fatal("short input unchanged")
	}
	if Truncate("abcdef", 3) != "abc" {
		t.Fatal("ascii cut")
	}
	got := Truncate("zł zł", 2)
	if !utf8.ValidString(got) || got != "z" {
		t.Fatalf("must not split a rune, got %q", got)
	}
	if Truncate("abc", 0) != "" {
		t.Fatal("zero bound")
	}
}
