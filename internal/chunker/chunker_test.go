package chunker

import (
	"strings"
	"testing"
)

func TestSplit_InvalidBudget(t *testing.T) {
	for _, max := range []int{0, -1, -800} {
		if _, err := Split("some text", max); err != ErrInvalidChunkSize {
			t.Errorf("Split with max=%d: expected ErrInvalidChunkSize, got %v", max, err)
		}
	}
}

func TestSplit_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t  \n"} {
		chunks, err := Split(text, 10)
		if err != nil {
			t.Fatalf("Split(%q): unexpected error: %v", text, err)
		}
		if len(chunks) != 0 {
			t.Errorf("Split(%q): expected 0 chunks, got %d", text, len(chunks))
		}
	}
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	chunks, err := Split("just a few words here", 800)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "just a few words here" {
		t.Errorf("unexpected chunk text: %q", chunks[0].Text)
	}
	if chunks[0].TokenCount != 5 {
		t.Errorf("expected 5 tokens, got %d", chunks[0].TokenCount)
	}
}

func TestSplit_ChunkCount(t *testing.T) {
	// ceil(N/M) chunks for N tokens and budget M
	cases := []struct {
		tokens, max, want int
	}{
		{1, 1, 1},
		{10, 3, 4},
		{9, 3, 3},
		{100, 30, 4},
		{800, 800, 1},
		{801, 800, 2},
	}

	for _, tc := range cases {
		words := make([]string, tc.tokens)
		for i := range words {
			words[i] = "w"
		}
		chunks, err := Split(strings.Join(words, " "), tc.max)
		if err != nil {
			t.Fatal(err)
		}
		if len(chunks) != tc.want {
			t.Errorf("N=%d M=%d: expected %d chunks, got %d", tc.tokens, tc.max, tc.want, len(chunks))
		}
	}
}

func TestSplit_Boundedness(t *testing.T) {
	words := make([]string, 250)
	for i := range words {
		words[i] = "tok"
	}
	chunks, err := Split(strings.Join(words, " "), 30)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range chunks {
		if c.TokenCount > 30 {
			t.Errorf("chunk %d has %d tokens, budget is 30", i, c.TokenCount)
		}
		if got := CountTokens(c.Text); got != c.TokenCount {
			t.Errorf("chunk %d: recorded %d tokens but text has %d", i, c.TokenCount, got)
		}
	}
}

func TestSplit_Completeness(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog and keeps on running through the field until sunset"
	original := Tokenize(text)

	for _, max := range []int{1, 2, 3, 5, 7, 100} {
		chunks, err := Split(text, max)
		if err != nil {
			t.Fatal(err)
		}

		var rebuilt []string
		for _, c := range chunks {
			rebuilt = append(rebuilt, Tokenize(c.Text)...)
		}

		if len(rebuilt) != len(original) {
			t.Fatalf("max=%d: token count mismatch: %d vs %d", max, len(rebuilt), len(original))
		}
		for i := range original {
			if rebuilt[i] != original[i] {
				t.Errorf("max=%d: token %d mismatch: %q vs %q", max, i, rebuilt[i], original[i])
			}
		}
	}
}

func TestSplit_IndicesSequential(t *testing.T) {
	words := make([]string, 50)
	for i := range words {
		words[i] = "x"
	}
	chunks, err := Split(strings.Join(words, " "), 7)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
	}
}

func TestCountTokens(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"one two three", 3},
		{"  leading and trailing  ", 3},
		{"tabs\tand\nnewlines too", 4},
	}
	for _, tc := range cases {
		if got := CountTokens(tc.text); got != tc.want {
			t.Errorf("CountTokens(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}
