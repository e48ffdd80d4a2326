package chunk

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSentences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "simple sentences",
			input:    "Hello world. How are you? I'm fine!",
			expected: []string{"Hello world.", "How are you?", "I'm fine!"},
		},
		{
			name:     "newlines become spaces",
			input:    "First sentence.\nSecond sentence.\n\nThird sentence.",
			expected: []string{"First sentence.", "Second sentence.", "Third sentence."},
		},
		{
			name:     "lowercase continuation does not split",
			input:    "See e.g. the appendix. Then stop.",
			expected: []string{"See e.g. the appendix.", "Then stop."},
		},
		{
			name:     "digits and brackets start sentences",
			input:    `It ended. 42 people came. "Wow," she said. (Really.) [Note.]`,
			expected: []string{"It ended.", "42 people came.", `"Wow," she said.`, "(Really.) [Note.]"},
		},
		{
			name:     "no space after punctuation",
			input:    "Version 1.2.3 shipped.Next",
			expected: []string{"Version 1.2.3 shipped.Next"},
		},
		{
			name:     "empty",
			input:    "   \n\t ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sentences(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("Sentences() returned %d units %q, want %d %q", len(got), got, len(tt.expected), tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("unit %d = %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestChunkGreedyAccumulation(t *testing.T) {
	text := "One two. Three four. Five six."

	got := Chunk(text, 20)
	want := []string{"One two. Three four.", "Five six."}
	if len(got) != len(want) {
		t.Fatalf("Chunk() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChunkKeepsOversizedSentenceWhole(t *testing.T) {
	long := "Start " + strings.Repeat("word ", 40) + "end."
	text := "Short one. " + long + " Tail here."

	got := Chunk(text, 50)
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %q", len(got), got)
	}
	if got[1] != strings.TrimSpace(normalize(long)) {
		t.Errorf("oversized sentence was altered: %q", got[1])
	}
}

func TestChunkDefaultMaxLen(t *testing.T) {
	sentence := "This sentence is exactly fifty characters long ok."
	text := strings.Repeat(sentence+" ", 30)

	for _, c := range Chunk(text, 0) {
		if n := utf8.RuneCountInString(c); n > DefaultMaxLen {
			t.Errorf("chunk length %d exceeds default %d", n, DefaultMaxLen)
		}
	}
}

func TestChunkProperties(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&b, "Sentence number %d has\tsome   words in it. ", i)
		if i%7 == 0 {
			b.WriteString("\n\n")
		}
	}
	text := b.String()
	if len(text) < 3000 {
		t.Fatalf("test text too short: %d", len(text))
	}

	chunks := Chunk(text, 600)
	if len(chunks) < 5 {
		t.Fatalf("expected at least 5 chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 600 {
			t.Errorf("chunk %d has %d characters", i, n)
		}
		if c == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if !strings.HasSuffix(c, ".") {
			t.Errorf("chunk %d does not end on a sentence boundary: %q", i, c[len(c)-10:])
		}
	}

	if joined := strings.Join(chunks, " "); joined != normalize(text) {
		t.Error("joined chunks do not reconstruct the normalized text")
	}

	again := Chunk(text, 600)
	if len(again) != len(chunks) {
		t.Fatal("chunking is not deterministic")
	}
	for i := range chunks {
		if again[i] != chunks[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestWordCountAndEstimate(t *testing.T) {
	if n := WordCount("  Hello, world! It's 2024.  "); n != 5 {
		t.Errorf("WordCount() = %d, want 5", n)
	}
	if n := WordCount(""); n != 0 {
		t.Errorf("WordCount(\"\") = %d, want 0", n)
	}

	text := strings.Repeat("word ", 320)
	if got := EstimateSeconds(WordCount(text)); got != 120 {
		t.Errorf("EstimateSeconds(320 words) = %v, want 120", got)
	}
	if got := EstimateSeconds(0); got != 0 {
		t.Errorf("EstimateSeconds(0) = %v, want 0", got)
	}
}
