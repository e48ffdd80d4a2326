package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxLen is the chunk size used when the caller passes zero.
	DefaultMaxLen = 600

	// WordsPerMinute is the assumed speaking rate for duration estimates.
	WordsPerMinute = 160
)

var wordPattern = regexp.MustCompile(`\w+`)

// Chunk splits text into chunks of at most maxLen characters, breaking at
// sentence boundaries. A single sentence longer than maxLen is kept whole.
func Chunk(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}

	var chunks []string
	current := ""
	for _, s := range split(normalize(text)) {
		joined := strings.TrimSpace(current + " " + s)
		if utf8.RuneCountInString(joined) > maxLen && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
			current = s
			continue
		}
		current = joined
	}
	if current != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	return dropEmpty(chunks)
}

// Sentences splits text at sentence boundaries without a length bound.
func Sentences(text string) []string {
	units := split(normalize(text))
	for i, u := range units {
		units[i] = strings.TrimSpace(u)
	}
	return dropEmpty(units)
}

// WordCount counts runs of word characters.
func WordCount(text string) int {
	return len(wordPattern.FindAllStringIndex(strings.TrimSpace(text), -1))
}

// EstimateSeconds converts a word count into seconds of speech.
func EstimateSeconds(words int) float64 {
	if words <= 0 {
		return 0
	}
	return float64(words) / WordsPerMinute * 60
}

// normalize collapses every whitespace run into a single space.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// split cuts text after '.', '!' or '?' when whitespace follows and the next
// visible character starts a sentence, and at runs of newlines. Boundary
// whitespace is consumed; punctuation stays with the left unit.
func split(text string) []string {
	var units []string
	start := 0
	i := 0
	for i < len(text) {
		c := text[i]

		if c == '\n' {
			units = append(units, text[start:i])
			for i < len(text) && text[i] == '\n' {
				i++
			}
			start = i
			continue
		}

		if c == '.' || c == '!' || c == '?' {
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			if j > i+1 && j < len(text) && startsSentence(text[j]) {
				units = append(units, text[start:i+1])
				start = j
				i = j
				continue
			}
		}
		i++
	}
	units = append(units, text[start:])
	return units
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\f', '\v':
		return true
	}
	return false
}

func startsSentence(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '"', c == '\'', c == '(', c == '[':
		return true
	}
	return false
}

func dropEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
