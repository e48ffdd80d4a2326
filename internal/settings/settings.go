// Package settings persists the user's read-aloud preferences: preferred
// provider, OpenAI credential, model and voice.
package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/charmbracelet/readaloud/internal/tts"
)

// Setting keys as stored and as accepted by `settings set`.
const (
	KeyProvider = "provider"
	KeyAPIKey   = "openaiApiKey"
	KeyModel    = "openaiModel"
	KeyVoice    = "openaiVoice"
)

// Keys lists every setting key in display order.
var Keys = []string{KeyProvider, KeyAPIKey, KeyModel, KeyVoice}

// Voices are the voices the speech endpoint is known to accept.
var Voices = []string{
	"alloy", "ash", "ballad", "coral", "echo", "fable",
	"nova", "onyx", "sage", "shimmer", "verse",
}

// Settings is the persisted preference record.
type Settings struct {
	Provider string `json:"provider" yaml:"provider"`
	APIKey   string `json:"openaiApiKey" yaml:"openaiApiKey"`
	Model    string `json:"openaiModel" yaml:"openaiModel"`
	Voice    string `json:"openaiVoice" yaml:"openaiVoice"`
}

// Store reads and writes settings.
type Store interface {
	// Get returns the stored settings with defaults filling unset fields.
	Get(ctx context.Context, defaults Settings) (Settings, error)
	// Set stores the non-empty fields of s.
	Set(ctx context.Context, s Settings) error
	Close() error
}

// Defaults returns the built-in defaults.
func Defaults() Settings {
	return Settings{
		Provider: tts.ProviderOpenAI.String(),
		Model:    "gpt-4o-mini-tts",
		Voice:    "alloy",
	}
}

// Field returns the value stored under key.
func (s Settings) Field(key string) (string, error) {
	switch key {
	case KeyProvider:
		return s.Provider, nil
	case KeyAPIKey:
		return s.APIKey, nil
	case KeyModel:
		return s.Model, nil
	case KeyVoice:
		return s.Voice, nil
	}
	return "", unknownKey(key)
}

// SetField sets the value for key.
func (s *Settings) SetField(key, value string) error {
	switch key {
	case KeyProvider:
		s.Provider = value
	case KeyAPIKey:
		s.APIKey = value
	case KeyModel:
		s.Model = value
	case KeyVoice:
		s.Voice = value
	default:
		return unknownKey(key)
	}
	return nil
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown setting %q, expected one of: %s", key, strings.Join(Keys, ", "))
}

// Validate checks the fields that have a closed set of values.
func (s Settings) Validate() error {
	_, err := tts.ParseProvider(s.Provider)
	return err
}

// Normalize rewrites provider aliases to their canonical names.
func (s Settings) Normalize() Settings {
	if p, err := tts.ParseProvider(s.Provider); err == nil && s.Provider != "" {
		s.Provider = p.String()
	}
	return s
}

// WithAPIKeyFallback fills an empty credential with key.
func (s Settings) WithAPIKeyFallback(key string) Settings {
	if s.APIKey == "" {
		s.APIKey = key
	}
	return s
}

// Masked hides all but the last four characters of the credential.
func (s Settings) Masked() Settings {
	n := len(s.APIKey)
	switch {
	case n == 0:
	case n <= 8:
		s.APIKey = strings.Repeat("*", n)
	default:
		s.APIKey = s.APIKey[:3] + strings.Repeat("*", n-7) + s.APIKey[n-4:]
	}
	return s
}

// merge overlays the non-empty fields of over onto base.
func merge(base, over Settings) Settings {
	for _, key := range Keys {
		v, _ := over.Field(key)
		if v != "" {
			_ = base.SetField(key, v)
		}
	}
	return base
}

// SuggestVoice returns the closest known voice to v when v is not known.
func SuggestVoice(v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	for _, known := range Voices {
		if known == v {
			return "", false
		}
	}

	matches := fuzzy.Find(v, Voices)
	if len(matches) > 0 {
		return matches[0].Str, true
	}

	// fall back to the voice sharing the longest prefix
	best, bestLen := "", 0
	for _, known := range Voices {
		n := commonPrefix(v, known)
		if n > bestLen {
			best, bestLen = known, n
		}
	}
	return best, bestLen > 0
}

func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
