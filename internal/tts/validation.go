package tts

import (
	"fmt"
	"strings"
)

// ParseProvider normalizes a provider name. Empty input yields ProviderNone.
func ParseProvider(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return ProviderNone, nil
	case "openai", "remote":
		return ProviderOpenAI, nil
	case "webspeech", "local", "local-speech":
		return ProviderWebSpeech, nil
	default:
		return ProviderNone, NewTTSError(ErrorCodeInvalidInput, fmt.Sprintf("unknown provider %q", name), ErrInvalidProvider)
	}
}

// ResolveProvider picks the effective provider for a session.
// The explicit override wins, then the stored preference. A remote provider
// falls back to local speech when the playback host cannot play audio.
func ResolveProvider(override, stored Provider, audioSupported bool) Provider {
	effective := override
	if effective == ProviderNone {
		effective = stored
	}
	if effective == ProviderNone {
		effective = ProviderOpenAI
	}
	if effective != ProviderWebSpeech && !audioSupported {
		effective = ProviderWebSpeech
	}
	return effective
}
