package tts

// Provider represents the speech source used for a reading session
type Provider string

const (
	// ProviderOpenAI synthesizes speech remotely through the OpenAI API
	ProviderOpenAI Provider = "openai"

	// ProviderWebSpeech speaks locally through the on-device speech engine
	ProviderWebSpeech Provider = "webspeech"

	// ProviderNone represents no provider selected
	ProviderNone Provider = ""
)

// String returns the provider name
func (p Provider) String() string {
	return string(p)
}

// Mode is the playback engine's current output mode as reported by status
type Mode string

const (
	// ModeAudio plays decoded audio buffers
	ModeAudio Mode = "audio"

	// ModeWebSpeech drives the local speech engine
	ModeWebSpeech Mode = "webspeech"
)

// Format is the audio encoding requested from the remote synthesizer
type Format string

const (
	// FormatWAV is larger but starts decoding faster; used for the first chunk
	FormatWAV Format = "wav"

	// FormatMP3 is compact; used for the remaining chunks
	FormatMP3 Format = "mp3"
)

// MIME types carried by queued audio items
const (
	MIMEWAV  = "audio/wav"
	MIMEMPEG = "audio/mpeg"
)

// MIME returns the MIME type of the format
func (f Format) MIME() string {
	switch f {
	case FormatWAV:
		return MIMEWAV
	default:
		return MIMEMPEG
	}
}
