package speech

// Engine speaks single utterances. Speak replaces any utterance in progress.
// onEnd runs once the utterance finishes on its own; it does not run after
// Cancel or after being replaced.
type Engine interface {
	Speak(text string, onEnd func()) error
	Pause()
	Resume()
	Cancel()

	// Speaking reports whether an utterance is in progress, paused or not.
	Speaking() bool
	Paused() bool
}
