// Package audio decodes synthesized speech (WAV and MP3) and plays it on the
// system output device through oto.
package audio
