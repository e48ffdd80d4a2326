// Package speech drives an on-device speech synthesizer one utterance at a
// time. It backs the local-speech fallback when remote synthesis is not
// available.
package speech
