// Package playback is the playback engine: an ordered queue of synthesized
// audio played one item at a time, a chained local-speech mode, and the
// elapsed/total timing reported to clients.
package playback
