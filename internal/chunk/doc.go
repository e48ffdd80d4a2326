// Package chunk splits text into sentence-aligned pieces bounded in length,
// the unit of remote synthesis and playback.
package chunk
