// Package queue holds synthesized audio items waiting for playback.
// Items leave the queue in the order they were appended.
package queue
