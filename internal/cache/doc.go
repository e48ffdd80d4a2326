// Package cache stores synthesized audio so that re-reading the same text
// with the same voice skips the network. An in-memory LRU (L1) sits in
// front of a zstd-compressed disk cache (L2) that survives restarts.
package cache
