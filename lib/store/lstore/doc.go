// Package lstore implements the local, in-memory tree mapping based on the
// store.ITreeStore interface.
//
// The mapping is a concurrent xsync.MapOf keyed by tree name. Lookups and
// registrations are safe from any goroutine. The trees themselves are plain
// mutable values, callers rely on the broker's lock table to never touch
// one tree from two goroutines when one of them writes.
//
// Persistence is not handled here: trees are flushed by the saver and
// recovered by the loader.
package lstore
