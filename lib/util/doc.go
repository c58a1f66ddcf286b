// Package util provides small concurrency helpers shared by the broker, the
// saver and the transport layer.
//
// The package contains:
//   - mpsc: an unbounded Multi-Producer Single-Consumer queue. Any goroutine
//     may push without ever blocking, a single goroutine drains the queue
//     through a channel that can be used in select statements.
//
// The broker relies on this to hand frames to client connections and jobs to
// the saver without ever waiting on a slow peer.
package util
