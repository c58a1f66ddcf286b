// Package lockmgr implements the per-tree reader/writer lock table used by
// the broker to decide which queued requests may be dispatched.
//
// The lock table is owned by a single goroutine (the broker loop) and is not
// safe for concurrent use. It never blocks: callers ask whether a request
// could run right now and either acquire or leave the request queued.
//
// Core Functionality:
//   - Any number of concurrent readers per tree
//   - At most one writer per tree, and never together with a reader
//   - Release of the lock held by a completing operation, where the table
//     itself knows whether that operation was the writer
//
// Implementation Approach:
//
//	The table keeps two collections:
//
//	- active: a multiset of tree names with running operations. Each
//	  dispatch adds one occurrence, each release removes one. Two parallel
//	  reads of the same tree therefore need two releases before the tree is
//	  considered idle again.
//
//	- writing: the set of trees with a running write. A tree in writing
//	  always has exactly one occurrence in active.
//
//	A write can be dispatched only if the tree is not in active. A read can
//	be dispatched only if the tree is not in writing. On release, the
//	operation was a write if and only if the tree is in writing.
//
// Usage Example:
//
//	locks := lockmgr.NewLockTable()
//	if locks.CanAcquire("orders", false) {
//		locks.Acquire("orders", false)
//	}
//	// ... the read completes
//	wasWrite := locks.Release("orders")
package lockmgr
