// Package broker implements the central event loop of scallionDB.
//
// A single goroutine (Run) owns the worker pool, the pending queue, the
// per-tree lock table and the save counters. It waits on three channels
// (workers, clients, saver) with a timeout equal to the heartbeat interval
// and processes each wake in a fixed order:
//
//  1. one worker message (Ready, Heartbeat, Partial, Failure, Complete)
//  2. heartbeats to idle workers once the heartbeat deadline passed
//  3. one sweep over the pending queue (expire or dispatch)
//  4. one client request (timeout check, parse, list trees, dispatch or queue)
//  5. one saver notification (release the flushed tree, reset its counter)
//     followed by another sweep
//  6. purge of idle workers whose expiry passed
//
// Lock rules: a write is dispatched only if no operation on its tree is
// running, a read only if no write on its tree is running. A completed write
// on a tree that still exists increments the tree's save counter. When the
// counter reaches the save limit the tree stays locked and a Flush job goes
// to the saver. The lock is released once the saver reports back. A failed
// flush releases the lock but keeps the counter, so the next write retries.
//
// Every client request gets exactly one terminal frame: COMPLETE, FAILURE,
// TIMEOUT or NONTREE.
//
// The broker never touches tree contents. The tree mapping is only asked for
// the names of all trees when answering SHOW.
package broker
