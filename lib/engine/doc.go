// Package engine evaluates parsed statements against the shared tree
// mapping.
//
// Evaluate is called by workers (and by nothing else). It assumes the
// broker's lock table guarantees exclusive access to the target tree for
// writes, so it does no locking of its own.
//
// Results come in two shapes: list results (GET TREE yields subtrees, GET
// ATTR yields attribute dicts) that the worker streams to the client, and
// scalar results ({"count": N} for every mutation) that are sent as one
// frame. Evaluation errors are *store.Error values with RetCExecutionError
// or RetCPersistenceError.
package engine
