// Package store defines the shared tree mapping of scallionDB and the error
// taxonomy used across the system.
//
// The package focuses on:
//   - A unified interface (ITreeStore) for looking up, registering and
//     dropping named trees
//   - A structured error type (*Error with a RetCode) that every component
//     uses to report per-request failures
//
// Key Components:
//
//   - ITreeStore Interface: the mapping from tree names to *tree.Tree values.
//     Workers and the saver share one instance. The broker only ever asks it
//     for names, it never touches tree contents.
//
//   - Error System: typed return codes (ParseError, ValidationError,
//     ExecutionError, TimeoutError, PersistenceError, WorkerLivenessError)
//     with descriptive messages. CodeOf classifies arbitrary errors.
//
// Implementations:
//
//	- Local Store (lstore): an in-memory mapping built on xsync.MapOf.
//	  Available in the "github.com/ValentinKolb/scallionDB/lib/store/lstore" package.
package store
