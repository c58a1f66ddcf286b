// Package rpc contains the server and client side of scallionDB.
//
// The package is organized into several subpackages:
//
//   - common: Status tags, the in-process Message variant, configuration
//     structures and logging.
//
//   - transport: Network communication abstractions with TCP and Unix socket
//     implementations of the multipart frame protocol.
//
//   - broker: The event loop that queues client requests, enforces the per
//     tree locks and dispatches jobs to workers.
//
//   - worker: Executes statements against the tree mapping and streams the
//     results.
//
//   - saver: Persists trees after a number of writes.
//
//   - loader: Restores persisted trees at startup.
//
//   - client: The client library including the Tree handle.
//
//   - server: Wires everything together.
package rpc
