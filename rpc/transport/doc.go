// Package transport defines the interfaces for the client facing
// communication of scallionDB. It provides a common contract that all
// transport implementations must fulfill, so the broker and the clients
// stay independent of the network protocol.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - Streaming responses: one request yields any number of partial frames
//     and exactly one terminal frame
//   - Enabling multiple transport implementations (TCP, Unix sockets)
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations
//     that handles connection management and streams responses back to the
//     caller.
//
//   - IRPCServerTransport: Interface for server-side transport implementations
//     that receives requests and hands them to a handler together with a
//     non-blocking responder.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
package transport
