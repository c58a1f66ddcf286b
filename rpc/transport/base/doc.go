// Package base provides the foundation for the transport layers of
// scallionDB, implementing the client protocol independent of the specific
// network protocol (TCP, Unix sockets). It is extended with
// protocol-specific connectors.
//
// The package focuses on:
//   - Protocol-agnostic client and server transport implementations
//   - A multipart frame format with requestID tracking
//   - Streaming responses correlated to their request
//   - Error handling with retries and reconnection logic
//
// Frame format:
//
//	8 bytes  requestID (uint64, big endian)
//	4 bytes  part count (uint32, big endian)
//	per part 4 bytes length (uint32, big endian) followed by the data
//
// A request frame carries [statement] or [statement, timeoutMs]. Every
// response frame carries [STATUS, payload] under the id of its request.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific
//     operations.
//
//   - clientTransport: manages connections with round-robin load balancing.
//     Each request gets its own unbounded queue, filled by the connection's
//     reader goroutine, so a slow consumer of one stream never stalls the
//     other requests on the same connection.
//
//   - serverTransport: accepts connections, hands decoded requests to the
//     handler and writes responses from a per connection queue. Responders
//     never block, which keeps the broker loop independent of slow clients.
//
// Thread Safety:
//
//	All public methods are thread-safe. The server creates a reading and a
//	writing goroutine for each connection.
package base
