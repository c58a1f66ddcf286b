// Package tcp implements TCP socket-based transport for the scallionDB
// client protocol. It provides concrete implementations of the base
// package's connector interfaces.
//
// This package builds on the base package's transport functionality,
// inheriting its framing, request correlation and reconnect handling. See
// the base package documentation for details.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
//
// Accepted connections have Nagle's algorithm disabled and keep-alive
// enabled.
package tcp
