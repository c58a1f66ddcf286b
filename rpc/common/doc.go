// Package common provides the data structures and utilities shared by the
// scallionDB broker, workers, saver, loader, transports and clients.
//
// The package focuses on:
//   - The tagged message variant exchanged between broker, workers and saver
//   - The client facing frame format (status tag plus payload)
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with the dragonboat logger
//
// Key Components:
//
//   - Message: one struct carrying every in-process message. MsgType says
//     which fields are meaningful. Factory functions (NewReady, NewComplete,
//     NewFlush, ...) build each variant. Message kinds are never derived
//     from the number of fields set.
//
//   - Frame / Status: a response frame for a client. A request is answered
//     with any number of MESSAGE frames and exactly one terminal frame
//     (COMPLETE, FAILURE, TIMEOUT or NONTREE).
//
//   - IResponder: the non-blocking sink the broker uses to answer a client.
//     Transports implement it per connection and request id.
//
//   - ServerConfig / ClientConfig: configuration with sectioned String()
//     output printed at startup.
//
//   - Logger: custom ILogger factory formatting lines as
//     "LEVEL | name | message".
package common
