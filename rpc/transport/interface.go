package transport

import (
	"context"

	"github.com/ValentinKolb/scallionDB/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is called by a server transport for every received
// request. The responder stays valid until a terminal frame was sent or the
// connection was closed. The handler must not block for long, it runs on the
// reading goroutine of the connection.
type ServerHandleFunc func(req common.Request, reply common.IResponder)

// IRPCServerTransport is the interface for the server side transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers the request handler
	RegisterHandler(handler ServerHandleFunc)
	// Listen binds the listener. It returns as soon as the transport accepts
	// connections.
	Listen(config common.ServerConfig) error
	// Serve accepts connections until the context is canceled.
	Serve(ctx context.Context) error
	// Addr returns the bound address (empty before Listen).
	Addr() string
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// StreamFunc receives the response frames of one request in order. The last
// frame it receives is terminal. Returning an error stops the delivery of
// further frames to the callback.
type StreamFunc func(f common.Frame) error

// IRPCClientTransport is the interface for the client side transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Stream sends a request and calls fn for every response frame until the
	// terminal frame arrived, the context is canceled or the connection
	// failed.
	Stream(ctx context.Context, req common.Request, fn StreamFunc) error
	// Close closes the transport connection
	Close() error
}
