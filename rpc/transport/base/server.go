package base

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/scallionDB/lib/util"
	"github.com/ValentinKolb/scallionDB/rpc/common"
	"github.com/ValentinKolb/scallionDB/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// outFrame is a response waiting to be written to a connection
type outFrame struct {
	requestID uint64
	parts     [][]byte
}

// serverConnection is one accepted client connection. Responses are queued
// in an unbounded queue and written by a dedicated goroutine, so responders
// never block.
type serverConnection struct {
	conn   net.Conn
	out    *util.MPSC[outFrame]
	closed atomic.Bool
}

// responder answers one request on one connection
type responder struct {
	c         *serverConnection
	requestID uint64
}

func (r responder) Respond(f common.Frame) bool {
	if r.c.closed.Load() {
		return false
	}
	return r.c.out.Push(outFrame{requestID: r.requestID, parts: f.Parts()})
}

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector   IServerConnector
	handler     transport.ServerHandleFunc
	config      common.ServerConfig
	listener    net.Listener
	connections *xsync.MapOf[*serverConnection, struct{}]
	wg          sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector:   connector,
		connections: xsync.NewMapOf[*serverConnection, struct{}](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return errors.New("no handler registered")
	}
	t.config = config

	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}
	t.listener = listener

	Logger.Infof("Listening for clients on %s (%s)", listener.Addr(), t.connector.GetName())
	return nil
}

func (t *serverTransport) Serve(ctx context.Context) error {
	if t.listener == nil {
		return errors.New("transport is not listening")
	}

	go func() {
		<-ctx.Done()
		t.listener.Close()
	}()

	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if err := t.connector.UpgradeConnection(conn); err != nil {
			Logger.Warningf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
		}

		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.handleConnection(conn)
		}()
	}

	// close all open connections and wait for their goroutines
	t.connections.Range(func(c *serverConnection, _ struct{}) bool {
		c.conn.Close()
		return true
	})
	t.wg.Wait()
	Logger.Infof("Stopped %s transport", t.connector.GetName())
	return nil
}

func (t *serverTransport) Addr() string {
	if t.listener == nil {
		return ""
	}
	return t.listener.Addr().String()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection reads requests from one connection until it is closed.
func (t *serverTransport) handleConnection(conn net.Conn) {
	c := &serverConnection{
		conn: conn,
		out:  util.NewMPSC[outFrame](),
	}
	t.connections.Store(c, struct{}{})
	defer t.connections.Delete(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeResponses()
	}()

	reader := bufio.NewReader(conn)
	for {
		requestID, parts, err := readFrame(reader)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				Logger.Debugf("Connection closed by %s", conn.RemoteAddr())
			} else {
				Logger.Errorf("Error reading request from %s: %v", conn.RemoteAddr(), err)
			}
			break
		}

		reply := responder{c: c, requestID: requestID}
		req, err := common.ParseRequest(parts)
		if err != nil {
			reply.Respond(common.Frame{Status: common.StatusFailure, Payload: []byte(err.Error())})
			continue
		}
		t.handler(req, reply)
	}

	c.closed.Store(true)
	c.out.Close()
	<-writerDone
	conn.Close()
}

// writeResponses writes queued responses until the queue is closed and
// drained. After a write error the remaining responses are discarded.
func (c *serverConnection) writeResponses() {
	w := bufio.NewWriter(c.conn)
	failed := false
	for f := range c.out.Recv() {
		if failed {
			continue
		}
		err := writeFrame(w, f.requestID, f.parts)
		if err == nil && c.out.Len() <= 0 {
			err = w.Flush()
		}
		if err != nil {
			Logger.Errorf("Failed to write response to %s: %v", c.conn.RemoteAddr(), err)
			failed = true
			c.closed.Store(true)
			c.conn.Close()
		}
	}
	if !failed {
		w.Flush()
	}
}
