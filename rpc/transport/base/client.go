package base

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/scallionDB/lib/util"
	"github.com/ValentinKolb/scallionDB/rpc/common"
	"github.com/ValentinKolb/scallionDB/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

// ErrConnectionLost is returned for requests whose connection failed before
// their terminal frame arrived.
var ErrConnectionLost = errors.New("connection lost")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// response is a frame (or a connection error) for a waiting request
type response struct {
	frame common.Frame
	err   error
}

// clientConnection represents a single net connection
type clientConnection struct {
	conn     net.Conn
	endpoint string
	stopCh   chan struct{} // Close signal for the reader goroutine
	requests *xsync.MapOf[uint64, *util.MPSC[response]]
	connMu   sync.Mutex // Protects the connection itself
	alive    atomic.Bool
	parent   *clientTransport
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex uint64 // Atomic counter for Round Robin
	nextRequestID uint64 // Atomic counter for unique request IDs
	stopping      atomic.Bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	t.config = config
	t.stopping.Store(false)
	t.closeConnections()

	connectionsPerEP := max(1, config.ConnectionsPerEndpoint)
	connections := make([]*clientConnection, 0, len(config.Endpoints)*connectionsPerEP)

	for _, endpoint := range config.Endpoints {
		for i := 0; i < connectionsPerEP; i++ {
			c := &clientConnection{
				endpoint: endpoint,
				stopCh:   make(chan struct{}),
				requests: xsync.NewMapOf[uint64, *util.MPSC[response]](),
				parent:   t,
			}

			if err := c.reconnect(); err != nil {
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}
			connections = append(connections, c)
			go c.readResponses()

			Logger.Debugf("Connected to %s (connection %d/%d)", endpoint, i+1, connectionsPerEP)
		}
	}

	if len(connections) == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	Logger.Debugf("Connected to %d out of %d connections to %d endpoints using %s transport",
		len(connections), len(config.Endpoints)*connectionsPerEP, len(config.Endpoints), t.connector.GetName())
	return nil
}

func (t *clientTransport) Stream(ctx context.Context, req common.Request, fn transport.StreamFunc) error {
	requestID := atomic.AddUint64(&t.nextRequestID, 1)
	parts := [][]byte{[]byte(req.Statement)}
	if req.HasTimeout {
		parts = common.RequestParts(req.Statement, max(req.Timeout, time.Millisecond))
	}

	// try to hand the request to a connection, retrying with exponential backoff
	var (
		conn    *clientConnection
		queue   *util.MPSC[response]
		lastErr error
	)
	maxRetries := max(1, t.config.RetryCount)
	backoffMs := 50
	for i := 0; i < maxRetries && queue == nil; i++ {
		if i > 0 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			select {
			case <-time.After(time.Duration(jitter) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoffMs *= 2
		}

		conn = t.getNextConnection()
		if conn == nil {
			return fmt.Errorf("no active connections available")
		}
		q := util.NewMPSC[response]()
		if lastErr = conn.send(requestID, parts, q); lastErr != nil {
			q.Close()
			Logger.Debugf("Request attempt %d/%d failed: %v", i+1, maxRetries, lastErr)
			continue
		}
		queue = q
	}
	if queue == nil {
		return fmt.Errorf("failed to send request after %d attempts: %v", maxRetries, lastErr)
	}

	defer func() {
		conn.requests.Delete(requestID)
		queue.Close()
		// drain late frames so the queue goroutine can exit
		go func() {
			for range queue.Recv() {
			}
		}()
	}()

	var cbErr error
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-queue.Recv():
			if !ok {
				return ErrConnectionLost
			}
			if r.err != nil {
				return r.err
			}
			if cbErr == nil {
				cbErr = fn(r.frame)
			}
			if r.frame.Status.IsTerminal() {
				return cbErr
			}
		}
	}
}

func (t *clientTransport) Close() error {
	t.stopping.Store(true)
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getNextConnection selects the next live connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	n := len(t.connections)
	for i := 0; i < n; i++ {
		index := atomic.AddUint64(&t.nextConnIndex, 1) % uint64(n)
		if c := t.connections[index]; c.alive.Load() {
			return c
		}
	}
	return nil
}

// closeConnections closes all active connections
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	defer t.connectionsMu.Unlock()

	for _, c := range t.connections {
		close(c.stopCh)

		c.connMu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.connMu.Unlock()
	}
	t.connections = nil
}

// send registers the response queue and writes the request frame
func (c *clientConnection) send(requestID uint64, parts [][]byte, queue *util.MPSC[response]) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("connection is closed")
	}

	c.requests.Store(requestID, queue)
	if timeout := c.parent.config.ConnectTimeout(); timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	if err := writeFrame(c.conn, requestID, parts); err != nil {
		c.requests.Delete(requestID)
		return err
	}
	return nil
}

// readResponses reads responses in a loop and distributes them to waiting requests
func (c *clientConnection) readResponses() {
	c.connMu.Lock()
	reader := bufio.NewReader(c.conn)
	c.connMu.Unlock()

	for {
		requestID, parts, err := readFrame(reader)

		select {
		case <-c.stopCh:
			c.failPending(ErrConnectionLost)
			return
		default:
		}

		if err != nil {
			Logger.Warningf("Error reading from %s: %v", c.endpoint, err)
			c.failPending(fmt.Errorf("%w: %v", ErrConnectionLost, err))

			if c.parent.stopping.Load() {
				return
			}
			if err := c.reconnect(); err != nil {
				Logger.Errorf("Failed to reconnect to %s: %v", c.endpoint, err)
				return
			}
			c.connMu.Lock()
			reader = bufio.NewReader(c.conn)
			c.connMu.Unlock()
			continue
		}

		queue, found := c.requests.Load(requestID)
		if !found {
			Logger.Debugf("Dropping response for unknown request ID %d", requestID)
			continue
		}

		frame, err := common.ParseFrame(parts)
		if err != nil {
			queue.Push(response{err: err})
			c.requests.Delete(requestID)
			queue.Close()
			continue
		}

		queue.Push(response{frame: frame})
		if frame.Status.IsTerminal() {
			c.requests.Delete(requestID)
			queue.Close()
		}
	}
}

// failPending delivers err to every waiting request of the connection
func (c *clientConnection) failPending(err error) {
	c.alive.Store(false)
	c.requests.Range(func(id uint64, queue *util.MPSC[response]) bool {
		queue.Push(response{err: err})
		queue.Close()
		c.requests.Delete(id)
		return true
	})
}

// reconnect establishes or restores a connection to the endpoint
func (c *clientConnection) reconnect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	conn, err := c.parent.connector.Connect(c.endpoint, c.parent.config.ConnectTimeout())
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", c.endpoint, err)
	}

	c.conn = conn
	c.alive.Store(true)
	return nil
}
