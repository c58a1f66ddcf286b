package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ValentinKolb/scallionDB/lib/statement"
	"github.com/ValentinKolb/scallionDB/lib/store"
	"github.com/ValentinKolb/scallionDB/rpc/common"
	"github.com/ValentinKolb/scallionDB/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("client")
)

// Response is the outcome of one statement.
type Response struct {
	Status common.Status // terminal status
	Body   []byte        // concatenated MESSAGE payloads
	Detail string        // payload of the terminal frame
}

// ChunkFunc receives the MESSAGE payloads of a streamed response in order.
type ChunkFunc func(chunk []byte) error

// Client sends statements to a scallionDB server.
type Client struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
}

// New connects the transport and returns a client using it.
func New(config common.ClientConfig, t transport.IRPCClientTransport) (*Client, error) {
	if err := t.Connect(config); err != nil {
		return nil, err
	}
	return &Client{config: config, transport: t}, nil
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

// Tree returns a handle for the named tree. The tree does not need to exist.
func (c *Client) Tree(name string) *Tree {
	return &Tree{client: c, name: name}
}

// Trees returns the names of all trees known to the server.
func (c *Client) Trees(ctx context.Context) ([]string, error) {
	resp, err := c.Execute(ctx, statement.Show())
	if err != nil {
		return nil, err
	}
	if resp.Status != common.StatusNonTree {
		return nil, fmt.Errorf("unexpected %s response to %s", resp.Status, statement.Show())
	}
	var names []string
	if err := json.Unmarshal([]byte(resp.Detail), &names); err != nil {
		return nil, fmt.Errorf("invalid tree listing: %w", err)
	}
	return names, nil
}

// Execute sends a raw statement and collects the full response. FAILURE and
// TIMEOUT responses are returned as *store.Error.
func (c *Client) Execute(ctx context.Context, stmt string) (*Response, error) {
	var body []byte
	final, err := c.Stream(ctx, stmt, func(chunk []byte) error {
		body = append(body, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Response{Status: final.Status, Body: body, Detail: string(final.Payload)}, nil
}

// Stream sends a raw statement and hands every MESSAGE payload to fn as it
// arrives. It returns the terminal frame. FAILURE and TIMEOUT responses are
// returned as *store.Error.
func (c *Client) Stream(ctx context.Context, stmt string, fn ChunkFunc) (common.Frame, error) {
	req := common.Request{Statement: stmt}
	if c.config.TimeoutMs > 0 {
		req.Timeout = c.config.Timeout()
		req.HasTimeout = true
	}

	var final common.Frame
	var terminal bool
	err := c.transport.Stream(ctx, req, func(f common.Frame) error {
		if f.Status.IsTerminal() {
			final, terminal = f, true
			return nil
		}
		if f.Status != common.StatusMessage {
			return fmt.Errorf("unexpected %s frame", f.Status)
		}
		return fn(f.Payload)
	})
	if err != nil {
		return common.Frame{}, err
	}
	if !terminal {
		return common.Frame{}, fmt.Errorf("response to %q ended without a terminal frame", stmt)
	}

	Logger.Debugf("%s <- %s", final.Status, stmt)
	switch final.Status {
	case common.StatusFailure:
		return final, parseFailure(string(final.Payload))
	case common.StatusTimeout:
		return final, store.NewError(store.RetCTimeout, string(final.Payload))
	}
	return final, nil
}

// parseFailure turns the text of a FAILURE frame back into a *store.Error.
// Text without a known code prefix is reported as an internal error.
func parseFailure(text string) error {
	for code := store.RetCInternalError; code <= store.RetCWorkerLiveness; code++ {
		if msg, ok := strings.CutPrefix(text, code.String()+": "); ok {
			return store.NewError(code, msg)
		}
	}
	return store.NewError(store.RetCInternalError, text)
}
