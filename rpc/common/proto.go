package common

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/ValentinKolb/scallionDB/lib/statement"
)

// --------------------------------------------------------------------------
// Wire Status Tags
// --------------------------------------------------------------------------

// Status is the tag of a response frame sent to a client.
type Status string

const (
	StatusReady     Status = "READY"
	StatusHeartbeat Status = "HEARTBEAT"
	StatusMessage   Status = "MESSAGE"  // partial result, more frames follow
	StatusFailure   Status = "FAILURE"  // terminal: error text
	StatusComplete  Status = "COMPLETE" // terminal: tree name
	StatusTimeout   Status = "TIMEOUT"  // terminal: reason
	StatusNonTree   Status = "NONTREE"  // terminal: JSON list of tree names
)

// IsTerminal returns whether a frame with this status ends a request.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFailure, StatusComplete, StatusTimeout, StatusNonTree:
		return true
	default:
		return false
	}
}

func parseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusReady, StatusHeartbeat, StatusMessage, StatusFailure,
		StatusComplete, StatusTimeout, StatusNonTree:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status tag %q", s)
	}
}

// --------------------------------------------------------------------------
// Client Frames
// --------------------------------------------------------------------------

// Frame is a single response frame for a client request.
type Frame struct {
	Status  Status
	Payload []byte
}

// Parts returns the multipart representation [STATUS, payload].
func (f Frame) Parts() [][]byte {
	return [][]byte{[]byte(f.Status), f.Payload}
}

// ParseFrame decodes the multipart representation of a response frame.
func ParseFrame(parts [][]byte) (Frame, error) {
	if len(parts) != 2 {
		return Frame{}, fmt.Errorf("response frame must have 2 parts, got %d", len(parts))
	}
	status, err := parseStatus(string(parts[0]))
	if err != nil {
		return Frame{}, err
	}
	return Frame{Status: status, Payload: parts[1]}, nil
}

// IResponder delivers response frames to the client that sent a request.
// Respond must never block. It returns false if the client is gone.
type IResponder interface {
	Respond(f Frame) bool
}

// Request is a decoded client request.
type Request struct {
	Statement  string
	Timeout    time.Duration // only meaningful if HasTimeout
	HasTimeout bool
}

// RequestParts returns the multipart representation of a request:
// [statement] or [statement, timeoutMs].
func RequestParts(stmt string, timeout time.Duration) [][]byte {
	if timeout <= 0 {
		return [][]byte{[]byte(stmt)}
	}
	return [][]byte{[]byte(stmt), []byte(strconv.FormatInt(timeout.Milliseconds(), 10))}
}

// maxTimeoutMs is the largest timeout in milliseconds a time.Duration holds.
const maxTimeoutMs = math.MaxInt64 / int64(time.Millisecond)

// ParseRequest decodes the multipart representation of a request.
func ParseRequest(parts [][]byte) (Request, error) {
	switch len(parts) {
	case 1:
		return Request{Statement: string(parts[0])}, nil
	case 2:
		ms, err := strconv.ParseInt(string(parts[1]), 10, 64)
		if err != nil {
			return Request{}, fmt.Errorf("invalid timeout frame %q: %v", parts[1], err)
		}
		if ms < 0 {
			return Request{}, fmt.Errorf("invalid timeout frame %q: must not be negative", parts[1])
		}
		// saturate instead of wrapping around
		if ms > maxTimeoutMs {
			ms = maxTimeoutMs
		}
		return Request{
			Statement:  string(parts[0]),
			Timeout:    time.Duration(ms) * time.Millisecond,
			HasTimeout: true,
		}, nil
	default:
		return Request{}, errors.New("request must consist of a statement and an optional timeout")
	}
}

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message is the tagged variant exchanged between the broker, the workers
// and the saver. Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType

	WorkerID string         // Used for: Ready, Heartbeat, Partial, Failure, Complete
	Inbox    chan<- Message // Used for: Ready, Heartbeat (where the broker sends jobs and heartbeats)

	Tree    string // Used for: Failure, Complete, Flush, Flushed
	Exists  bool   // Used for: Complete (tree still present after the operation)
	Payload []byte // Used for: Partial
	Err     error  // Used for: Failure, Flushed (nil on success)

	Request   Request              // Used for: ClientRequest
	Statement *statement.Statement // Used for: Job
	Reply     IResponder           // Used for: ClientRequest, Job, Partial, Failure, Complete
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewReady announces a worker and the inbox the broker should use for it.
func NewReady(workerID string, inbox chan<- Message) Message {
	return Message{MsgType: MsgTReady, WorkerID: workerID, Inbox: inbox}
}

// NewHeartbeat creates a heartbeat. Workers set their id and inbox so a
// broker that purged them can take them back, the broker sends it empty.
func NewHeartbeat(workerID string, inbox chan<- Message) Message {
	return Message{MsgType: MsgTHeartbeat, WorkerID: workerID, Inbox: inbox}
}

// NewPartial creates a partial result that is forwarded verbatim.
func NewPartial(workerID string, reply IResponder, payload []byte) Message {
	return Message{MsgType: MsgTPartial, WorkerID: workerID, Reply: reply, Payload: payload}
}

// NewFailure reports a failed job. tree is the tree whose lock must be
// released.
func NewFailure(workerID string, reply IResponder, tree string, err error) Message {
	return Message{MsgType: MsgTFailure, WorkerID: workerID, Reply: reply, Tree: tree, Err: err}
}

// NewComplete reports a finished job.
func NewComplete(workerID string, reply IResponder, tree string, exists bool) Message {
	return Message{MsgType: MsgTComplete, WorkerID: workerID, Reply: reply, Tree: tree, Exists: exists}
}

// NewClientRequest wraps a decoded client request for the broker.
func NewClientRequest(req Request, reply IResponder) Message {
	return Message{MsgType: MsgTClientRequest, Request: req, Reply: reply}
}

// NewJob hands a parsed statement to a worker.
func NewJob(stmt *statement.Statement, reply IResponder) Message {
	return Message{MsgType: MsgTJob, Tree: stmt.Tree, Statement: stmt, Reply: reply}
}

// NewFlush asks the saver to persist a tree.
func NewFlush(tree string) Message {
	return Message{MsgType: MsgTFlush, Tree: tree}
}

// NewFlushed reports the outcome of a flush.
func NewFlushed(tree string, err error) Message {
	return Message{MsgType: MsgTFlushed, Tree: tree, Err: err}
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

type MessageType int

const (
	MsgTUnknown MessageType = iota

	// Worker to broker

	MsgTReady     // Worker is ready for jobs
	MsgTHeartbeat // Liveness signal, in both directions
	MsgTPartial   // Part of a streamed result
	MsgTFailure   // Job failed
	MsgTComplete  // Job finished

	// Broker to worker

	MsgTJob // Statement to execute

	// Client to broker

	MsgTClientRequest // Decoded client request

	// Broker to saver and back

	MsgTFlush   // Persist a tree
	MsgTFlushed // Tree persisted (or failed to)
)

// String returns the string representation of the MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTReady:
		return "ready"
	case MsgTHeartbeat:
		return "heartbeat"
	case MsgTPartial:
		return "partial"
	case MsgTFailure:
		return "failure"
	case MsgTComplete:
		return "complete"
	case MsgTJob:
		return "job"
	case MsgTClientRequest:
		return "clientRequest"
	case MsgTFlush:
		return "flush"
	case MsgTFlushed:
		return "flushed"
	default:
		return "unknown"
	}
}
