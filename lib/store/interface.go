package store

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/scallionDB/lib/tree"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ITreeStore is the shared mapping from tree names to in-memory trees.
// It is shared by all workers and the saver. The mapping itself is safe for
// concurrent use, the trees it holds are not: exclusive access to a tree's
// contents is arbitrated by the broker's lock table.
type ITreeStore interface {
	// Get returns the tree with the given name. The boolean return value
	// indicates whether the tree exists.
	Get(name string) (t *tree.Tree, loaded bool)
	// Put inserts or replaces a tree under its name.
	Put(t *tree.Tree)
	// Delete removes a tree. Deleting a missing tree is not an error.
	Delete(name string)
	// Has returns whether a tree with the given name exists.
	Has(name string) (loaded bool)
	// Names returns the names of all trees, sorted.
	Names() []string
	// Len returns the number of trees.
	Len() int
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type used for every per-request failure. It wraps a
// return code (of type RetCode) and a message. Errors of this type are
// turned into exactly one terminal frame for the requesting client.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code RetCode, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// CodeOf returns the return code of err. Errors that are not of type *Error
// are reported as RetCInternalError, nil as RetCSuccess.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error.
	RetCParseError                      // 2: Malformed statement or selector JSON.
	RetCValidationError                 // 3: Reserved attribute name or wrong argument shape.
	RetCExecutionError                  // 4: Evaluating a well-formed command failed.
	RetCTimeout                         // 5: Deadline exceeded before or while queueing.
	RetCPersistenceError                // 6: Flushing a tree to disk failed.
	RetCWorkerLiveness                  // 7: A worker lost contact with the broker.
)

// String returns the name of the return code.
func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCParseError:
		return "ParseError"
	case RetCValidationError:
		return "ValidationError"
	case RetCExecutionError:
		return "ExecutionError"
	case RetCTimeout:
		return "TimeoutError"
	case RetCPersistenceError:
		return "PersistenceError"
	case RetCWorkerLiveness:
		return "WorkerLivenessError"
	default:
		return "Unknown"
	}
}
