package statement

import (
	"encoding/json"

	"github.com/ValentinKolb/scallionDB/lib/tree"
)

// Kind classifies a statement for the lock table.
type Kind int

const (
	KindAdmin Kind = iota // no tree involved
	KindRead
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	default:
		return "admin"
	}
}

// Op is the leading keyword of a statement.
type Op string

const (
	OpGet    Op = "GET"
	OpPut    Op = "PUT"
	OpDelete Op = "DELETE"
	OpLoad   Op = "LOAD"
	OpSave   Op = "SAVE"
	OpShow   Op = "SHOW"
)

// Target distinguishes whole-subtree operations from attribute operations.
type Target string

const (
	TargetTree Target = "TREE"
	TargetAttr Target = "ATTR"
)

// Statement is a parsed wire statement.
type Statement struct {
	Op        Op
	Target    Target // empty for LOAD, SAVE and SHOW
	Tree      string // empty for SHOW
	Reference tree.Reference
	Selector  tree.Selector

	// Attrs is the attribute list of GET/DELETE ATTR, nil means all (*).
	Attrs []string
	// AttrDict is the payload of PUT ATTR.
	AttrDict map[string]interface{}
	// Payload is the raw tree of PUT TREE. It is decoded once per target so
	// every inserted copy is an independent subtree.
	Payload json.RawMessage
	// Path is the source file of LOAD.
	Path string

	raw string
}

// Kind returns whether the statement reads, writes or needs no lock.
func (s *Statement) Kind() Kind {
	switch s.Op {
	case OpShow:
		return KindAdmin
	case OpGet:
		return KindRead
	default:
		return KindWrite
	}
}

// String returns the statement as it was received.
func (s *Statement) String() string {
	return s.raw
}
