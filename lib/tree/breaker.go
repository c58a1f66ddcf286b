package tree

import (
	"encoding/json"
	"sort"
	"strings"
)

// Breaker produces the JSON form of a subtree as a finite sequence of string
// fragments. Concatenating all fragments yields one JSON object. A breaker
// never emits separators between independent subtrees, callers that stream
// several subtrees into one array insert the commas and brackets themselves.
//
// A Breaker is single use: once Next reports false it stays exhausted.
type Breaker struct {
	root    *Node
	stack   []breakerFrame
	started bool
	err     error
}

type breakerFrame struct {
	node *Node
	next int
}

// NewBreaker creates a breaker for the subtree rooted at n.
func NewBreaker(n *Node) *Breaker {
	return &Breaker{root: n}
}

// Next returns the next fragment. The boolean is false once the subtree has
// been fully emitted.
func (b *Breaker) Next() (string, bool) {
	if !b.started {
		b.started = true
		if b.root == nil {
			return "", false
		}
		return b.push(b.root, ""), true
	}
	if len(b.stack) == 0 {
		return "", false
	}

	top := &b.stack[len(b.stack)-1]
	if top.next < len(top.node.Children) {
		child := top.node.Children[top.next]
		sep := ""
		if top.next > 0 {
			sep = ","
		}
		top.next++
		return b.push(child, sep), true
	}

	b.stack = b.stack[:len(b.stack)-1]
	return "]}", true
}

// Err returns the first encoding error. Attributes that failed to encode are
// emitted as null.
func (b *Breaker) Err() error {
	return b.err
}

// push emits the opening fragment of n (attributes and the start of the
// children array) and schedules its children.
func (b *Breaker) push(n *Node, sep string) string {
	b.stack = append(b.stack, breakerFrame{node: n})

	var sb strings.Builder
	sb.WriteString(sep)
	sb.WriteString(`{"`)
	sb.WriteString(FieldID)
	sb.WriteString(`":`)
	sb.Write(b.encode(n.ID))

	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteByte(',')
		sb.Write(b.encode(k))
		sb.WriteByte(':')
		sb.Write(b.encode(n.Attrs[k]))
	}

	sb.WriteString(`,"`)
	sb.WriteString(FieldChildren)
	sb.WriteString(`":[`)
	return sb.String()
}

func (b *Breaker) encode(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return []byte("null")
	}
	return data
}
