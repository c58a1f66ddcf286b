package tree

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/oklog/ulid/v2"
)

// Reserved structural field names. They are part of every serialized node
// but are never treated as attributes.
const (
	FieldID       = "_id"
	FieldChildren = "_children"
)

// IsReserved reports whether name is one of the structural fields.
func IsReserved(name string) bool {
	return name == FieldID || name == FieldChildren
}

// --------------------------------------------------------------------------
// Node and Tree
// --------------------------------------------------------------------------

// Node is a single element of a tree. Attrs never contains the reserved
// structural fields, those are carried by ID and Children.
type Node struct {
	ID       string
	Attrs    map[string]interface{}
	Children []*Node
	parent   *Node
}

// Tree is a named root node. Trees are owned by the shared tree mapping and
// are not safe for concurrent mutation, the broker guarantees that at most
// one writer touches a tree at a time.
type Tree struct {
	Name string
	Root *Node
}

// NewNode creates a node with a fresh id and a copy of attrs.
func NewNode(attrs map[string]interface{}) *Node {
	n := &Node{
		ID:    newID(),
		Attrs: make(map[string]interface{}, len(attrs)),
	}
	for k, v := range attrs {
		if !IsReserved(k) {
			n.Attrs[k] = v
		}
	}
	return n
}

// New creates a tree with the given root.
func New(name string, root *Node) *Tree {
	root.parent = nil
	return &Tree{Name: name, Root: root}
}

// Parent returns the parent of the node or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// AddChild appends child to the children of n.
func (n *Node) AddChild(child *Node) {
	child.parent = n
	n.Children = append(n.Children, child)
}

// Detach removes the node from its parent. It is a no-op for a root.
func (n *Node) Detach() {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.Children {
		if c == n {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// Attached reports whether the node is still reachable from root.
func (n *Node) Attached(root *Node) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == root {
			return true
		}
	}
	return false
}

// Walk visits the node and all descendants in pre-order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Size returns the number of nodes in the subtree.
func (n *Node) Size() int {
	size := 0
	n.Walk(func(*Node) { size++ })
	return size
}

// AttrView returns the attributes of the node together with its id.
// If names is nil all attributes are returned.
func (n *Node) AttrView(names []string) map[string]interface{} {
	view := map[string]interface{}{FieldID: n.ID}
	if names == nil {
		for k, v := range n.Attrs {
			view[k] = v
		}
		return view
	}
	for _, k := range names {
		if v, ok := n.Attrs[k]; ok {
			view[k] = v
		}
	}
	return view
}

// --------------------------------------------------------------------------
// JSON codec
// --------------------------------------------------------------------------

// MarshalJSON serializes the subtree. The output is the concatenation of
// all fragments produced by a Breaker, so streamed and whole results are
// byte-identical.
func (n *Node) MarshalJSON() ([]byte, error) {
	b := NewBreaker(n)
	var out []byte
	for {
		frag, ok := b.Next()
		if !ok {
			break
		}
		out = append(out, frag...)
	}
	return out, b.Err()
}

// UnmarshalJSON decodes a node and its children. Nodes without an _id get
// a freshly generated one.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := FromMap(raw)
	if err != nil {
		return err
	}
	*n = *decoded
	for _, c := range n.Children {
		c.parent = n
	}
	return nil
}

// FromJSON decodes a node from its JSON object form.
func FromJSON(data []byte) (*Node, error) {
	n := &Node{}
	if err := n.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return n, nil
}

// FromMap builds a node from a decoded JSON object.
func FromMap(raw map[string]interface{}) (*Node, error) {
	n := &Node{Attrs: make(map[string]interface{}, len(raw))}

	switch id := raw[FieldID].(type) {
	case nil:
		n.ID = newID()
	case string:
		n.ID = id
	default:
		return nil, fmt.Errorf("%s must be a string, got %T", FieldID, id)
	}

	for k, v := range raw {
		if !IsReserved(k) {
			n.Attrs[k] = v
		}
	}

	if children, ok := raw[FieldChildren]; ok && children != nil {
		list, ok := children.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%s must be an array, got %T", FieldChildren, children)
		}
		for i, c := range list {
			obj, ok := c.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be an object, got %T", FieldChildren, i, c)
			}
			child, err := FromMap(obj)
			if err != nil {
				return nil, err
			}
			n.AddChild(child)
		}
	}
	return n, nil
}

// Equal reports whether two subtrees have the same ids, attributes and
// children in the same order.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ID != b.ID || len(a.Children) != len(b.Children) {
		return false
	}
	if len(a.Attrs) != len(b.Attrs) || (len(a.Attrs) > 0 && !reflect.DeepEqual(a.Attrs, b.Attrs)) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func newID() string {
	return ulid.Make().String()
}
