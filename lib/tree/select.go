package tree

import (
	"fmt"
	"reflect"
	"strings"
)

// --------------------------------------------------------------------------
// References
// --------------------------------------------------------------------------

// Reference names the relation between the nodes matched by a selector and
// the nodes an operation acts on.
type Reference string

const (
	RefSelf        Reference = "SELF"
	RefChildren    Reference = "CHILDREN"
	RefParent      Reference = "PARENT"
	RefDescendants Reference = "DESCENDANTS"
	RefAncestors   Reference = "ANCESTORS"
	RefSiblings    Reference = "SIBLINGS"
)

var (
	// TreeReferences are accepted by GET/PUT/DELETE TREE.
	TreeReferences = []Reference{RefSelf, RefChildren, RefParent, RefDescendants, RefAncestors, RefSiblings}
	// AttrReferences are accepted by GET/PUT/DELETE ATTR.
	AttrReferences = []Reference{RefSelf, RefChildren, RefParent}
)

// ParseReference parses a reference name (case-insensitive) and checks it
// against the allowed set.
func ParseReference(s string, allowed []Reference) (Reference, error) {
	ref := Reference(strings.ToUpper(s))
	for _, a := range allowed {
		if a == ref {
			return ref, nil
		}
	}
	return "", fmt.Errorf("invalid reference type %q, valid references are %v", s, allowed)
}

// Resolve maps the selected nodes to the nodes the reference points at.
// The result keeps first-seen order and contains no duplicates.
func Resolve(ref Reference, nodes []*Node) []*Node {
	seen := make(map[*Node]struct{})
	var out []*Node
	add := func(n *Node) {
		if n == nil {
			return
		}
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}

	for _, n := range nodes {
		switch ref {
		case RefSelf:
			add(n)
		case RefChildren:
			for _, c := range n.Children {
				add(c)
			}
		case RefParent:
			add(n.parent)
		case RefDescendants:
			for _, c := range n.Children {
				c.Walk(add)
			}
		case RefAncestors:
			for p := n.parent; p != nil; p = p.parent {
				add(p)
			}
		case RefSiblings:
			if n.parent == nil {
				continue
			}
			for _, s := range n.parent.Children {
				if s != n {
					add(s)
				}
			}
		}
	}
	return out
}

// --------------------------------------------------------------------------
// Selectors
// --------------------------------------------------------------------------

// Selector is a union of attribute patterns. A node matches a pattern when
// every key of the pattern equals the corresponding node attribute, _id
// included. The empty pattern matches every node.
type Selector []map[string]interface{}

// Matches reports whether the node matches any pattern of the selector.
func (s Selector) Matches(n *Node) bool {
	for _, pattern := range s {
		if matchPattern(pattern, n) {
			return true
		}
	}
	return false
}

// Select returns all nodes of the subtree at root matching the selector,
// in pre-order.
func Select(root *Node, s Selector) []*Node {
	var out []*Node
	if root == nil {
		return out
	}
	root.Walk(func(n *Node) {
		if s.Matches(n) {
			out = append(out, n)
		}
	})
	return out
}

func matchPattern(pattern map[string]interface{}, n *Node) bool {
	for k, want := range pattern {
		if k == FieldID {
			if id, ok := want.(string); !ok || id != n.ID {
				return false
			}
			continue
		}
		got, ok := n.Attrs[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
