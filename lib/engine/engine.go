package engine

import (
	"github.com/ValentinKolb/scallionDB/lib/statement"
	"github.com/ValentinKolb/scallionDB/lib/store"
	"github.com/ValentinKolb/scallionDB/lib/tree"
)

// Result is the outcome of one evaluated statement. Exactly one of Nodes,
// Attrs and Value is meaningful, Kind tells which.
type Result struct {
	Kind  ResultKind
	Nodes []*tree.Node
	Attrs []map[string]interface{}
	Value interface{}
}

type ResultKind int

const (
	ResultValue ResultKind = iota
	ResultNodes
	ResultAttrs
)

// IsList returns whether the result must be streamed as a JSON array.
func (r *Result) IsList() bool {
	return r.Kind != ResultValue
}

// Len returns the number of list elements, or 1 for a scalar result.
func (r *Result) Len() int {
	switch r.Kind {
	case ResultNodes:
		return len(r.Nodes)
	case ResultAttrs:
		return len(r.Attrs)
	default:
		return 1
	}
}

// Count is the scalar result of every mutation.
type Count struct {
	Count int `json:"count"`
}

// Evaluate runs a statement against the tree mapping. folder is the data
// directory used by SAVE.
func Evaluate(trees store.ITreeStore, s *statement.Statement, folder string) (*Result, error) {
	switch s.Op {
	case statement.OpLoad:
		return load(trees, s)
	case statement.OpSave:
		return save(trees, s, folder)
	case statement.OpPut:
		if s.Target == statement.TargetTree {
			if _, ok := trees.Get(s.Tree); !ok {
				return create(trees, s)
			}
		}
	case statement.OpShow:
		return nil, store.NewError(store.RetCExecutionError, "SHOW is answered by the broker")
	}

	t, ok := trees.Get(s.Tree)
	if !ok {
		return nil, store.Errorf(store.RetCExecutionError, "tree %q does not exist", s.Tree)
	}
	targets := tree.Resolve(s.Reference, tree.Select(t.Root, s.Selector))

	switch {
	case s.Op == statement.OpGet && s.Target == statement.TargetTree:
		return &Result{Kind: ResultNodes, Nodes: targets}, nil
	case s.Op == statement.OpGet:
		attrs := make([]map[string]interface{}, len(targets))
		for i, n := range targets {
			attrs[i] = n.AttrView(s.Attrs)
		}
		return &Result{Kind: ResultAttrs, Attrs: attrs}, nil
	case s.Op == statement.OpPut && s.Target == statement.TargetTree:
		return appendSubtrees(s, targets)
	case s.Op == statement.OpPut:
		for _, n := range targets {
			for k, v := range s.AttrDict {
				n.Attrs[k] = v
			}
		}
		return count(len(targets)), nil
	case s.Op == statement.OpDelete && s.Target == statement.TargetTree:
		return deleteSubtrees(trees, t, targets), nil
	case s.Op == statement.OpDelete:
		for _, n := range targets {
			if s.Attrs == nil {
				n.Attrs = make(map[string]interface{})
				continue
			}
			for _, k := range s.Attrs {
				delete(n.Attrs, k)
			}
		}
		return count(len(targets)), nil
	}
	return nil, store.Errorf(store.RetCExecutionError, "unsupported statement %q", s.String())
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

func create(trees store.ITreeStore, s *statement.Statement) (*Result, error) {
	root, err := tree.FromJSON(s.Payload)
	if err != nil {
		return nil, store.Errorf(store.RetCExecutionError, "invalid tree: %v", err)
	}
	trees.Put(tree.New(s.Tree, root))
	return count(1), nil
}

func appendSubtrees(s *statement.Statement, targets []*tree.Node) (*Result, error) {
	for _, n := range targets {
		child, err := tree.FromJSON(s.Payload)
		if err != nil {
			return nil, store.Errorf(store.RetCExecutionError, "invalid tree: %v", err)
		}
		n.AddChild(child)
	}
	return count(len(targets)), nil
}

// deleteSubtrees detaches every target still attached to the root. Deleting
// the root itself drops the whole tree.
func deleteSubtrees(trees store.ITreeStore, t *tree.Tree, targets []*tree.Node) *Result {
	removed := 0
	for _, n := range targets {
		if n == t.Root {
			trees.Delete(t.Name)
			return count(removed + 1)
		}
		if n.Attached(t.Root) {
			n.Detach()
			removed++
		}
	}
	return count(removed)
}

func load(trees store.ITreeStore, s *statement.Statement) (*Result, error) {
	t, err := tree.Load(s.Tree, s.Path)
	if err != nil {
		return nil, store.Errorf(store.RetCExecutionError, "load %s from %s: %v", s.Tree, s.Path, err)
	}
	trees.Put(t)
	return count(t.Root.Size()), nil
}

func save(trees store.ITreeStore, s *statement.Statement, folder string) (*Result, error) {
	t, ok := trees.Get(s.Tree)
	if !ok {
		return nil, store.Errorf(store.RetCExecutionError, "tree %q does not exist", s.Tree)
	}
	if _, err := tree.Persist(t, folder); err != nil {
		return nil, store.Errorf(store.RetCPersistenceError, "save %s: %v", s.Tree, err)
	}
	return count(t.Root.Size()), nil
}

func count(n int) *Result {
	return &Result{Kind: ResultValue, Value: Count{Count: n}}
}
