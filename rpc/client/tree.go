package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/scallionDB/lib/engine"
	"github.com/ValentinKolb/scallionDB/lib/statement"
	"github.com/ValentinKolb/scallionDB/lib/tree"
)

// Tree is a handle for one named tree on the server.
//
// Selectors may be a map[string]interface{}, a slice of those or a
// tree.Selector. An empty reference means SELF, a nil attribute list means
// all attributes.
type Tree struct {
	client *Client
	name   string
}

// Name returns the tree name.
func (t *Tree) Name() string {
	return t.name
}

// --------------------------------------------------------------------------
// Reads
// --------------------------------------------------------------------------

// GetTree returns the selected subtrees.
func (t *Tree) GetTree(ctx context.Context, ref tree.Reference, selector interface{}) ([]*tree.Node, error) {
	stmt, err := statement.GetTree(t.name, ref, selector)
	if err != nil {
		return nil, err
	}
	var nodes []*tree.Node
	if err := t.list(ctx, stmt, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// GetAttrs returns the attributes of the selected nodes. Every dict carries
// the node's _id.
func (t *Tree) GetAttrs(ctx context.Context, ref tree.Reference, selector interface{}, attrs []string) ([]map[string]interface{}, error) {
	stmt, err := statement.GetAttrs(t.name, ref, selector, attrs)
	if err != nil {
		return nil, err
	}
	var dicts []map[string]interface{}
	if err := t.list(ctx, stmt, &dicts); err != nil {
		return nil, err
	}
	return dicts, nil
}

// --------------------------------------------------------------------------
// Writes (all return the number of affected nodes)
// --------------------------------------------------------------------------

// PutTree creates the tree with subtree as root if it does not exist, and
// otherwise appends subtree to every selected node.
func (t *Tree) PutTree(ctx context.Context, ref tree.Reference, selector interface{}, subtree interface{}) (int, error) {
	return t.count(ctx)(statement.PutTree(t.name, ref, selector, subtree))
}

// PutAttrs merges attrs into every selected node.
func (t *Tree) PutAttrs(ctx context.Context, ref tree.Reference, selector interface{}, attrs map[string]interface{}) (int, error) {
	return t.count(ctx)(statement.PutAttrs(t.name, ref, selector, attrs))
}

// DelTree removes the selected subtrees. Removing the root drops the tree.
func (t *Tree) DelTree(ctx context.Context, ref tree.Reference, selector interface{}) (int, error) {
	return t.count(ctx)(statement.DelTree(t.name, ref, selector))
}

// DelAttrs removes the listed attributes (all for nil) from the selected nodes.
func (t *Tree) DelAttrs(ctx context.Context, ref tree.Reference, selector interface{}, attrs []string) (int, error) {
	return t.count(ctx)(statement.DelAttrs(t.name, ref, selector, attrs))
}

// LoadTree replaces the tree with the content of a file on the server host and
// returns the number of loaded nodes.
func (t *Tree) LoadTree(ctx context.Context, path string) (int, error) {
	return t.count(ctx)(statement.Load(t.name, path))
}

// SaveTree writes the tree to the server's data directory and returns the number
// of saved nodes.
func (t *Tree) SaveTree(ctx context.Context) (int, error) {
	return t.count(ctx)(statement.Save(t.name))
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *Tree) list(ctx context.Context, stmt string, out interface{}) error {
	resp, err := t.client.Execute(ctx, stmt)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("invalid response to %q: %w", stmt, err)
	}
	return nil
}

// count returns a function executing a built statement and decoding its
// count result. It takes the builder output directly.
func (t *Tree) count(ctx context.Context) func(stmt string, err error) (int, error) {
	return func(stmt string, err error) (int, error) {
		if err != nil {
			return 0, err
		}
		resp, err := t.client.Execute(ctx, stmt)
		if err != nil {
			return 0, err
		}
		var c engine.Count
		if err := json.Unmarshal(resp.Body, &c); err != nil {
			return 0, fmt.Errorf("invalid response to %q: %w", stmt, err)
		}
		return c.Count, nil
	}
}
