package engine

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/scallionDB/lib/statement"
	"github.com/ValentinKolb/scallionDB/lib/store"
	"github.com/ValentinKolb/scallionDB/lib/store/lstore"
	"github.com/ValentinKolb/scallionDB/lib/tree"
)

func run(t *testing.T, trees store.ITreeStore, folder, raw string) *Result {
	t.Helper()
	s, err := statement.Parse(raw)
	if err != nil {
		t.Fatalf("Failed to parse %q: %v", raw, err)
	}
	res, err := Evaluate(trees, s, folder)
	if err != nil {
		t.Fatalf("Failed to evaluate %q: %v", raw, err)
	}
	return res
}

func countOf(t *testing.T, res *Result) int {
	t.Helper()
	c, ok := res.Value.(Count)
	if !ok {
		t.Fatalf("Expected a count result, got %#v", res.Value)
	}
	return c.Count
}

func seed(t *testing.T) store.ITreeStore {
	trees := lstore.NewLocalStore()
	run(t, trees, "", `PUT TREE orders SELF {} {"_id":"root","kind":"root"}`)
	run(t, trees, "", `PUT TREE orders SELF {"kind":"root"} {"kind":"order","n":1}`)
	run(t, trees, "", `PUT TREE orders SELF {"kind":"root"} {"kind":"order","n":2}`)
	run(t, trees, "", `PUT TREE orders SELF {"n":1} {"kind":"item"}`)
	return trees
}

func TestPutAndGetTree(t *testing.T) {
	trees := seed(t)

	res := run(t, trees, "", `GET TREE orders SELF {"kind":"order"}`)
	if res.Kind != ResultNodes || res.Len() != 2 {
		t.Fatalf("Expected 2 orders, got %d", res.Len())
	}

	res = run(t, trees, "", `GET TREE orders DESCENDANTS {"_id":"root"}`)
	if res.Len() != 3 {
		t.Errorf("Expected 3 descendants, got %d", res.Len())
	}

	res = run(t, trees, "", `GET TREE orders PARENT {"kind":"item"}`)
	if res.Len() != 1 || res.Nodes[0].Attrs["n"] != 1.0 {
		t.Errorf("Expected the first order as parent, got %v", res.Nodes)
	}

	res = run(t, trees, "", `GET TREE orders SELF {"kind":"missing"}`)
	if !res.IsList() || res.Len() != 0 {
		t.Errorf("Expected an empty list result, got %+v", res)
	}
}

func TestAttributes(t *testing.T) {
	trees := seed(t)

	if n := countOf(t, run(t, trees, "", `PUT ATTR orders SELF {"kind":"order"} {"paid":true}`)); n != 2 {
		t.Errorf("Expected 2 updated nodes, got %d", n)
	}

	res := run(t, trees, "", `GET ATTR orders SELF {"paid":true} ["n"]`)
	if res.Kind != ResultAttrs || res.Len() != 2 {
		t.Fatalf("Expected 2 attribute dicts, got %d", res.Len())
	}
	for _, attrs := range res.Attrs {
		if _, ok := attrs["paid"]; ok {
			t.Error("Attribute list should restrict the returned attributes")
		}
		if _, ok := attrs[tree.FieldID]; !ok {
			t.Error("Attribute dicts should carry the node id")
		}
	}

	run(t, trees, "", `DELETE ATTR orders SELF {"n":2} ["paid"]`)
	res = run(t, trees, "", `GET ATTR orders SELF {"paid":true} *`)
	if res.Len() != 1 {
		t.Errorf("Expected 1 paid order after deletion, got %d", res.Len())
	}

	run(t, trees, "", `DELETE ATTR orders SELF {"n":1} *`)
	res = run(t, trees, "", `GET ATTR orders CHILDREN {"_id":"root"} *`)
	if len(res.Attrs[0]) != 1 {
		t.Errorf("Expected only the id after deleting all attributes, got %v", res.Attrs[0])
	}
}

func TestDeleteTree(t *testing.T) {
	trees := seed(t)

	// the item is removed together with its order
	if n := countOf(t, run(t, trees, "", `DELETE TREE orders SELF [{"n":1},{"kind":"item"}]`)); n != 1 {
		t.Errorf("Expected 1 removed subtree, got %d", n)
	}
	if res := run(t, trees, "", `GET TREE orders SELF {}`); res.Len() != 2 {
		t.Errorf("Expected 2 remaining nodes, got %d", res.Len())
	}

	run(t, trees, "", `DELETE TREE orders SELF {"_id":"root"}`)
	if trees.Has("orders") {
		t.Error("Deleting the root should drop the tree")
	}
}

func TestMissingTree(t *testing.T) {
	trees := lstore.NewLocalStore()
	for _, raw := range []string{
		`GET TREE nope SELF {}`,
		`PUT ATTR nope SELF {} {"a":1}`,
		`DELETE TREE nope SELF {}`,
		`SAVE nope`,
		`LOAD nope /does/not/exist.tree`,
	} {
		s, err := statement.Parse(raw)
		if err != nil {
			t.Fatalf("Failed to parse %q: %v", raw, err)
		}
		if _, err := Evaluate(trees, s, t.TempDir()); store.CodeOf(err) != store.RetCExecutionError {
			t.Errorf("Expected ExecutionError for %q, got %v", raw, err)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	trees := seed(t)

	if n := countOf(t, run(t, trees, dir, `SAVE orders`)); n != 4 {
		t.Errorf("Expected 4 saved nodes, got %d", n)
	}

	before, _ := trees.Get("orders")
	fresh := lstore.NewLocalStore()
	run(t, fresh, dir, `LOAD orders `+filepath.Join(dir, "orders"+tree.FileExt))

	after, ok := fresh.Get("orders")
	if !ok {
		t.Fatal("Loaded tree not registered")
	}
	if !tree.Equal(before.Root, after.Root) {
		a, _ := json.Marshal(before.Root)
		b, _ := json.Marshal(after.Root)
		t.Errorf("Loaded tree differs:\n%s\n%s", a, b)
	}
}
