package tree

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// sampleTree builds:
//
//	root(kind=root)
//	├── a(kind=item, n=1)
//	│   └── a1(kind=leaf)
//	└── b(kind=item, n=2)
func sampleTree() (*Tree, map[string]*Node) {
	root := &Node{ID: "root", Attrs: map[string]interface{}{"kind": "root"}}
	a := &Node{ID: "a", Attrs: map[string]interface{}{"kind": "item", "n": float64(1)}}
	a1 := &Node{ID: "a1", Attrs: map[string]interface{}{"kind": "leaf"}}
	b := &Node{ID: "b", Attrs: map[string]interface{}{"kind": "item", "n": float64(2)}}
	root.AddChild(a)
	root.AddChild(b)
	a.AddChild(a1)
	return New("sample", root), map[string]*Node{"root": root, "a": a, "a1": a1, "b": b}
}

func ids(nodes []*Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.ID
	}
	return strings.Join(parts, ",")
}

// TestJSONRoundTrip verifies that a tree survives marshal and unmarshal unchanged
func TestJSONRoundTrip(t *testing.T) {
	tr, _ := sampleTree()

	data, err := json.Marshal(tr.Root)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	decoded, err := FromJSON(data)
	if err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if !Equal(tr.Root, decoded) {
		t.Errorf("Tree doesn't match after round trip:\nOriginal: %s\nResult: %s", data, mustJSON(t, decoded))
	}
	if decoded.Children[0].Parent() != decoded {
		t.Errorf("Parent pointer not restored")
	}
}

// TestFromJSONAssignsIDs verifies that nodes without _id get one
func TestFromJSONAssignsIDs(t *testing.T) {
	n, err := FromJSON([]byte(`{"a":1,"_children":[{"b":2}]}`))
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if n.ID == "" || n.Children[0].ID == "" || n.ID == n.Children[0].ID {
		t.Errorf("Expected distinct generated ids, got %q and %q", n.ID, n.Children[0].ID)
	}
	if _, ok := n.Attrs[FieldChildren]; ok {
		t.Errorf("Reserved field leaked into attributes")
	}
}

// TestFromJSONInvalid verifies structural errors are reported
func TestFromJSONInvalid(t *testing.T) {
	cases := map[string]string{
		"not an object":    `[1,2]`,
		"id not a string":  `{"_id":5}`,
		"children not arr": `{"_children":{}}`,
		"child not object": `{"_children":[1]}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := FromJSON([]byte(input)); err == nil {
				t.Errorf("Expected error for %s", input)
			}
		})
	}
}

// TestBreakerMatchesMarshal verifies the fragments concatenate to valid JSON
func TestBreakerMatchesMarshal(t *testing.T) {
	tr, _ := sampleTree()

	b := NewBreaker(tr.Root)
	var sb strings.Builder
	fragments := 0
	for {
		frag, ok := b.Next()
		if !ok {
			break
		}
		fragments++
		sb.WriteString(frag)
	}

	if fragments < 2 {
		t.Errorf("Expected several fragments, got %d", fragments)
	}
	if !json.Valid([]byte(sb.String())) {
		t.Fatalf("Concatenated fragments are not valid JSON: %s", sb.String())
	}

	// exhausted breaker stays exhausted
	if _, ok := b.Next(); ok {
		t.Errorf("Breaker yielded after exhaustion")
	}

	expected := mustJSON(t, tr.Root)
	if sb.String() != expected {
		t.Errorf("Breaker output differs from MarshalJSON:\n%s\n%s", sb.String(), expected)
	}
}

// TestSelect tests selector matching
func TestSelect(t *testing.T) {
	tr, _ := sampleTree()

	testCases := []struct {
		name     string
		selector Selector
		expected string
	}{
		{"empty matches all", Selector{{}}, "root,a,a1,b"},
		{"by attribute", Selector{{"kind": "item"}}, "a,b"},
		{"by two attributes", Selector{{"kind": "item", "n": float64(2)}}, "b"},
		{"by id", Selector{{"_id": "a1"}}, "a1"},
		{"union", Selector{{"_id": "a1"}, {"kind": "root"}}, "root,a1"},
		{"no match", Selector{{"kind": "missing"}}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(Select(tr.Root, tc.selector))
			if got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

// TestResolve tests every reference kind
func TestResolve(t *testing.T) {
	_, n := sampleTree()

	testCases := []struct {
		ref      Reference
		from     []*Node
		expected string
	}{
		{RefSelf, []*Node{n["a"]}, "a"},
		{RefChildren, []*Node{n["root"]}, "a,b"},
		{RefParent, []*Node{n["a1"], n["b"]}, "a,root"},
		{RefParent, []*Node{n["root"]}, ""},
		{RefDescendants, []*Node{n["root"]}, "a,a1,b"},
		{RefAncestors, []*Node{n["a1"]}, "a,root"},
		{RefSiblings, []*Node{n["a"]}, "b"},
		{RefChildren, []*Node{n["root"], n["root"]}, "a,b"},
	}

	for _, tc := range testCases {
		t.Run(string(tc.ref), func(t *testing.T) {
			got := ids(Resolve(tc.ref, tc.from))
			if got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

// TestParseReference tests case handling and the allowed set
func TestParseReference(t *testing.T) {
	if ref, err := ParseReference("self", AttrReferences); err != nil || ref != RefSelf {
		t.Errorf("Expected SELF, got %q (%v)", ref, err)
	}
	if _, err := ParseReference("DESCENDANTS", AttrReferences); err == nil {
		t.Errorf("DESCENDANTS should not be valid for attribute operations")
	}
	if _, err := ParseReference("DESCENDANTS", TreeReferences); err != nil {
		t.Errorf("DESCENDANTS should be valid for tree operations: %v", err)
	}
}

// TestDetach tests removing subtrees
func TestDetach(t *testing.T) {
	tr, n := sampleTree()

	n["a"].Detach()
	if ids(tr.Root.Children) != "b" {
		t.Errorf("Expected only b to remain, got %q", ids(tr.Root.Children))
	}
	if n["a1"].Attached(tr.Root) {
		t.Errorf("a1 should no longer be reachable from root")
	}
	if tr.Root.Size() != 2 {
		t.Errorf("Expected size 2, got %d", tr.Root.Size())
	}

	// detaching a root is a no-op
	tr.Root.Detach()
	if tr.Root.Size() != 2 {
		t.Errorf("Root detach changed the tree")
	}
}

// TestPersistAndLoad tests the atomic file round trip
func TestPersistAndLoad(t *testing.T) {
	dir := t.TempDir()
	tr, _ := sampleTree()

	path, err := Persist(tr, dir)
	if err != nil {
		t.Fatalf("Failed to persist: %v", err)
	}
	if path != filepath.Join(dir, "sample.tree") {
		t.Errorf("Unexpected path %s", path)
	}
	if _, err := os.Stat(filepath.Join(dir, "sample.tmp")); !os.IsNotExist(err) {
		t.Errorf("Temporary file should have been renamed away")
	}

	loaded, err := Load("copy", path)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if loaded.Name != "copy" {
		t.Errorf("Expected name copy, got %s", loaded.Name)
	}
	if !Equal(tr.Root, loaded.Root) {
		t.Errorf("Loaded tree differs from persisted tree")
	}

	names, err := ListPersisted(dir)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if strings.Join(names, ",") != "sample" {
		t.Errorf("Expected [sample], got %v", names)
	}
}

// TestValidName tests which tree names can be used as file names
func TestValidName(t *testing.T) {
	testCases := []struct {
		name  string
		valid bool
	}{
		{"orders", true},
		{"orders.v2", true},
		{"order_items-1", true},
		{"", false},
		{".", false},
		{"..", false},
		{"../escaped", false},
		{"a..b", false},
		{"a/b", false},
		{`a\b`, false},
		{"my tree", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidName(tc.name)
			if tc.valid && err != nil {
				t.Errorf("Expected %q to be valid, got %v", tc.name, err)
			}
			if !tc.valid && err == nil {
				t.Errorf("Expected %q to be rejected", tc.name)
			}
		})
	}
}

// TestPersistRejectsEscapingName tests that no file is written outside the folder
func TestPersistRejectsEscapingName(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "data")
	tr := New("../escaped", NewNode(map[string]interface{}{"a": 1.0}))

	if _, err := Persist(tr, dir); err == nil {
		t.Fatalf("Expected an error for name %q", tr.Name)
	}
	if _, err := os.Stat(filepath.Join(parent, "escaped"+FileExt)); !os.IsNotExist(err) {
		t.Errorf("Persist wrote a file outside %s", dir)
	}
}

// TestListPersistedMissingFolder tests that a missing folder is not an error
func TestListPersistedMissingFolder(t *testing.T) {
	names, err := ListPersisted(filepath.Join(t.TempDir(), "missing"))
	if err != nil || len(names) != 0 {
		t.Errorf("Expected no names and no error, got %v, %v", names, err)
	}
}

func mustJSON(t *testing.T, n *Node) string {
	t.Helper()
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	return string(data)
}
