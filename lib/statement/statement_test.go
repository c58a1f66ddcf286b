package statement

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/scallionDB/lib/store"
	"github.com/ValentinKolb/scallionDB/lib/tree"
)

func TestParseValid(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		kind Kind
		tree string
		ref  tree.Reference
		sel  int
	}{
		{"get tree", `GET TREE orders SELF {}`, KindRead, "orders", tree.RefSelf, 1},
		{"lower case keywords", `get tree orders children {"a":1}`, KindRead, "orders", tree.RefChildren, 1},
		{"array selector", `GET TREE orders DESCENDANTS [{"a":1},{"b":2}]`, KindRead, "orders", tree.RefDescendants, 2},
		{"get attr all", `GET ATTR orders SELF {} *`, KindRead, "orders", tree.RefSelf, 1},
		{"put tree", `PUT TREE orders SELF {} {"a":1}`, KindWrite, "orders", tree.RefSelf, 1},
		{"put attr", `PUT ATTR orders PARENT {"x":"y z"} {"b":2}`, KindWrite, "orders", tree.RefParent, 1},
		{"delete tree", `DELETE TREE orders SIBLINGS {}`, KindWrite, "orders", tree.RefSiblings, 1},
		{"delete attr", `DELETE ATTR orders SELF {} ["a","b"]`, KindWrite, "orders", tree.RefSelf, 1},
		{"load", `LOAD orders /tmp/my data/orders.tree`, KindWrite, "orders", "", 0},
		{"save", `SAVE orders`, KindWrite, "orders", "", 0},
		{"show", `SHOW TREES`, KindAdmin, "", "", 0},
		{"show short", `SHOW`, KindAdmin, "", "", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Parse(tc.raw)
			if err != nil {
				t.Fatalf("Failed to parse %q: %v", tc.raw, err)
			}
			if s.Kind() != tc.kind {
				t.Errorf("Expected kind %s, got %s", tc.kind, s.Kind())
			}
			if s.Tree != tc.tree {
				t.Errorf("Expected tree %q, got %q", tc.tree, s.Tree)
			}
			if s.Reference != tc.ref {
				t.Errorf("Expected reference %q, got %q", tc.ref, s.Reference)
			}
			if len(s.Selector) != tc.sel {
				t.Errorf("Expected %d selector objects, got %d", tc.sel, len(s.Selector))
			}
			if s.String() != tc.raw {
				t.Errorf("String() should return the raw statement")
			}
		})
	}
}

func TestParseArguments(t *testing.T) {
	s, err := Parse(`PUT TREE orders SELF {} {"a":1,"_children":[{"b":2}]}`)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if string(s.Payload) != `{"a":1,"_children":[{"b":2}]}` {
		t.Errorf("Unexpected payload %s", s.Payload)
	}

	s, err = Parse(`GET ATTR orders SELF {} ["a","b"]`)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if !reflect.DeepEqual(s.Attrs, []string{"a", "b"}) {
		t.Errorf("Unexpected attribute list %v", s.Attrs)
	}

	s, err = Parse(`DELETE ATTR orders SELF {} *`)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if s.Attrs != nil {
		t.Errorf("* should parse to a nil attribute list, got %v", s.Attrs)
	}

	s, err = Parse(`PUT ATTR orders SELF {"a":1} {"b":[1,2]}`)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if !reflect.DeepEqual(s.AttrDict, map[string]interface{}{"b": []interface{}{1.0, 2.0}}) {
		t.Errorf("Unexpected attribute dict %v", s.AttrDict)
	}
	if !reflect.DeepEqual(s.Selector, tree.Selector{{"a": 1.0}}) {
		t.Errorf("Unexpected selector %v", s.Selector)
	}

	s, err = Parse(`LOAD orders  data/orders.tree `)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if s.Path != "data/orders.tree" {
		t.Errorf("Unexpected path %q", s.Path)
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		code store.RetCode
	}{
		{"empty", ``, store.RetCParseError},
		{"unknown op", `FETCH TREE orders SELF {}`, store.RetCParseError},
		{"bad target", `GET NODE orders SELF {}`, store.RetCParseError},
		{"missing reference", `GET TREE orders`, store.RetCParseError},
		{"missing selector", `GET TREE orders SELF`, store.RetCParseError},
		{"broken selector", `GET TREE orders SELF {"a":`, store.RetCParseError},
		{"trailing input", `GET TREE orders SELF {} {}`, store.RetCParseError},
		{"save without name", `SAVE`, store.RetCParseError},
		{"load without path", `LOAD orders`, store.RetCParseError},
		{"show with name", `SHOW orders`, store.RetCParseError},
		{"missing payload", `PUT TREE orders SELF {}`, store.RetCParseError},
		{"bad reference", `GET TREE orders COUSINS {}`, store.RetCValidationError},
		{"tree reference on attr", `GET ATTR orders DESCENDANTS {} *`, store.RetCValidationError},
		{"scalar selector", `GET TREE orders SELF 42`, store.RetCValidationError},
		{"mixed selector", `GET TREE orders SELF [{},1]`, store.RetCValidationError},
		{"reserved get attr", `GET ATTR orders SELF {} ["_children"]`, store.RetCValidationError},
		{"reserved delete attr", `DELETE ATTR orders SELF {} ["_id"]`, store.RetCValidationError},
		{"non string attr", `DELETE ATTR orders SELF {} [1]`, store.RetCValidationError},
		{"reserved put attr", `PUT ATTR orders SELF {} {"_id":"x"}`, store.RetCValidationError},
		{"put attr list", `PUT ATTR orders SELF {} ["a"]`, store.RetCValidationError},
		{"put tree array", `PUT TREE orders SELF {} [{"a":1}]`, store.RetCValidationError},
		{"put tree bad children", `PUT TREE orders SELF {} {"_children":{}}`, store.RetCValidationError},
		{"save outside data dir", `SAVE ../escaped`, store.RetCValidationError},
		{"save dot", `SAVE .`, store.RetCValidationError},
		{"load nested name", `LOAD a/b /tmp/a.tree`, store.RetCValidationError},
		{"put tree parent name", `PUT TREE ../escaped SELF {} {"a":1}`, store.RetCValidationError},
		{"get backslash name", `GET TREE a\b SELF {}`, store.RetCValidationError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Parse(tc.raw)
			if err == nil {
				t.Fatalf("Expected an error for %q, got %+v", tc.raw, s)
			}
			if code := store.CodeOf(err); code != tc.code {
				t.Errorf("Expected %s, got %s (%v)", tc.code, code, err)
			}
		})
	}
}
