package statement

import (
	"encoding/json"
	"strings"

	"github.com/ValentinKolb/scallionDB/lib/store"
	"github.com/ValentinKolb/scallionDB/lib/tree"
)

// --------------------------------------------------------------------------
// Statement Builders
// --------------------------------------------------------------------------

// The builders validate their arguments with the same schemas the parser
// uses and assemble the wire statement. A selector may be a
// map[string]interface{}, a slice of those, a tree.Selector or any other
// value that encodes to a JSON object or an array of objects. A nil
// attribute list stands for all attributes (*).

// GetTree builds a GET TREE statement.
func GetTree(name string, ref tree.Reference, selector interface{}) (string, error) {
	return buildQuery(OpGet, TargetTree, name, ref, selector)
}

// GetAttrs builds a GET ATTR statement.
func GetAttrs(name string, ref tree.Reference, selector interface{}, attrs []string) (string, error) {
	q, err := buildQuery(OpGet, TargetAttr, name, ref, selector)
	if err != nil {
		return "", err
	}
	list, err := encodeAttrList(attrs)
	if err != nil {
		return "", err
	}
	return join(q, list), nil
}

// PutTree builds a PUT TREE statement. The subtree may be a *tree.Node or
// any value that encodes to a JSON object.
func PutTree(name string, ref tree.Reference, selector interface{}, subtree interface{}) (string, error) {
	q, err := buildQuery(OpPut, TargetTree, name, ref, selector)
	if err != nil {
		return "", err
	}
	raw, v, err := normalize(subtree, "tree")
	if err != nil {
		return "", err
	}
	if err := validate(treeValidator, "tree", v); err != nil {
		return "", err
	}
	return join(q, raw), nil
}

// PutAttrs builds a PUT ATTR statement.
func PutAttrs(name string, ref tree.Reference, selector interface{}, attrs map[string]interface{}) (string, error) {
	q, err := buildQuery(OpPut, TargetAttr, name, ref, selector)
	if err != nil {
		return "", err
	}
	raw, v, err := normalize(attrs, "attribute dict")
	if err != nil {
		return "", err
	}
	if err := validate(attrDictValidator, "attribute dict", v); err != nil {
		return "", err
	}
	return join(q, raw), nil
}

// DelTree builds a DELETE TREE statement.
func DelTree(name string, ref tree.Reference, selector interface{}) (string, error) {
	return buildQuery(OpDelete, TargetTree, name, ref, selector)
}

// DelAttrs builds a DELETE ATTR statement.
func DelAttrs(name string, ref tree.Reference, selector interface{}, attrs []string) (string, error) {
	q, err := buildQuery(OpDelete, TargetAttr, name, ref, selector)
	if err != nil {
		return "", err
	}
	list, err := encodeAttrList(attrs)
	if err != nil {
		return "", err
	}
	return join(q, list), nil
}

// Load builds a LOAD statement.
func Load(name, path string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if strings.TrimSpace(path) == "" {
		return "", store.NewError(store.RetCValidationError, "LOAD requires a path")
	}
	return join(string(OpLoad), name, path), nil
}

// Save builds a SAVE statement.
func Save(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return join(string(OpSave), name), nil
}

// Show builds the administrative tree listing statement.
func Show() string {
	return join(string(OpShow), "TREES")
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func buildQuery(op Op, target Target, name string, ref tree.Reference, selector interface{}) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	allowed := tree.TreeReferences
	if target == TargetAttr {
		allowed = tree.AttrReferences
	}
	if ref == "" {
		ref = tree.RefSelf
	}
	reference, err := tree.ParseReference(string(ref), allowed)
	if err != nil {
		return "", store.NewError(store.RetCValidationError, err.Error())
	}
	raw, v, err := normalize(selector, "selector")
	if err != nil {
		return "", err
	}
	if err := validate(selectorValidator, "selector", v); err != nil {
		return "", err
	}
	return join(string(op), string(target), name, string(reference), raw), nil
}

func encodeAttrList(attrs []string) (string, error) {
	if attrs == nil {
		return "*", nil
	}
	raw, v, err := normalize(attrs, "attribute list")
	if err != nil {
		return "", err
	}
	if err := validate(attrListValidator, "attribute list", v); err != nil {
		return "", err
	}
	return raw, nil
}

// normalize encodes v and decodes it again so that schema validation sees
// plain JSON values regardless of the Go type the caller used.
func normalize(v interface{}, what string) (string, interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", nil, store.Errorf(store.RetCValidationError, "invalid %s JSON: %v", what, err)
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return "", nil, store.Errorf(store.RetCValidationError, "invalid %s JSON: %v", what, err)
	}
	return string(b), out, nil
}

func checkName(name string) error {
	if err := tree.ValidName(name); err != nil {
		return store.NewError(store.RetCValidationError, err.Error())
	}
	return nil
}

func join(parts ...string) string {
	return strings.Join(parts, " ")
}
