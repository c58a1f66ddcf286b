package statement

import (
	"encoding/json"
	"strings"

	"github.com/ValentinKolb/scallionDB/lib/store"
	"github.com/ValentinKolb/scallionDB/lib/tree"
)

// Parse parses a wire statement.
func Parse(raw string) (*Statement, error) {
	s := &Statement{raw: raw}

	op, rest := nextToken(raw)
	s.Op = Op(strings.ToUpper(op))

	switch s.Op {
	case OpShow:
		arg, rest := nextToken(rest)
		if (arg != "" && !strings.EqualFold(arg, "TREES")) || strings.TrimSpace(rest) != "" {
			return nil, parseErr("SHOW takes no arguments besides TREES")
		}
		return s, nil

	case OpSave:
		name, rest := nextToken(rest)
		if name == "" || strings.TrimSpace(rest) != "" {
			return nil, parseErr("usage: SAVE <name>")
		}
		s.Tree = name
		if err := checkName(s.Tree); err != nil {
			return nil, err
		}
		return s, nil

	case OpLoad:
		name, rest := nextToken(rest)
		s.Tree, s.Path = name, strings.TrimSpace(rest)
		if s.Tree == "" || s.Path == "" {
			return nil, parseErr("usage: LOAD <name> <path>")
		}
		if err := checkName(s.Tree); err != nil {
			return nil, err
		}
		return s, nil

	case OpGet, OpPut, OpDelete:
		if err := parseQuery(s, rest); err != nil {
			return nil, err
		}
		return s, nil

	case "":
		return nil, parseErr("empty statement")
	default:
		return nil, parseErr("unknown operation %q", op)
	}
}

func parseQuery(s *Statement, rest string) error {
	var target, name, ref string
	target, rest = nextToken(rest)
	name, rest = nextToken(rest)
	ref, rest = nextToken(rest)

	s.Target = Target(strings.ToUpper(target))
	if s.Target != TargetTree && s.Target != TargetAttr {
		return parseErr("%s expects TREE or ATTR, got %q", s.Op, target)
	}
	if name == "" || ref == "" {
		return parseErr("%s %s requires a tree name and a reference", s.Op, s.Target)
	}
	s.Tree = name
	if err := checkName(name); err != nil {
		return err
	}

	allowed := tree.TreeReferences
	if s.Target == TargetAttr {
		allowed = tree.AttrReferences
	}
	reference, err := tree.ParseReference(ref, allowed)
	if err != nil {
		return store.NewError(store.RetCValidationError, err.Error())
	}
	s.Reference = reference

	// selector
	var selector interface{}
	selector, rest, err = decodeValue(rest, "selector")
	if err != nil {
		return err
	}
	if s.Selector, err = toSelector(selector); err != nil {
		return err
	}

	// trailing argument
	switch {
	case s.Target == TargetTree && s.Op != OpPut:
		// no argument
	case s.Target == TargetTree:
		var payload interface{}
		var raw string
		if payload, raw, rest, err = decodeRaw(rest, "tree"); err != nil {
			return err
		}
		if err := validate(treeValidator, "tree", payload); err != nil {
			return err
		}
		s.Payload = json.RawMessage(raw)
	case s.Op == OpPut:
		var dict interface{}
		if dict, rest, err = decodeValue(rest, "attribute dict"); err != nil {
			return err
		}
		if err := validate(attrDictValidator, "attribute dict", dict); err != nil {
			return err
		}
		s.AttrDict = dict.(map[string]interface{})
	default:
		if arg := strings.TrimSpace(rest); arg == "*" {
			rest = ""
			break
		}
		var list interface{}
		if list, rest, err = decodeValue(rest, "attribute list"); err != nil {
			return err
		}
		if err := validate(attrListValidator, "attribute list", list); err != nil {
			return err
		}
		items := list.([]interface{})
		s.Attrs = make([]string, len(items))
		for i, item := range items {
			s.Attrs[i] = item.(string)
		}
	}

	if strings.TrimSpace(rest) != "" {
		return parseErr("unexpected trailing input %q", strings.TrimSpace(rest))
	}
	return nil
}

// toSelector validates the shape of a decoded selector and converts it.
func toSelector(v interface{}) (tree.Selector, error) {
	if err := validate(selectorValidator, "selector", v); err != nil {
		return nil, err
	}
	switch sel := v.(type) {
	case map[string]interface{}:
		return tree.Selector{sel}, nil
	case []interface{}:
		out := make(tree.Selector, len(sel))
		for i, item := range sel {
			out[i] = item.(map[string]interface{})
		}
		return out, nil
	}
	return nil, store.NewError(store.RetCValidationError, "selector must be an object or an array of objects")
}

// --------------------------------------------------------------------------
// Tokenizer
// --------------------------------------------------------------------------

// nextToken splits off the next whitespace separated token.
func nextToken(s string) (token, rest string) {
	s = strings.TrimLeft(s, " \t\r\n")
	if i := strings.IndexAny(s, " \t\r\n"); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}

// decodeValue decodes exactly one JSON value from the start of s and
// returns the remaining input.
func decodeValue(s, what string) (interface{}, string, error) {
	v, _, rest, err := decodeRaw(s, what)
	return v, rest, err
}

// decodeRaw is decodeValue that also returns the consumed JSON text.
func decodeRaw(s, what string) (v interface{}, raw, rest string, err error) {
	s = strings.TrimLeft(s, " \t\r\n")
	if s == "" {
		return nil, "", "", parseErr("missing %s", what)
	}
	dec := json.NewDecoder(strings.NewReader(s))
	if err := dec.Decode(&v); err != nil {
		return nil, "", "", parseErr("invalid %s JSON: %v", what, err)
	}
	off := dec.InputOffset()
	return v, s[:off], s[off:], nil
}

func parseErr(format string, args ...interface{}) error {
	return store.Errorf(store.RetCParseError, format, args...)
}
