package statement

import (
	"strings"

	"github.com/ValentinKolb/scallionDB/lib/store"
	"github.com/xeipuuv/gojsonschema"
)

// --------------------------------------------------------------------------
// Argument Schemas
// --------------------------------------------------------------------------

const (
	selectorSchema = `{
		"oneOf": [
			{"type": "object"},
			{"type": "array", "items": {"type": "object"}}
		]
	}`

	attrListSchema = `{
		"type": "array",
		"items": {"type": "string", "not": {"enum": ["_id", "_children"]}}
	}`

	attrDictSchema = `{
		"type": "object",
		"not": {"anyOf": [{"required": ["_id"]}, {"required": ["_children"]}]}
	}`

	treeSchema = `{
		"type": "object",
		"properties": {
			"_id": {"type": "string"},
			"_children": {"type": "array", "items": {"type": "object"}}
		}
	}`
)

var (
	selectorValidator = mustSchema(selectorSchema)
	attrListValidator = mustSchema(attrListSchema)
	attrDictValidator = mustSchema(attrDictSchema)
	treeValidator     = mustSchema(treeSchema)
)

func mustSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic("invalid statement schema: " + err.Error())
	}
	return schema
}

// validate checks a decoded Go value against a schema and reports all
// violations as a single validation error.
func validate(schema *gojsonschema.Schema, what string, v interface{}) error {
	res, err := schema.Validate(gojsonschema.NewGoLoader(v))
	if err != nil {
		return store.Errorf(store.RetCValidationError, "%s: %v", what, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, item := range res.Errors() {
		msgs = append(msgs, item.Field()+": "+item.Description())
	}
	return store.Errorf(store.RetCValidationError, "invalid %s (%s)", what, strings.Join(msgs, "; "))
}
