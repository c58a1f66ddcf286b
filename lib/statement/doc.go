// Package statement parses and builds the single-line wire statements of
// scallionDB.
//
// Grammar (space-joined tokens, keywords are case-insensitive):
//
//	GET    TREE <name> <REFERENCE> <json-selector>
//	GET    ATTR <name> <REFERENCE> <json-selector> <json-attribute-list|*>
//	PUT    TREE <name> <REFERENCE> <json-selector> <json-tree>
//	PUT    ATTR <name> <REFERENCE> <json-selector> <json-attribute-dict>
//	DELETE TREE <name> <REFERENCE> <json-selector>
//	DELETE ATTR <name> <REFERENCE> <json-selector> <json-attribute-list|*>
//	LOAD   <name> <filesystem-path>
//	SAVE   <name>
//	SHOW   [TREES]
//
// Parse turns a statement into a *Statement. Malformed statements yield a
// *store.Error with RetCParseError, well-formed statements with arguments
// of the wrong shape yield RetCValidationError. Argument shapes are checked
// with JSON schemas (see schema.go) so that the parser and the client side
// builder functions (see builder.go) agree on what is valid.
//
// SHOW carries no tree name and is answered by the broker itself. GET is a
// read, every other operation is a write.
package statement
