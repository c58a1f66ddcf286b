// Package tree implements the in-memory document model of scallionDB.
//
// A tree is a named root Node. Every node carries a unique _id, a set of
// attributes and an ordered list of children (_children). The serialized
// form is a single JSON object per node:
//
//	{"_id":"01J...","name":"orders","_children":[{"_id":"01J...","qty":3,"_children":[]}]}
//
// Key Components:
//
//   - Node / Tree: the mutable model. Trees are not internally synchronized,
//     callers coordinate access (the broker's lock table does this).
//
//   - Selector / Reference: a selector is a union of attribute patterns used
//     to find nodes, a reference maps the matched nodes to related nodes
//     (SELF, CHILDREN, PARENT, DESCENDANTS, ANCESTORS, SIBLINGS).
//
//   - Breaker: produces the JSON form of a subtree as a sequence of string
//     fragments, so large results can be streamed without building the
//     whole document in memory.
//
//   - Persist / Load: atomic persistence (write to <name>.tmp, rename to
//     <name>.tree) and recovery of tree files.
package tree
