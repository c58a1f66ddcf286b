package lockmgr

// ILockTable defines the interface for the per-tree lock table.
type ILockTable interface {
	// CanAcquire returns whether an operation on the given tree could be
	// dispatched right now without violating the reader/writer rules.
	CanAcquire(tree string, write bool) bool

	// Acquire records a running operation on the given tree. Callers must
	// check CanAcquire first, Acquire does not verify the rules.
	Acquire(tree string, write bool)

	// Release removes one running operation on the given tree and returns
	// whether that operation was a write. Releasing a tree without running
	// operations is a no-op that returns false.
	Release(tree string) (wasWrite bool)

	// IsWriting returns whether a write on the given tree is running.
	IsWriting(tree string) bool

	// Held returns the number of running operations on the given tree.
	Held(tree string) int

	// Active returns the names of all trees with running operations.
	Active() []string

	// Writing returns the names of all trees with a running write.
	Writing() []string
}
