package lockmgr

import "sort"

type lockTableImpl struct {
	active  map[string]int
	writing map[string]struct{}
}

// NewLockTable creates a new, empty lock table.
func NewLockTable() ILockTable {
	return &lockTableImpl{
		active:  make(map[string]int),
		writing: make(map[string]struct{}),
	}
}

func (l *lockTableImpl) CanAcquire(tree string, write bool) bool {
	if write {
		return l.active[tree] == 0
	}
	_, w := l.writing[tree]
	return !w
}

func (l *lockTableImpl) Acquire(tree string, write bool) {
	l.active[tree]++
	if write {
		l.writing[tree] = struct{}{}
	}
}

func (l *lockTableImpl) Release(tree string) bool {
	n, ok := l.active[tree]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(l.active, tree)
	} else {
		l.active[tree] = n - 1
	}

	if _, w := l.writing[tree]; w {
		delete(l.writing, tree)
		return true
	}
	return false
}

func (l *lockTableImpl) IsWriting(tree string) bool {
	_, w := l.writing[tree]
	return w
}

func (l *lockTableImpl) Held(tree string) int {
	return l.active[tree]
}

func (l *lockTableImpl) Active() []string {
	return sortedKeys(l.active)
}

func (l *lockTableImpl) Writing() []string {
	return sortedKeys(l.writing)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
