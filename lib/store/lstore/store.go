package lstore

import (
	"sort"

	"github.com/ValentinKolb/scallionDB/lib/store"
	"github.com/ValentinKolb/scallionDB/lib/tree"
	"github.com/puzpuzpuz/xsync/v3"
)

type storeImpl struct {
	trees *xsync.MapOf[string, *tree.Tree]
}

// NewLocalStore creates a new, empty local tree mapping.
func NewLocalStore() store.ITreeStore {
	return &storeImpl{
		trees: xsync.NewMapOf[string, *tree.Tree](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(name string) (*tree.Tree, bool) {
	return s.trees.Load(name)
}

func (s *storeImpl) Put(t *tree.Tree) {
	s.trees.Store(t.Name, t)
}

func (s *storeImpl) Delete(name string) {
	s.trees.Delete(name)
}

func (s *storeImpl) Has(name string) bool {
	_, ok := s.trees.Load(name)
	return ok
}

func (s *storeImpl) Names() []string {
	names := make([]string, 0, s.trees.Size())
	s.trees.Range(func(name string, _ *tree.Tree) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

func (s *storeImpl) Len() int {
	return s.trees.Size()
}
