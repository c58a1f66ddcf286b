package saver

import (
	"context"
	"time"

	"github.com/ValentinKolb/scallionDB/lib/store"
	"github.com/ValentinKolb/scallionDB/lib/tree"
	"github.com/ValentinKolb/scallionDB/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
)

var Logger = logger.GetLogger("saver")

// Saver persists trees on behalf of the broker. The broker keeps the tree
// write locked until the saver answered, so the saver reads the tree without
// further synchronization.
type Saver struct {
	folder   string
	trees    store.ITreeStore
	jobs     <-chan common.Message
	broker   chan<- common.Message
	registry gometrics.Registry
}

// New creates a saver that takes Flush jobs from jobs and answers on broker.
func New(folder string, trees store.ITreeStore, jobs <-chan common.Message, broker chan<- common.Message, registry gometrics.Registry) *Saver {
	if registry == nil {
		registry = gometrics.DefaultRegistry
	}
	return &Saver{
		folder:   folder,
		trees:    trees,
		jobs:     jobs,
		broker:   broker,
		registry: registry,
	}
}

// Run handles flush jobs until the job channel is closed or the context is
// canceled. Every job is answered with a Flushed message, failed ones carry
// the error.
func (s *Saver) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-s.jobs:
			if !ok {
				return nil
			}
			if m.MsgType != common.MsgTFlush {
				Logger.Warningf("Unexpected %s message", m.MsgType)
				continue
			}

			err := s.flush(m.Tree)
			select {
			case s.broker <- common.NewFlushed(m.Tree, err):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (s *Saver) flush(name string) error {
	defer gometrics.GetOrRegisterTimer("flush", s.registry).UpdateSince(time.Now())

	t, ok := s.trees.Get(name)
	if !ok {
		return store.Errorf(store.RetCPersistenceError, "tree %q does not exist", name)
	}
	path, err := tree.Persist(t, s.folder)
	if err != nil {
		Logger.Errorf("Failed to persist tree %s: %v", name, err)
		return store.Errorf(store.RetCPersistenceError, "persist %s: %v", name, err)
	}
	Logger.Infof("Persisted tree %s to %s", name, path)
	return nil
}
