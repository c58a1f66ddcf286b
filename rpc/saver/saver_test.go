package saver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/scallionDB/lib/store"
	"github.com/ValentinKolb/scallionDB/lib/store/lstore"
	"github.com/ValentinKolb/scallionDB/lib/tree"
	"github.com/ValentinKolb/scallionDB/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
)

func startSaver(t *testing.T, folder string, trees store.ITreeStore) (chan common.Message, chan common.Message) {
	t.Helper()
	jobs := make(chan common.Message, 4)
	replies := make(chan common.Message, 4)
	s := New(folder, trees, jobs, replies, gometrics.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return jobs, replies
}

func reply(t *testing.T, replies chan common.Message) common.Message {
	t.Helper()
	select {
	case m := <-replies:
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("Saver did not answer")
		return common.Message{}
	}
}

func TestFlush(t *testing.T) {
	dir := t.TempDir()
	trees := lstore.NewLocalStore()
	root := tree.NewNode(map[string]interface{}{"a": 1.0})
	root.AddChild(tree.NewNode(map[string]interface{}{"b": "x"}))
	trees.Put(tree.New("orders", root))

	jobs, replies := startSaver(t, dir, trees)
	jobs <- common.NewFlush("orders")

	m := reply(t, replies)
	if m.MsgType != common.MsgTFlushed || m.Tree != "orders" {
		t.Fatalf("Unexpected reply %s for %q", m.MsgType, m.Tree)
	}
	if m.Err != nil {
		t.Fatalf("Failed to flush: %v", m.Err)
	}

	loaded, err := tree.Load("orders", tree.FilePath(dir, "orders"))
	if err != nil {
		t.Fatalf("Failed to load persisted tree: %v", err)
	}
	if !tree.Equal(loaded.Root, root) {
		t.Errorf("Persisted tree differs from the original")
	}
	if _, err := os.Stat(filepath.Join(dir, "orders"+tree.TmpExt)); !os.IsNotExist(err) {
		t.Errorf("Expected the temporary file to be gone")
	}
}

func TestFlushFailureStillAnswers(t *testing.T) {
	dir := t.TempDir()
	// a file where the folder should be
	blocked := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	trees := lstore.NewLocalStore()
	trees.Put(tree.New("orders", tree.NewNode(nil)))

	testCases := []struct {
		name   string
		folder string
		tree   string
	}{
		{"unwritable folder", blocked, "orders"},
		{"missing tree", dir, "ghost"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			jobs, replies := startSaver(t, tc.folder, trees)
			jobs <- common.NewFlush(tc.tree)

			m := reply(t, replies)
			if m.Tree != tc.tree {
				t.Errorf("Expected reply for %q, got %q", tc.tree, m.Tree)
			}
			if store.CodeOf(m.Err) != store.RetCPersistenceError {
				t.Errorf("Expected PersistenceError, got %v", m.Err)
			}
		})
	}
}

func TestStopsWhenJobsClosed(t *testing.T) {
	jobs := make(chan common.Message)
	s := New(t.TempDir(), lstore.NewLocalStore(), jobs, make(chan common.Message), nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	close(jobs)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Unexpected error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Saver did not stop")
	}
}
