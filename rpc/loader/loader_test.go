package loader

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/scallionDB/lib/tree"
	"github.com/ValentinKolb/scallionDB/rpc/client"
	"github.com/ValentinKolb/scallionDB/rpc/common"
	"github.com/ValentinKolb/scallionDB/rpc/transport"
)

// fakeTransport answers LOAD statements, failing those for trees in fail
type fakeTransport struct {
	mu   sync.Mutex
	seen []string
	fail map[string]bool
	hold map[string]chan struct{}
}

func (f *fakeTransport) Connect(common.ClientConfig) error { return nil }
func (f *fakeTransport) Close() error                      { return nil }

func (f *fakeTransport) Stream(_ context.Context, req common.Request, fn transport.StreamFunc) error {
	f.mu.Lock()
	f.seen = append(f.seen, req.Statement)
	f.mu.Unlock()

	name := strings.Fields(req.Statement)[1]
	if hold, ok := f.hold[name]; ok {
		<-hold
	}
	if f.fail[name] {
		return fn(common.Frame{Status: common.StatusFailure, Payload: []byte("ExecutionError: broken")})
	}
	if err := fn(common.Frame{Status: common.StatusMessage, Payload: []byte(`{"count":1}`)}); err != nil {
		return err
	}
	return fn(common.Frame{Status: common.StatusComplete, Payload: []byte(name)})
}

func persist(t *testing.T, folder string, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := tree.Persist(tree.New(name, tree.NewNode(map[string]interface{}{"n": name})), folder); err != nil {
			t.Fatalf("Failed to persist %s: %v", name, err)
		}
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	persist(t, dir, "a", "b", "c")
	// ignored
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)

	ft := &fakeTransport{fail: map[string]bool{"b": true}}
	c, err := client.New(ClientConfig("unused", "unix"), ft)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	summary, err := Run(context.Background(), dir, c)
	if err != nil {
		t.Fatalf("Failed to run loader: %v", err)
	}
	if summary != (Summary{Issued: 3, Loaded: 2, Failed: 1}) {
		t.Errorf("Unexpected summary %+v", summary)
	}

	sort.Strings(ft.seen)
	for i, name := range []string{"a", "b", "c"} {
		path, _ := filepath.Abs(tree.FilePath(dir, name))
		if want := "LOAD " + name + " " + path; ft.seen[i] != want {
			t.Errorf("Expected %q, got %q", want, ft.seen[i])
		}
	}
}

func TestAcksReportedAsTheyArrive(t *testing.T) {
	dir := t.TempDir()
	persist(t, dir, "fast", "slow")

	release := make(chan struct{})
	ft := &fakeTransport{hold: map[string]chan struct{}{"slow": release}}
	c, _ := client.New(ClientConfig("unused", "unix"), ft)

	reported := make(chan string, 2)
	defer func(orig func(ack)) { report = orig }(report)
	report = func(a ack) { reported <- a.name }

	done := make(chan Summary, 1)
	go func() {
		summary, _ := Run(context.Background(), dir, c)
		done <- summary
	}()

	select {
	case name := <-reported:
		if name != "fast" {
			t.Fatalf("Expected fast to be reported first, got %s", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Acknowledgement of fast was held back by the slow load")
	}

	close(release)
	select {
	case summary := <-done:
		if summary != (Summary{Issued: 2, Loaded: 2}) {
			t.Errorf("Unexpected summary %+v", summary)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Loader did not finish")
	}
	if name := <-reported; name != "slow" {
		t.Errorf("Expected slow to be reported, got %s", name)
	}
}

func TestNoPersistedTrees(t *testing.T) {
	ft := &fakeTransport{}
	c, _ := client.New(ClientConfig("unused", "unix"), ft)

	for _, dir := range []string{t.TempDir(), filepath.Join(t.TempDir(), "missing")} {
		summary, err := Run(context.Background(), dir, c)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if summary != (Summary{}) {
			t.Errorf("Expected an empty summary, got %+v", summary)
		}
	}
	if len(ft.seen) != 0 {
		t.Errorf("Expected no statements, got %v", ft.seen)
	}
}

func TestClientConfigUsesLongTimeout(t *testing.T) {
	config := ClientConfig("/tmp/s.sock", "unix")
	if config.Timeout() != Timeout {
		t.Errorf("Expected timeout %s, got %s", Timeout, config.Timeout())
	}
}
