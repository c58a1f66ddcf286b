package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/scallionDB/lib/store"
	"github.com/ValentinKolb/scallionDB/lib/tree"
	"github.com/ValentinKolb/scallionDB/rpc/client"
	"github.com/ValentinKolb/scallionDB/rpc/common"
	"github.com/ValentinKolb/scallionDB/rpc/transport/unix"
)

func testConfig(t *testing.T, dataDir string) common.ServerConfig {
	t.Helper()
	config := common.DefaultServerConfig()
	config.Transport = "unix"
	config.Endpoint = filepath.Join(t.TempDir(), "scallion.sock")
	config.DataDir = dataDir
	config.Workers = 2
	config.HeartbeatIntervalMs = 100
	config.SaveLimit = 2
	config.ChunkSize = 16
	config.StreamPauseMs = 0
	config.AdminEndpoint = "127.0.0.1:0"
	config.LogLevel = "error"
	return config
}

// startServer starts a server and returns it with a connected client. Both
// are stopped when the returned cancel function is called.
func startServer(t *testing.T, config common.ServerConfig) (*RPCServer, *client.Client, func()) {
	t.Helper()
	s := NewRPCServer(config, unix.NewUnixServerTransport(), unix.NewUnixClientTransport())
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Failed to start server: %v", err)
	}

	c, err := client.New(common.ClientConfig{
		Endpoints:              []string{s.Addr()},
		Transport:              "unix",
		TimeoutMs:              10000,
		ConnectTimeoutMs:       1000,
		RetryCount:             1,
		ConnectionsPerEndpoint: 1,
	}, unix.NewUnixClientTransport())
	if err != nil {
		cancel()
		t.Fatalf("Failed to connect client: %v", err)
	}

	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		c.Close()
		cancel()
		if err := s.Wait(); err != nil {
			t.Errorf("Server stopped with error: %v", err)
		}
	}
	t.Cleanup(stop)
	return s, c, stop
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

var all = map[string]interface{}{}

func TestEndToEnd(t *testing.T) {
	dataDir := t.TempDir()
	_, c, stop := startServer(t, testConfig(t, dataDir))
	ctx := context.Background()
	orders := c.Tree("orders")

	if n, err := orders.PutTree(ctx, tree.RefSelf, all, map[string]interface{}{"kind": "root"}); err != nil || n != 1 {
		t.Fatalf("Failed to create tree: n=%d err=%v", n, err)
	}
	child := map[string]interface{}{
		"kind": "order", "status": "open",
		"_children": []interface{}{map[string]interface{}{"kind": "item", "sku": "a-1"}},
	}
	if _, err := orders.PutTree(ctx, tree.RefSelf, map[string]interface{}{"kind": "root"}, child); err != nil {
		t.Fatalf("Failed to append subtree: %v", err)
	}

	// the second write reached the save limit
	eventually(t, "the tree file", func() bool {
		_, err := os.Stat(tree.FilePath(dataDir, "orders"))
		return err == nil
	})

	nodes, err := orders.GetTree(ctx, tree.RefDescendants, map[string]interface{}{"kind": "root"})
	if err != nil {
		t.Fatalf("Failed to get descendants: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("Expected 2 descendants, got %d", len(nodes))
	}

	attrs, err := orders.GetAttrs(ctx, tree.RefSelf, map[string]interface{}{"kind": "item"}, []string{"sku"})
	if err != nil {
		t.Fatalf("Failed to get attributes: %v", err)
	}
	if len(attrs) != 1 || attrs[0]["sku"] != "a-1" {
		t.Errorf("Unexpected attributes %v", attrs)
	}

	names, err := c.Trees(ctx)
	if err != nil || !reflect.DeepEqual(names, []string{"orders"}) {
		t.Errorf("Unexpected tree listing %v (%v)", names, err)
	}

	_, err = c.Tree("missing").GetTree(ctx, tree.RefSelf, all)
	if store.CodeOf(err) != store.RetCExecutionError {
		t.Errorf("Expected ExecutionError for a missing tree, got %v", err)
	}
	_, err = c.Execute(ctx, `GET TREE orders NOWHERE {}`)
	if store.CodeOf(err) != store.RetCValidationError {
		t.Errorf("Expected ValidationError for a bad reference, got %v", err)
	}

	before, err := orders.GetTree(ctx, tree.RefSelf, map[string]interface{}{"kind": "root"})
	if err != nil || len(before) != 1 {
		t.Fatalf("Failed to get root: %v", err)
	}
	stop()

	// restart on the same data directory, the loader restores the tree
	_, c, _ = startServer(t, testConfig(t, dataDir))
	eventually(t, "the loader", func() bool {
		names, err := c.Trees(ctx)
		return err == nil && len(names) == 1
	})
	after, err := c.Tree("orders").GetTree(ctx, tree.RefSelf, map[string]interface{}{"kind": "root"})
	if err != nil || len(after) != 1 {
		t.Fatalf("Failed to get restored root: %v", err)
	}
	if !tree.Equal(before[0], after[0]) {
		t.Errorf("Restored tree differs from the persisted one")
	}
}

func TestRepeatedLoad(t *testing.T) {
	dataDir := t.TempDir()
	root := tree.NewNode(map[string]interface{}{"kind": "root"})
	root.AddChild(tree.NewNode(map[string]interface{}{"kind": "leaf"}))
	path, err := tree.Persist(tree.New("users", root), t.TempDir())
	if err != nil {
		t.Fatalf("Failed to persist: %v", err)
	}

	config := testConfig(t, dataDir)
	config.SkipLoad = true
	_, c, _ := startServer(t, config)
	ctx := context.Background()
	users := c.Tree("users")

	for i := 0; i < 2; i++ {
		n, err := users.LoadTree(ctx, path)
		if err != nil {
			t.Fatalf("Failed to load (attempt %d): %v", i+1, err)
		}
		if n != 2 {
			t.Errorf("Expected 2 loaded nodes, got %d", n)
		}
	}

	// the lock was released, reads and writes still go through
	if _, err := users.PutAttrs(ctx, tree.RefSelf, map[string]interface{}{"kind": "leaf"}, map[string]interface{}{"seen": true}); err != nil {
		t.Fatalf("Failed to write after repeated loads: %v", err)
	}
	nodes, err := users.GetTree(ctx, tree.RefSelf, map[string]interface{}{"seen": true})
	if err != nil || len(nodes) != 1 {
		t.Errorf("Expected one updated node, got %d (%v)", len(nodes), err)
	}
}

func TestLargeResultStreamed(t *testing.T) {
	_, c, _ := startServer(t, testConfig(t, t.TempDir()))
	ctx := context.Background()
	big := c.Tree("big")

	if _, err := big.PutTree(ctx, tree.RefSelf, all, map[string]interface{}{"kind": "root"}); err != nil {
		t.Fatalf("Failed to create tree: %v", err)
	}
	for i := 0; i < 50; i++ {
		if _, err := big.PutTree(ctx, tree.RefSelf, map[string]interface{}{"kind": "root"}, map[string]interface{}{"kind": "leaf", "i": i}); err != nil {
			t.Fatalf("Failed to append leaf %d: %v", i, err)
		}
	}

	chunks := 0
	var body strings.Builder
	stmt := `GET TREE big CHILDREN {"kind":"root"}`
	if _, err := c.Stream(ctx, stmt, func(chunk []byte) error {
		chunks++
		body.Write(chunk)
		return nil
	}); err != nil {
		t.Fatalf("Failed to stream: %v", err)
	}
	if chunks < 10 {
		t.Errorf("Expected the result to be split into many chunks, got %d", chunks)
	}

	nodes, err := big.GetTree(ctx, tree.RefChildren, map[string]interface{}{"kind": "root"})
	if err != nil || len(nodes) != 50 {
		t.Errorf("Expected 50 leaves, got %d (%v)", len(nodes), err)
	}
}

func TestAdminEndpoint(t *testing.T) {
	s, c, _ := startServer(t, testConfig(t, t.TempDir()))
	ctx := context.Background()
	if _, err := c.Tree("orders").PutTree(ctx, tree.RefSelf, all, map[string]interface{}{"a": 1}); err != nil {
		t.Fatalf("Failed to create tree: %v", err)
	}

	get := func(path string) (int, string) {
		resp, err := http.Get("http://" + s.AdminAddr() + path)
		if err != nil {
			t.Fatalf("Failed to GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	testCases := []struct {
		path     string
		contains string
	}{
		{"/healthz", `"ok"`},
		{"/trees", `["orders"]`},
		{"/status", `"idle_workers"`},
		{"/metrics", "scallion_requests_total"},
		{"/metrics", `scallion_workers{state="idle"}`},
		{"/debug/workers", "op.put"},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			status, body := get(tc.path)
			if status != http.StatusOK {
				t.Fatalf("Expected 200, got %d", status)
			}
			if !strings.Contains(body, tc.contains) {
				t.Errorf("Expected %q in response, got %s", tc.contains, body)
			}
		})
	}
}
