package lockmgr

import (
	"strings"
	"testing"
)

func TestReadersShare(t *testing.T) {
	l := NewLockTable()

	if !l.CanAcquire("orders", false) {
		t.Fatal("Failed to acquire first read")
	}
	l.Acquire("orders", false)

	if !l.CanAcquire("orders", false) {
		t.Fatal("Failed to acquire second read alongside the first")
	}
	l.Acquire("orders", false)

	if l.CanAcquire("orders", true) {
		t.Error("Write must not be dispatched while reads are running")
	}
	if l.Held("orders") != 2 {
		t.Errorf("Expected 2 running operations, got %d", l.Held("orders"))
	}

	if l.Release("orders") {
		t.Error("Releasing a read reported a write")
	}
	if l.CanAcquire("orders", true) {
		t.Error("Write must wait for the second read as well")
	}

	l.Release("orders")
	if !l.CanAcquire("orders", true) {
		t.Error("Write should be possible once all reads are released")
	}
}

func TestWriterExclusive(t *testing.T) {
	l := NewLockTable()
	l.Acquire("orders", true)

	testCases := []struct {
		name  string
		tree  string
		write bool
		want  bool
	}{
		{"read same tree", "orders", false, false},
		{"write same tree", "orders", true, false},
		{"read other tree", "customers", false, true},
		{"write other tree", "customers", true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := l.CanAcquire(tc.tree, tc.write); got != tc.want {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}

	if !l.IsWriting("orders") {
		t.Error("orders should be marked as writing")
	}
	if !l.Release("orders") {
		t.Error("Releasing the writer should report a write")
	}
	if l.IsWriting("orders") || l.Held("orders") != 0 {
		t.Error("orders should be idle after release")
	}
}

func TestReleaseUnknown(t *testing.T) {
	l := NewLockTable()
	if l.Release("missing") {
		t.Error("Releasing an unknown tree should report no write")
	}
	if len(l.Active()) != 0 {
		t.Error("Releasing an unknown tree must not create entries")
	}
}

func TestSnapshots(t *testing.T) {
	l := NewLockTable()
	l.Acquire("b", false)
	l.Acquire("a", true)
	l.Acquire("b", false)

	if got := strings.Join(l.Active(), ","); got != "a,b" {
		t.Errorf("Unexpected active trees %s", got)
	}
	if got := strings.Join(l.Writing(), ","); got != "a" {
		t.Errorf("Unexpected writing trees %s", got)
	}
}
