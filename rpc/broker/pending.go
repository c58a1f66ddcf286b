package broker

import (
	"time"

	"github.com/ValentinKolb/scallionDB/lib/statement"
	"github.com/ValentinKolb/scallionDB/rpc/common"
)

// pendingMessage is a client request that could not be dispatched yet
type pendingMessage struct {
	stmt     *statement.Statement
	reply    common.IResponder
	expiry   time.Time
	received time.Time
}

func (m *pendingMessage) tree() string {
	return m.stmt.Tree
}

func (m *pendingMessage) write() bool {
	return m.stmt.Kind() == statement.KindWrite
}

// pendingQueue keeps deferred requests in arrival order. It is scanned
// linearly once per tick: requests for one tree leave the queue in FIFO
// order, requests for different trees may overtake each other.
type pendingQueue struct {
	items   []*pendingMessage
	perTree map[string]int
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{perTree: make(map[string]int)}
}

func (q *pendingQueue) push(m *pendingMessage) {
	q.items = append(q.items, m)
	q.perTree[m.tree()]++
}

func (q *pendingQueue) len() int {
	return len(q.items)
}

// waiting returns whether requests for the tree are queued
func (q *pendingQueue) waiting(tree string) bool {
	return q.perTree[tree] > 0
}

// sweep visits every message once in insertion order. Messages for which
// visit returns true are removed. blocked tells visit whether an earlier
// message for the same tree stayed in the queue during this sweep.
func (q *pendingQueue) sweep(visit func(m *pendingMessage, blocked bool) (remove bool)) {
	skipped := make(map[string]struct{})
	kept := q.items[:0]
	for _, m := range q.items {
		_, blocked := skipped[m.tree()]
		if visit(m, blocked) {
			if q.perTree[m.tree()]--; q.perTree[m.tree()] <= 0 {
				delete(q.perTree, m.tree())
			}
			continue
		}
		skipped[m.tree()] = struct{}{}
		kept = append(kept, m)
	}
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = nil
	}
	q.items = kept
}
