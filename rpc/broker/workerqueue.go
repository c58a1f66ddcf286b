package broker

import (
	"time"

	"github.com/ValentinKolb/scallionDB/rpc/common"
)

// workerInfo is the broker's view of one worker
type workerInfo struct {
	id     string
	inbox  chan<- common.Message
	expiry time.Time
	reply  common.IResponder // client of the job in flight, nil while idle
}

// workerQueue tracks idle workers in rotation order and the workers that
// currently execute a job. A worker is never idle and busy at the same time,
// so no worker is handed two concurrent jobs.
type workerQueue struct {
	idle     []*workerInfo
	busy     map[string]*workerInfo
	liveness time.Duration
}

func newWorkerQueue(liveness time.Duration) *workerQueue {
	return &workerQueue{
		busy:     make(map[string]*workerInfo),
		liveness: liveness,
	}
}

// ready adds a worker to the back of the rotation with a fresh expiry. A
// worker that was already known is moved to the back.
func (q *workerQueue) ready(id string, inbox chan<- common.Message, now time.Time) {
	delete(q.busy, id)
	q.removeIdle(id)
	q.idle = append(q.idle, &workerInfo{id: id, inbox: inbox, expiry: now.Add(q.liveness)})
}

// heartbeat refreshes a worker's expiry. Idle workers are moved to the back
// of the rotation, busy workers stay busy. Unknown workers (for example
// purged ones) are taken back as idle if they sent their inbox.
func (q *workerQueue) heartbeat(id string, inbox chan<- common.Message, now time.Time) bool {
	if w, ok := q.busy[id]; ok {
		w.expiry = now.Add(q.liveness)
		return true
	}
	if w := q.removeIdle(id); w != nil {
		w.expiry = now.Add(q.liveness)
		q.idle = append(q.idle, w)
		return true
	}
	if inbox == nil {
		return false
	}
	q.ready(id, inbox, now)
	return true
}

// next hands out the idle worker at the front of the rotation and marks it
// busy. It returns false if no worker is idle.
func (q *workerQueue) next() (*workerInfo, bool) {
	if len(q.idle) == 0 {
		return nil, false
	}
	w := q.idle[0]
	q.idle[0] = nil
	q.idle = q.idle[1:]
	q.busy[w.id] = w
	return w, true
}

// release returns a busy worker to the back of the rotation
func (q *workerQueue) release(id string, now time.Time) {
	w, ok := q.busy[id]
	if !ok {
		return
	}
	delete(q.busy, id)
	w.expiry = now.Add(q.liveness)
	w.reply = nil
	q.idle = append(q.idle, w)
}

// drop forgets a worker entirely
func (q *workerQueue) drop(id string) {
	delete(q.busy, id)
	q.removeIdle(id)
}

// purge removes idle workers whose expiry has passed and returns their ids.
// Busy workers are never purged, they always report back.
func (q *workerQueue) purge(now time.Time) []string {
	var purged []string
	kept := q.idle[:0]
	for _, w := range q.idle {
		if now.After(w.expiry) {
			purged = append(purged, w.id)
			continue
		}
		kept = append(kept, w)
	}
	for i := len(kept); i < len(q.idle); i++ {
		q.idle[i] = nil
	}
	q.idle = kept
	return purged
}

// idleWorkers returns the idle workers in rotation order
func (q *workerQueue) idleWorkers() []*workerInfo {
	return q.idle
}

func (q *workerQueue) available() int {
	return len(q.idle)
}

// inFlightReplies returns the clients of all jobs currently executed
func (q *workerQueue) inFlightReplies() []common.IResponder {
	var replies []common.IResponder
	for _, w := range q.busy {
		if w.reply != nil {
			replies = append(replies, w.reply)
		}
	}
	return replies
}

func (q *workerQueue) inFlight() int {
	return len(q.busy)
}

func (q *workerQueue) removeIdle(id string) *workerInfo {
	for i, w := range q.idle {
		if w.id == id {
			q.idle = append(q.idle[:i], q.idle[i+1:]...)
			return w
		}
	}
	return nil
}
