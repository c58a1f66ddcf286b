package broker

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/scallionDB/lib/lockmgr"
	"github.com/ValentinKolb/scallionDB/lib/statement"
	"github.com/ValentinKolb/scallionDB/lib/store"
	"github.com/ValentinKolb/scallionDB/lib/util"
	"github.com/ValentinKolb/scallionDB/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("broker")

const channelBuffer = 1024

// Broker multiplexes client requests onto the worker pool. All of its state
// is owned by the goroutine running Run, other goroutines talk to it only
// through its channels.
type Broker struct {
	config common.ServerConfig
	trees  store.ITreeStore // only ever asked for names

	fromWorkers chan common.Message
	fromClients chan common.Message
	fromSaver   chan common.Message
	toSaver     *util.MPSC[common.Message]

	locks       lockmgr.ILockTable
	workers     *workerQueue
	pending     *pendingQueue
	saveCounter map[string]int
	heartbeatAt time.Time

	metrics *brokerMetrics
	status  atomic.Pointer[Status]
}

// Status is a snapshot of the broker state, refreshed after every tick.
type Status struct {
	Pending      int            `json:"pending"`
	IdleWorkers  int            `json:"idle_workers"`
	BusyWorkers  int            `json:"busy_workers"`
	Active       []string       `json:"active"`
	Writing      []string       `json:"writing"`
	SaveCounters map[string]int `json:"save_counters"`
}

// New creates a broker. trees is used for the administrative tree listing.
func New(config common.ServerConfig, trees store.ITreeStore) *Broker {
	b := &Broker{
		config:      config,
		trees:       trees,
		fromWorkers: make(chan common.Message, channelBuffer),
		fromClients: make(chan common.Message, channelBuffer),
		fromSaver:   make(chan common.Message, channelBuffer),
		toSaver:     util.NewMPSC[common.Message](),
		locks:       lockmgr.NewLockTable(),
		workers:     newWorkerQueue(config.LivenessWindow()),
		pending:     newPendingQueue(),
		saveCounter: make(map[string]int),
		metrics:     newBrokerMetrics(),
	}
	b.publishStatus()
	return b
}

// --------------------------------------------------------------------------
// Channels
// --------------------------------------------------------------------------

// WorkerChannel is where workers send Ready, Heartbeat, Partial, Failure
// and Complete messages.
func (b *Broker) WorkerChannel() chan<- common.Message {
	return b.fromWorkers
}

// SaverChannel is where the saver sends Flushed messages.
func (b *Broker) SaverChannel() chan<- common.Message {
	return b.fromSaver
}

// FlushJobs delivers the Flush messages for the saver. The channel is
// closed after Run returned.
func (b *Broker) FlushJobs() <-chan common.Message {
	return b.toSaver.Recv()
}

// Submit hands a client request to the broker. It is safe to call from any
// goroutine.
func (b *Broker) Submit(req common.Request, reply common.IResponder) {
	b.fromClients <- common.NewClientRequest(req, reply)
}

// Status returns the latest state snapshot.
func (b *Broker) Status() Status {
	return *b.status.Load()
}

// --------------------------------------------------------------------------
// Event Loop
// --------------------------------------------------------------------------

// Run executes the event loop until the context is canceled. Requests still
// queued or executing at shutdown are answered with a failure.
func (b *Broker) Run(ctx context.Context) error {
	defer b.toSaver.Close()

	interval := b.config.HeartbeatInterval()
	b.heartbeatAt = time.Now().Add(interval)
	timer := time.NewTimer(interval)
	defer timer.Stop()

	Logger.Infof("Broker started (heartbeat %s, liveness %d, save limit %d)",
		interval, b.config.HeartbeatLiveness, b.config.SaveLimit)

	for {
		var fromWorker, fromClient, fromSaver *common.Message

		select {
		case <-ctx.Done():
			b.shutdown()
			return nil
		case m := <-b.fromWorkers:
			fromWorker = &m
		case m := <-b.fromClients:
			fromClient = &m
		case m := <-b.fromSaver:
			fromSaver = &m
		case <-timer.C:
		}

		// every channel contributes at most one message per tick
		if fromWorker == nil {
			select {
			case m := <-b.fromWorkers:
				fromWorker = &m
			default:
			}
		}
		if fromClient == nil {
			select {
			case m := <-b.fromClients:
				fromClient = &m
			default:
			}
		}
		if fromSaver == nil {
			select {
			case m := <-b.fromSaver:
				fromSaver = &m
			default:
			}
		}

		b.tick(time.Now(), fromWorker, fromClient, fromSaver)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(max(time.Until(b.heartbeatAt), 0))
	}
}

// tick processes one wake of the loop in a fixed order.
func (b *Broker) tick(now time.Time, fromWorker, fromClient, fromSaver *common.Message) {
	if fromWorker != nil {
		b.handleWorker(*fromWorker, now)
	}

	if !now.Before(b.heartbeatAt) {
		b.sendHeartbeats()
		b.heartbeatAt = now.Add(b.config.HeartbeatInterval())
	}

	b.sweepPending(now)

	if fromClient != nil {
		b.handleClient(*fromClient, now)
	}

	if fromSaver != nil {
		b.handleSaver(*fromSaver)
		// the released tree may unblock queued requests
		b.sweepPending(now)
	}

	for _, id := range b.workers.purge(now) {
		Logger.Warningf("Worker %s missed its heartbeats, removed from pool", id)
		b.metrics.purged.Inc()
	}

	b.publishStatus()
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

func (b *Broker) handleWorker(m common.Message, now time.Time) {
	switch m.MsgType {
	case common.MsgTReady:
		b.workers.ready(m.WorkerID, m.Inbox, now)
		Logger.Debugf("Worker %s is ready", m.WorkerID)

	case common.MsgTHeartbeat:
		if !b.workers.heartbeat(m.WorkerID, m.Inbox, now) {
			Logger.Debugf("Heartbeat from unknown worker %s", m.WorkerID)
		}

	case common.MsgTPartial:
		respond(m.Reply, common.StatusMessage, m.Payload)

	case common.MsgTFailure:
		b.workers.release(m.WorkerID, now)
		b.locks.Release(m.Tree)
		b.metrics.failures.Inc()
		errText := "unknown error"
		if m.Err != nil {
			errText = m.Err.Error()
		}
		respond(m.Reply, common.StatusFailure, []byte(errText))

	case common.MsgTComplete:
		b.workers.release(m.WorkerID, now)
		b.metrics.completions.Inc()
		respond(m.Reply, common.StatusComplete, []byte(m.Tree))
		b.complete(m.Tree, m.Exists)

	default:
		Logger.Warningf("Unexpected %s message from worker %s", m.MsgType, m.WorkerID)
	}
}

// complete updates the lock table and the save counters after a finished
// operation. A write that pushes the counter to the save limit keeps its
// lock until the saver reports back.
func (b *Broker) complete(tree string, exists bool) {
	if !b.locks.IsWriting(tree) {
		b.locks.Release(tree)
		return
	}

	if !exists {
		b.locks.Release(tree)
		delete(b.saveCounter, tree)
		return
	}

	b.saveCounter[tree]++
	if b.saveCounter[tree] >= b.config.SaveLimit {
		Logger.Debugf("Tree %s reached %d writes, flushing", tree, b.saveCounter[tree])
		b.toSaver.Push(common.NewFlush(tree))
		return
	}
	b.locks.Release(tree)
}

func (b *Broker) handleClient(m common.Message, now time.Time) {
	b.metrics.requests.Inc()
	req := m.Request

	var expiry time.Time
	if req.HasTimeout {
		expiry = now.Add(req.Timeout - b.config.LivenessWindow())
	} else {
		expiry = now.Add(b.config.ExpectedPerformance())
	}
	if expiry.Before(now) {
		b.metrics.timeouts.Inc()
		Logger.Debugf("Request %q cannot finish within its timeout", req.Statement)
		respond(m.Reply, common.StatusTimeout, []byte("Expected Timeout computed"))
		return
	}

	stmt, err := statement.Parse(req.Statement)
	if err != nil {
		b.metrics.failures.Inc()
		respond(m.Reply, common.StatusFailure, []byte(err.Error()))
		return
	}

	if stmt.Kind() == statement.KindAdmin {
		b.metrics.adminCalls.Inc()
		names, _ := json.Marshal(b.trees.Names())
		respond(m.Reply, common.StatusNonTree, names)
		return
	}

	pm := &pendingMessage{stmt: stmt, reply: m.Reply, expiry: expiry, received: now}
	if b.pending.waiting(pm.tree()) || !b.dispatch(pm) {
		b.metrics.deferred.Inc()
		b.pending.push(pm)
	}
}

func (b *Broker) handleSaver(m common.Message) {
	if m.MsgType != common.MsgTFlushed {
		Logger.Warningf("Unexpected %s message from saver", m.MsgType)
		return
	}

	b.locks.Release(m.Tree)
	if m.Err != nil {
		// the counter stays at the limit so the next write retries
		b.metrics.flushErrors.Inc()
		Logger.Errorf("Failed to persist tree %s: %v", m.Tree, m.Err)
		return
	}
	b.metrics.flushes.Inc()
	if _, ok := b.saveCounter[m.Tree]; ok {
		b.saveCounter[m.Tree] = 0
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sweepPending scans the pending queue once, answering expired requests and
// dispatching what the lock table and the worker pool allow.
func (b *Broker) sweepPending(now time.Time) {
	if b.pending.len() == 0 {
		return
	}
	b.pending.sweep(func(m *pendingMessage, blocked bool) bool {
		if now.After(m.expiry) {
			b.metrics.timeouts.Inc()
			Logger.Debugf("Request %q expired in queue", m.stmt.String())
			respond(m.reply, common.StatusTimeout, []byte("Request expired while queued"))
			return true
		}
		if blocked {
			return false
		}
		return b.dispatch(m)
	})
}

// dispatch hands the request to the next worker if the lock table allows
// it. Workers whose inbox is full are dropped from the pool.
func (b *Broker) dispatch(m *pendingMessage) bool {
	if !b.locks.CanAcquire(m.tree(), m.write()) {
		return false
	}
	for {
		w, ok := b.workers.next()
		if !ok {
			return false
		}
		select {
		case w.inbox <- common.NewJob(m.stmt, m.reply):
			w.reply = m.reply
			b.locks.Acquire(m.tree(), m.write())
			b.metrics.dispatched.Inc()
			b.metrics.queueWait.UpdateDuration(m.received)
			Logger.Debugf("Dispatched %s on %s to worker %s", m.stmt.Kind(), m.tree(), w.id)
			return true
		default:
			Logger.Warningf("Worker %s does not accept jobs, removed from pool", w.id)
			b.workers.drop(w.id)
		}
	}
}

// sendHeartbeats sends a heartbeat to every idle worker without blocking
func (b *Broker) sendHeartbeats() {
	hb := common.NewHeartbeat("", nil)
	for _, w := range b.workers.idleWorkers() {
		select {
		case w.inbox <- hb:
		default:
		}
	}
}

// shutdown delivers the worker messages that already arrived and answers
// every request still in flight or queued with a failure.
func (b *Broker) shutdown() {
	now := time.Now()
	for drained := false; !drained; {
		select {
		case m := <-b.fromWorkers:
			b.handleWorker(m, now)
		default:
			drained = true
		}
	}

	failure := []byte(store.NewError(store.RetCInternalError, "broker shutting down").Error())
	for _, reply := range b.workers.inFlightReplies() {
		respond(reply, common.StatusFailure, failure)
	}
	b.pending.sweep(func(m *pendingMessage, _ bool) bool {
		respond(m.reply, common.StatusFailure, failure)
		return true
	})
	b.publishStatus()
	Logger.Infof("Broker stopped")
}

func (b *Broker) publishStatus() {
	counters := make(map[string]int, len(b.saveCounter))
	for k, v := range b.saveCounter {
		counters[k] = v
	}
	active := b.locks.Active()

	b.status.Store(&Status{
		Pending:      b.pending.len(),
		IdleWorkers:  b.workers.available(),
		BusyWorkers:  b.workers.inFlight(),
		Active:       active,
		Writing:      b.locks.Writing(),
		SaveCounters: counters,
	})

	b.metrics.pending.Store(int64(b.pending.len()))
	b.metrics.idleWorkers.Store(int64(b.workers.available()))
	b.metrics.busyWorkers.Store(int64(b.workers.inFlight()))
	b.metrics.activeTrees.Store(int64(len(active)))
}

func respond(reply common.IResponder, status common.Status, payload []byte) {
	if reply == nil {
		return
	}
	if !reply.Respond(common.Frame{Status: status, Payload: payload}) {
		Logger.Debugf("Client gone, dropped %s frame", status)
	}
}
