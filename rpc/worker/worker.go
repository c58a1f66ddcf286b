package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/scallionDB/lib/engine"
	"github.com/ValentinKolb/scallionDB/lib/statement"
	"github.com/ValentinKolb/scallionDB/lib/store"
	"github.com/ValentinKolb/scallionDB/lib/tree"
	"github.com/ValentinKolb/scallionDB/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/oklog/ulid/v2"
	gometrics "github.com/rcrowley/go-metrics"
)

var (
	Logger     = logger.GetLogger("worker")
	commandLog = logger.GetLogger("commands")
)

const inboxSize = 16

// evaluator executes one statement against the tree mapping
type evaluator func(trees store.ITreeStore, s *statement.Statement, folder string) (*engine.Result, error)

// Worker executes jobs handed out by the broker, one at a time.
type Worker struct {
	id       string
	config   common.ServerConfig
	trees    store.ITreeStore
	broker   chan<- common.Message
	inbox    chan common.Message
	registry gometrics.Registry
	evaluate evaluator
}

// New creates a worker that reports to the given broker channel. Execution
// timers are registered in registry, nil selects the default registry.
func New(config common.ServerConfig, trees store.ITreeStore, broker chan<- common.Message, registry gometrics.Registry) *Worker {
	if registry == nil {
		registry = gometrics.DefaultRegistry
	}
	return &Worker{
		id:       "w-" + ulid.Make().String(),
		config:   config,
		trees:    trees,
		broker:   broker,
		inbox:    make(chan common.Message, inboxSize),
		registry: registry,
		evaluate: engine.Evaluate,
	}
}

// ID returns the identity the worker announces itself with.
func (w *Worker) ID() string {
	return w.id
}

// --------------------------------------------------------------------------
// Main Loop
// --------------------------------------------------------------------------

// Run announces the worker and executes jobs until the context is canceled.
// If the broker stays silent for longer than the heartbeat liveness, the
// worker backs off and announces itself again. Once the backoff exceeds its
// ceiling Run returns a WorkerLivenessError.
func (w *Worker) Run(ctx context.Context) error {
	interval := w.config.HeartbeatInterval()
	liveness := w.config.HeartbeatLiveness
	backoff := w.config.ReconnectInitial()

	if !w.send(ctx, common.NewReady(w.id, w.inbox)) {
		return nil
	}
	Logger.Debugf("Worker %s ready", w.id)

	poll := time.NewTimer(interval)
	defer poll.Stop()
	heartbeatAt := time.Now().Add(interval)

	for {
		select {
		case <-ctx.Done():
			return nil

		case m := <-w.inbox:
			liveness = w.config.HeartbeatLiveness
			backoff = w.config.ReconnectInitial()
			switch m.MsgType {
			case common.MsgTJob:
				w.execute(ctx, m)
			case common.MsgTHeartbeat:
			default:
				Logger.Warningf("Worker %s got unexpected %s message", w.id, m.MsgType)
			}

		case <-poll.C:
			liveness--
			if liveness > 0 {
				break
			}
			if backoff > w.config.ReconnectMax() {
				return store.Errorf(store.RetCWorkerLiveness, "worker %s lost the broker", w.id)
			}
			Logger.Warningf("Worker %s lost the broker, announcing again in %s", w.id, backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff *= 2
			liveness = w.config.HeartbeatLiveness
			if !w.send(ctx, common.NewReady(w.id, w.inbox)) {
				return nil
			}
		}

		if !time.Now().Before(heartbeatAt) {
			if !w.send(ctx, common.NewHeartbeat(w.id, w.inbox)) {
				return nil
			}
			heartbeatAt = time.Now().Add(interval)
		}

		if !poll.Stop() {
			select {
			case <-poll.C:
			default:
			}
		}
		poll.Reset(interval)
	}
}

// execute runs one job and reports the outcome. Every job ends with exactly
// one Complete or Failure message.
func (w *Worker) execute(ctx context.Context, job common.Message) {
	stmt := job.Statement
	defer gometrics.GetOrRegisterTimer("op."+strings.ToLower(string(stmt.Op)), w.registry).UpdateSince(time.Now())

	result, err := w.run(stmt)
	if err == nil {
		err = w.stream(ctx, job.Reply, result)
	}
	if err != nil {
		gometrics.GetOrRegisterCounter("errors", w.registry).Inc(1)
		Logger.Errorf("Failed to execute %q: %v", stmt.String(), err)
		w.send(ctx, common.NewFailure(w.id, job.Reply, stmt.Tree, err))
		return
	}

	commandLog.Infof("%s", stmt.String())
	w.send(ctx, common.NewComplete(w.id, job.Reply, stmt.Tree, w.trees.Has(stmt.Tree)))
}

// run evaluates the statement and turns a panic into an ExecutionError
func (w *Worker) run(stmt *statement.Statement) (result *engine.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = store.Errorf(store.RetCExecutionError, "evaluation panicked: %v", r)
		}
	}()
	return w.evaluate(w.trees, stmt, w.config.DataDir)
}

// --------------------------------------------------------------------------
// Result Streaming
// --------------------------------------------------------------------------

// stream sends the result as partial frames. A scalar is sent as one frame,
// a list as a JSON array cut into chunks of roughly ChunkSize bytes.
func (w *Worker) stream(ctx context.Context, reply common.IResponder, result *engine.Result) error {
	if !result.IsList() {
		data, err := json.Marshal(result.Value)
		if err != nil {
			return store.Errorf(store.RetCExecutionError, "encode result: %v", err)
		}
		return w.partial(ctx, reply, data)
	}

	if err := w.partial(ctx, reply, []byte("[")); err != nil {
		return err
	}

	var acc strings.Builder
	flush := func() error {
		if acc.Len() == 0 {
			return nil
		}
		data := []byte(acc.String())
		acc.Reset()
		if err := w.partial(ctx, reply, data); err != nil {
			return err
		}
		if !sleep(ctx, w.config.StreamPause()) {
			return ctx.Err()
		}
		return nil
	}
	write := func(fragment string) error {
		acc.WriteString(fragment)
		if acc.Len() > w.config.ChunkSize {
			return flush()
		}
		return nil
	}

	for i := 0; i < result.Len(); i++ {
		if i > 0 {
			if err := write(","); err != nil {
				return err
			}
		}

		if result.Kind == engine.ResultAttrs {
			data, err := json.Marshal(result.Attrs[i])
			if err != nil {
				return store.Errorf(store.RetCExecutionError, "encode attributes: %v", err)
			}
			if err := write(string(data)); err != nil {
				return err
			}
			continue
		}

		b := tree.NewBreaker(result.Nodes[i])
		for fragment, ok := b.Next(); ok; fragment, ok = b.Next() {
			if err := write(fragment); err != nil {
				return err
			}
		}
		if err := b.Err(); err != nil {
			Logger.Warningf("Attribute of node %s could not be encoded: %v", result.Nodes[i].ID, err)
		}
	}

	if err := flush(); err != nil {
		return err
	}
	return w.partial(ctx, reply, []byte("]"))
}

func (w *Worker) partial(ctx context.Context, reply common.IResponder, data []byte) error {
	if !w.send(ctx, common.NewPartial(w.id, reply, data)) {
		return fmt.Errorf("worker %s stopped while streaming: %w", w.id, ctx.Err())
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// send delivers a message to the broker, false means the context ended
func (w *Worker) send(ctx context.Context, m common.Message) bool {
	select {
	case w.broker <- m:
		return true
	case <-ctx.Done():
		return false
	}
}

// sleep waits for d or until the context ends, false means the context ended
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
