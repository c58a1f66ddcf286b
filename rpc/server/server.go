package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/scallionDB/lib/store"
	"github.com/ValentinKolb/scallionDB/lib/store/lstore"
	"github.com/ValentinKolb/scallionDB/rpc/broker"
	"github.com/ValentinKolb/scallionDB/rpc/client"
	"github.com/ValentinKolb/scallionDB/rpc/common"
	"github.com/ValentinKolb/scallionDB/rpc/loader"
	"github.com/ValentinKolb/scallionDB/rpc/saver"
	"github.com/ValentinKolb/scallionDB/rpc/transport"
	"github.com/ValentinKolb/scallionDB/rpc/worker"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
)

var Logger = logger.GetLogger("rpc")

// RPCServer wires the tree mapping, the broker, the workers, the saver and
// the client transport together.
type RPCServer struct {
	config          common.ServerConfig
	transport       transport.IRPCServerTransport
	clientTransport transport.IRPCClientTransport

	trees    store.ITreeStore
	broker   *broker.Broker
	registry gometrics.Registry
	admin    *http.Server
	adminLn  net.Listener

	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

// NewRPCServer creates a new server. clientTransport must match the kind of
// the server transport, the loader uses it to restore persisted trees.
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(),
//		tcp.NewTCPClientTransport(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	clientTransport transport.IRPCClientTransport,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	trees := lstore.NewLocalStore()
	return &RPCServer{
		config:          config,
		transport:       transport,
		clientTransport: clientTransport,
		trees:           trees,
		broker:          broker.New(config, trees),
		registry:        gometrics.NewRegistry(),
	}
}

// Serve starts the server and blocks until the context is canceled.
func (s *RPCServer) Serve(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	return s.Wait()
}

// Start binds the listeners and starts all loops. It returns once clients
// can connect. The loops stop when the context is canceled.
func (s *RPCServer) Start(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Init logger
	common.InitLoggers(s.config.LogLevel)

	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	s.transport.RegisterHandler(func(req common.Request, reply common.IResponder) {
		s.broker.Submit(req, reply)
	})
	if err := s.transport.Listen(s.config); err != nil {
		return err
	}

	if s.config.AdminEndpoint != "" {
		ln, err := net.Listen("tcp", s.config.AdminEndpoint)
		if err != nil {
			return fmt.Errorf("failed to bind admin endpoint: %w", err)
		}
		s.adminLn = ln
		s.admin = &http.Server{
			Handler:           newAdminRouter(s.broker, s.trees, s.registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	s.run(func() error { return s.broker.Run(ctx) })

	for i := 0; i < s.config.Workers; i++ {
		w := worker.New(s.config, s.trees, s.broker.WorkerChannel(), s.registry)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			// a worker that lost the broker does not stop the server
			if err := w.Run(ctx); err != nil {
				Logger.Errorf("Worker %s terminated: %v", w.ID(), err)
			}
		}()
	}

	sv := saver.New(s.config.DataDir, s.trees, s.broker.FlushJobs(), s.broker.SaverChannel(), s.registry)
	s.run(func() error { return sv.Run(ctx) })

	s.run(func() error { return s.transport.Serve(ctx) })

	if s.admin != nil {
		Logger.Infof("Admin endpoint listening on http://%s", s.adminLn.Addr())
		s.run(func() error {
			if err := s.admin.Serve(s.adminLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		s.run(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.admin.Shutdown(shutdownCtx)
		})
	}

	if s.config.SkipLoad {
		Logger.Infof("Skipping the load of persisted trees")
	} else {
		s.run(func() error { return s.load(ctx) })
	}

	Logger.Infof("scallionDB setup completed successfully")
	return nil
}

// Wait blocks until all loops stopped and returns the first error.
func (s *RPCServer) Wait() error {
	s.wg.Wait()
	return s.err
}

// Addr returns the address clients connect to.
func (s *RPCServer) Addr() string {
	return s.transport.Addr()
}

// AdminAddr returns the address of the admin endpoint, empty if disabled.
func (s *RPCServer) AdminAddr() string {
	if s.adminLn == nil {
		return ""
	}
	return s.adminLn.Addr().String()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *RPCServer) run(fn func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(); err != nil {
			s.errOnce.Do(func() { s.err = err })
			Logger.Errorf("%v", err)
		}
	}()
}

// load restores the persisted trees through the client protocol
func (s *RPCServer) load(ctx context.Context) error {
	c, err := client.New(loader.ClientConfig(s.Addr(), s.config.Transport), s.clientTransport)
	if err != nil {
		return fmt.Errorf("loader failed to connect: %w", err)
	}
	defer c.Close()

	summary, err := loader.Run(ctx, s.config.DataDir, c)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		Logger.Warningf("%d of %d persisted trees could not be loaded", summary.Failed, summary.Issued)
	}
	return nil
}
