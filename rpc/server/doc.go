// Package server implements the scallionDB server process.
//
// NewRPCServer is the composition root: it creates the shared tree mapping,
// the broker, the configured number of workers, the saver and, if enabled,
// the HTTP admin endpoint. The server transport hands every decoded request
// to the broker, which answers through the request's responder.
//
// At startup the loader restores every persisted tree by sending LOAD
// statements to the server's own endpoint.
//
// Usage Example:
//
//	config := common.DefaultServerConfig()
//	config.DataDir = "/var/lib/scallion"
//	config.AdminEndpoint = "127.0.0.1:8080"
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  tcp.NewTCPClientTransport(),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Admin endpoint routes:
//
//	GET /healthz        liveness check
//	GET /metrics        broker and process metrics in Prometheus format
//	GET /status         broker snapshot (queue, workers, locks, save counters)
//	GET /trees          names of all trees
//	GET /debug/workers  worker execution timers as JSON
package server
