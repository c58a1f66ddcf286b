package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ValentinKolb/scallionDB/lib/tree"
	"github.com/ValentinKolb/scallionDB/rpc/client"
	"github.com/ValentinKolb/scallionDB/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("loader")

// Timeout is the request timeout used for LOAD statements.
const Timeout = 24 * time.Hour

// Summary counts the LOAD statements of one run.
type Summary struct {
	Issued int
	Loaded int
	Failed int
}

// ack is the answer to one LOAD statement
type ack struct {
	name  string
	nodes int
	err   error
}

// report logs a single acknowledgement
var report = func(a ack) {
	if a.err != nil {
		Logger.Errorf("Failed to load tree %s: %v", a.name, a.err)
		return
	}
	Logger.Infof("Loaded tree %s (%d nodes)", a.name, a.nodes)
}

// ClientConfig returns the client configuration the loader connects with.
func ClientConfig(endpoint, transport string) common.ClientConfig {
	return common.ClientConfig{
		Endpoints:              []string{endpoint},
		Transport:              transport,
		TimeoutMs:              Timeout.Milliseconds(),
		ConnectTimeoutMs:       5000,
		RetryCount:             3,
		ConnectionsPerEndpoint: 1,
	}
}

// Run issues one LOAD statement per tree file in folder and waits until each
// of them was answered. A failed load is logged and counted, it does not
// stop the others.
func Run(ctx context.Context, folder string, c *client.Client) (Summary, error) {
	names, err := tree.ListPersisted(folder)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list %s: %w", folder, err)
	}
	if len(names) == 0 {
		Logger.Infof("No persisted trees in %s", folder)
		return Summary{}, nil
	}

	acks := make(chan ack, len(names))

	summary := Summary{}
	for _, name := range names {
		path, err := filepath.Abs(tree.FilePath(folder, name))
		if err != nil {
			return summary, err
		}
		summary.Issued++
		go func(name, path string) {
			n, err := c.Tree(name).LoadTree(ctx, path)
			acks <- ack{name: name, nodes: n, err: err}
		}(name, path)
	}

	// report every acknowledgement as soon as it arrives
	for i := 0; i < summary.Issued; i++ {
		a := <-acks
		if a.err != nil {
			summary.Failed++
		} else {
			summary.Loaded++
		}
		report(a)
	}
	Logger.Infof("Loaded %d of %d persisted trees", summary.Loaded, summary.Issued)
	return summary, nil
}
