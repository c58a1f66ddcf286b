package tree

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/scallionDB/cmd/util"
	"github.com/ValentinKolb/scallionDB/lib/tree"
	"github.com/ValentinKolb/scallionDB/rpc/client"
	"github.com/ValentinKolb/scallionDB/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for scallionDB servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfTreePrefix = "__perf"
	perfNumThreads = 10
	perfNodeSpread = 100
	perfSkip       = make([]string, 0)
	perfRoot       = map[string]interface{}{"kind": "root"}
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "nodes"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different nodes to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfNodeSpread = viper.GetInt("nodes")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfNodeSpread <= 0 {
		return fmt.Errorf("nodes must be greater than 0")
	}
	return nil
}

func runPerf(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	fmt.Println("Performance testing tool for scallionDB servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("staring tests...")

	results := make(map[string]testing.BenchmarkResult)

	results["put"] = benchmark(ctx, "put", false, func(t *client.Tree, key string, _ int) error {
		_, err := t.PutTree(ctx, tree.RefSelf, perfRoot, map[string]interface{}{"key": key})
		return err
	})

	results["get"] = benchmark(ctx, "get", true, func(t *client.Tree, key string, _ int) error {
		_, err := t.GetTree(ctx, tree.RefSelf, map[string]interface{}{"key": key})
		return err
	})

	results["attrs"] = benchmark(ctx, "attrs", true, func(t *client.Tree, key string, i int) error {
		_, err := t.PutAttrs(ctx, tree.RefSelf, map[string]interface{}{"key": key}, map[string]interface{}{"n": i})
		return err
	})

	results["delete"] = benchmark(ctx, "delete", true, func(t *client.Tree, key string, _ int) error {
		_, err := t.DelTree(ctx, tree.RefSelf, map[string]interface{}{"key": key})
		return err
	})

	results["mixed"] = benchmark(ctx, "mixed", true, func(t *client.Tree, key string, i int) error {
		var err error
		switch i % 4 {
		case 0: // put
			_, err = t.PutTree(ctx, tree.RefSelf, perfRoot, map[string]interface{}{"key": key})
		case 1: // get
			_, err = t.GetTree(ctx, tree.RefSelf, map[string]interface{}{"key": key})
		case 2: // attrs
			_, err = t.GetAttrs(ctx, tree.RefSelf, map[string]interface{}{"key": key}, nil)
		case 3: // delete
			_, err = t.DelTree(ctx, tree.RefSelf, map[string]interface{}{"key": key})
		}
		return err
	})

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// benchmark runs op in parallel against a fresh tree named after the test.
// With seed set the tree gets one child per node key before the timer starts.
func benchmark(ctx context.Context, test string, seed bool, op func(t *client.Tree, key string, i int) error) testing.BenchmarkResult {
	result := testing.Benchmark(func(b *testing.B) {
		if shouldSkip(test) {
			return
		}

		t := rpcClient.Tree(fmt.Sprintf("%s-%s", perfTreePrefix, test))
		getKey, iter := getKeys(test)

		if _, err := t.PutTree(ctx, tree.RefSelf, perfRoot, perfRoot); err != nil {
			log.Printf("(%s) - error creating tree: %v\n", test, err)
		}
		if seed {
			iter(func(k string) {
				if _, err := t.PutTree(ctx, tree.RefSelf, perfRoot, map[string]interface{}{"key": k}); err != nil {
					log.Printf("(%s) - error putting node: %v\n", test, err)
				}
			})
		}

		// cleanup
		b.Cleanup(func() {
			if _, err := t.DelTree(ctx, tree.RefSelf, perfRoot); err != nil {
				log.Printf("(%s) - error deleting tree: %v\n", test, err)
			}
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if err := op(t, getKey(counter), counter); err != nil {
					log.Printf("(%s) - error performing operation: %v\n", test, err)
				}
				counter++
			}
		})
	})

	printResult(test, result)
	return result
}

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of node keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfNodeSpread)
	for i := 0; i < perfNodeSpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfTreePrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfNodeSpread]
	}

	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoints", "TimeoutMs", "RetryCount", "ConnectionsPerEndpoint",
		"Transport", "Threads", "Nodes Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		skipped := "true"

		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strings.Join(config.Endpoints, ";"),
			strconv.FormatInt(config.TimeoutMs, 10),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(config.ConnectionsPerEndpoint),
			config.Transport,
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfNodeSpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
