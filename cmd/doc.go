// Package cmd implements the command-line interface of scallionDB. It
// provides a hierarchical command structure with operations for running the
// server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts and configures the scallionDB server
//   - tree: Client commands for tree operations (get, put, delete, load, save, show, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See scallion -help for a list of all commands.
package cmd
