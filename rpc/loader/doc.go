// Package loader restores persisted trees at startup. It sends a LOAD
// statement for every <name>.tree file through the regular client protocol,
// so loading is subject to the same locking as any other write.
package loader
