// Package saver writes trees to disk when the broker asks for it. Each tree
// is dumped to <folder>/<name>.tmp and renamed to <folder>/<name>.tree.
package saver
