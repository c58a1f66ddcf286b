package tree

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// FileExt is the extension of persisted trees.
	FileExt = ".tree"
	// TmpExt is the extension used while a tree is being written.
	TmpExt = ".tmp"
)

// ValidName reports an error for names that cannot be used as a file name
// inside the data folder: empty, "." or "..", or containing a path
// separator or whitespace.
func ValidName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid tree name %q", name)
	case strings.ContainsAny(name, "/\\ \t\r\n"), strings.Contains(name, ".."):
		return fmt.Errorf("invalid tree name %q: must not contain path separators, whitespace or \"..\"", name)
	}
	return nil
}

// FilePath returns the persistent file name of a tree inside folder.
func FilePath(folder, name string) string {
	return filepath.Join(folder, name+FileExt)
}

// Persist writes the tree to <folder>/<name>.tmp and renames it to
// <folder>/<name>.tree, so a crash never leaves a partially written .tree
// file behind. It returns the final path.
func Persist(t *Tree, folder string) (string, error) {
	if t == nil || t.Root == nil {
		return "", fmt.Errorf("tree is empty")
	}
	if err := ValidName(t.Name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", folder, err)
	}

	tmp := filepath.Join(folder, t.Name+TmpExt)
	if err := writeFile(t.Root, tmp); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	final := FilePath(folder, t.Name)
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move %s to %s: %w", tmp, final, err)
	}
	return final, nil
}

// Load reads a tree file and names the result.
func Load(name, path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	root, err := FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return New(name, root), nil
}

// ListPersisted returns the names of all trees persisted in folder, sorted.
// A missing folder yields no names and no error.
func ListPersisted(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), FileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), FileExt))
	}
	sort.Strings(names)
	return names, nil
}

func writeFile(root *Node, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	b := NewBreaker(root)
	for {
		frag, ok := b.Next()
		if !ok {
			break
		}
		if _, err := w.WriteString(frag); err != nil {
			f.Close()
			return err
		}
	}
	if err := b.Err(); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode tree: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
