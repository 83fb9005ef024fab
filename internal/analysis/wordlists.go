package analysis

import (
	"path/filepath"
)

// DirWordLists resolves decompounder word lists inside a directory. The
// engine reads word_list_path relative to its own config directory, so dir
// is usually a path as the engine nodes see it.
type DirWordLists struct {
	dir string
}

// NewDirWordLists creates a resolver rooted at dir. An empty dir leaves
// names unchanged.
func NewDirWordLists(dir string) *DirWordLists {
	return &DirWordLists{dir: dir}
}

// WordListPath returns the path the engine should read the named list from.
func (d *DirWordLists) WordListPath(name string) string {
	if d.dir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(d.dir, name)
}
