package crawler

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Crawler scans a directory tree for Java mod sources.
type Crawler struct {
	include []string
	exclude []string
	ignored []string
}

// Options selects which files a scan yields. Patterns are doublestar globs
// matched against slash-separated paths relative to the scan root.
type Options struct {
	// Include patterns; a file must match at least one. Defaults to all
	// Java sources.
	Include []string

	// Exclude patterns; a matching file is dropped even when included.
	// Defaults to the Gradle/Maven test source tree.
	Exclude []string

	// Ignored directory names, pruned from the walk entirely.
	Ignored []string
}

// New validates the patterns and returns a crawler.
func New(opts Options) (*Crawler, error) {
	c := &Crawler{
		include: opts.Include,
		exclude: opts.Exclude,
		ignored: opts.Ignored,
	}
	if len(c.include) == 0 {
		c.include = []string{"**/*.java"}
	}
	if c.exclude == nil {
		c.exclude = []string{"**/src/test/**"}
	}
	if c.ignored == nil {
		c.ignored = []string{".git", ".gradle", "build", "out", "run", "node_modules"}
	}

	for _, pattern := range append(append([]string{}, c.include...), c.exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
		}
	}
	return c, nil
}

// ScanProject walks the root directory and streams matching file paths
// through the callback, avoiding large result buildup on big mod projects.
func (c *Crawler) ScanProject(root string, onFile func(path string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if c.IgnoredDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if c.Matches(filepath.ToSlash(rel)) {
			onFile(path)
		}
		return nil
	})
}

// Collect runs ScanProject and gathers the matches.
func (c *Crawler) Collect(root string) ([]string, error) {
	var files []string
	err := c.ScanProject(root, func(path string) {
		files = append(files, path)
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Matches reports whether a root-relative, slash-separated path is selected
// by the include and exclude patterns.
func (c *Crawler) Matches(rel string) bool {
	var included bool
	for _, pattern := range c.include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pattern := range c.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	return true
}

// IgnoredDir reports whether a directory name is pruned from scans.
func (c *Crawler) IgnoredDir(name string) bool {
	for _, ign := range c.ignored {
		if name == ign {
			return true
		}
	}
	return false
}
