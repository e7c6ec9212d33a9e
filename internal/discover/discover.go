// Package discover implements Repository Discovery (C3): walking one or
// more root paths for directory candidates, honoring an ignore list,
// symlink containment, and a max traversal depth. It emits directories
// only; deciding which of those are actual Git repositories is left to
// the caller (C6), matching spec.md §4.3's "emitting a non-repo is not an
// error".
package discover

import (
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// Options configures a single discovery pass.
type Options struct {
	Roots     []string
	Recursive bool
	MaxDepth  int // 0 = unlimited
	Ignore    []string
}

// hasGlobMeta reports whether s contains any gitignore glob metacharacter,
// letting literal patterns skip the matcher entirely (spec.md §4.3's
// "fast path that avoids regex/fnmatch").
func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// Walk returns candidate directory paths across all roots, in traversal
// order. Errors opening a root are collected but do not abort the whole
// walk, mirroring a supervisor process that should keep scanning roots
// that are still reachable.
func Walk(opts Options) ([]string, []error) {
	matcher := compileIgnore(opts.Ignore)

	var paths []string
	var errs []error

	for _, root := range opts.Roots {
		canonical, err := filepath.EvalSymlinks(root)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		canonical, err = filepath.Abs(canonical)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		found, walkErrs := walkRoot(canonical, canonical, 0, opts, matcher)
		paths = append(paths, found...)
		errs = append(errs, walkErrs...)
	}
	return paths, errs
}

func walkRoot(dir, canonicalRoot string, depth int, opts Options, matcher *compiledIgnore) ([]string, []error) {
	var paths []string
	var errs []error

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{err}
	}

	for _, e := range entries {
		entryPath := filepath.Join(dir, e.Name())

		isDir := e.IsDir()
		resolved := entryPath
		if e.Type()&os.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(entryPath)
			if err != nil {
				continue
			}
			if !withinRoot(canonicalRoot, target) {
				continue
			}
			resolved = target
			info, err := os.Stat(target)
			if err != nil {
				continue
			}
			isDir = info.IsDir()
		}

		if !isDir {
			continue
		}
		if matches(matcher, entryPath, e.Name()) {
			continue
		}

		paths = append(paths, entryPath)

		atMaxDepth := opts.MaxDepth > 0 && depth+1 >= opts.MaxDepth
		if opts.Recursive && !atMaxDepth {
			childPaths, childErrs := walkRoot(resolved, canonicalRoot, depth+1, opts, matcher)
			paths = append(paths, rebaseChildren(childPaths, resolved, entryPath)...)
			errs = append(errs, childErrs...)
		}
	}
	return paths, errs
}

// rebaseChildren rewrites child paths discovered through a symlinked
// directory back onto the path the caller actually sees (the symlink
// itself), so emitted paths stay stable regardless of where the link
// points.
func rebaseChildren(children []string, resolvedDir, entryPath string) []string {
	if resolvedDir == entryPath {
		return children
	}
	out := make([]string, len(children))
	for i, c := range children {
		rel := strings.TrimPrefix(c, resolvedDir)
		out[i] = entryPath + rel
	}
	return out
}

// withinRoot reports whether target is canonicalRoot itself or nested
// under it, preventing traversal from escaping through an out-of-tree
// symlink.
func withinRoot(canonicalRoot, target string) bool {
	rel, err := filepath.Rel(canonicalRoot, target)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

type compiledIgnore struct {
	literals map[string]struct{}
	matcher  *ignore.GitIgnore
}

// compileIgnore splits pure-literal patterns (no glob metacharacters) into
// a plain set lookup, and compiles the rest through go-gitignore. Literal
// patterns are the common case (directory names like "node_modules" or
// "vendor") and a map lookup avoids go-gitignore's regex machinery for
// them entirely.
func compileIgnore(patterns []string) *compiledIgnore {
	if len(patterns) == 0 {
		return nil
	}
	c := &compiledIgnore{literals: make(map[string]struct{})}
	var globPatterns []string
	for _, p := range patterns {
		if hasGlobMeta(p) {
			globPatterns = append(globPatterns, p)
		} else {
			c.literals[p] = struct{}{}
		}
	}
	if len(globPatterns) > 0 {
		c.matcher = ignore.CompileIgnoreLines(globPatterns...)
	}
	return c
}

// matches reports whether an entry is ignored: a literal pattern must
// equal the entry's name or its walked path, and a glob pattern is tested
// by go-gitignore against the name and then the walked path. Patterns with
// and without a "/" go through the same two checks.
func matches(c *compiledIgnore, path, name string) bool {
	if c == nil {
		return false
	}
	if _, ok := c.literals[name]; ok {
		return true
	}
	if _, ok := c.literals[path]; ok {
		return true
	}
	if c.matcher == nil {
		return false
	}
	if c.matcher.MatchesPath(name) {
		return true
	}
	return c.matcher.MatchesPath(path)
}
