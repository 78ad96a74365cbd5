// Package pathfilter decides which changed files are eligible for review.
package pathfilter

import (
	"path/filepath"
	"strings"

	"github.com/patchpilot/pkg/models"
)

// Filter excludes files by glob pattern. Patterns follow filepath.Match
// syntax; a leading "**/" additionally matches against the bare filename so
// patterns like "**/*.lock" behave the way forge CI configs expect.
type Filter struct {
	patterns []string
}

// New builds a filter from a comma-separated glob list. Entries are trimmed
// and empty entries ignored, so trailing commas are harmless.
func New(globList string) *Filter {
	var patterns []string
	for _, p := range strings.Split(globList, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return &Filter{patterns: patterns}
}

// FromPatterns builds a filter from already-split patterns.
func FromPatterns(patterns []string) *Filter {
	return &Filter{patterns: patterns}
}

// Excluded reports whether path matches any exclusion pattern.
func (f *Filter) Excluded(path string) bool {
	for _, pattern := range f.patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		cleanPattern := strings.TrimPrefix(pattern, "**/")
		if cleanPattern != pattern {
			matched, err = filepath.Match(cleanPattern, filepath.Base(path))
			if err == nil && matched {
				return true
			}
			// "**/dir/*.ext" style: try the pattern against every path suffix.
			if strings.Contains(cleanPattern, "/") && suffixMatch(cleanPattern, path) {
				return true
			}
		}
	}
	return false
}

func suffixMatch(pattern, path string) bool {
	parts := strings.Split(path, "/")
	for i := range parts {
		matched, err := filepath.Match(pattern, strings.Join(parts[i:], "/"))
		if err == nil && matched {
			return true
		}
	}
	return false
}

// Eligible returns the files that survive filtering, order preserved.
// Deleted files are dropped here as well: there is nothing left to annotate
// and no line for a forge to anchor a comment to.
func (f *Filter) Eligible(files []*models.FileDiff) []*models.FileDiff {
	var result []*models.FileDiff
	for _, fd := range files {
		if fd.IsDeleted {
			continue
		}
		if f.Excluded(fd.Path) {
			continue
		}
		result = append(result, fd)
	}
	return result
}
