package vocab

import (
	"path/filepath"
	"slices"
	"strings"
)

// DefaultIncludeExtensions are the file extensions read from source directories.
var DefaultIncludeExtensions = []string{".jsonld", ".json"}

// DefaultExcludePatterns contains paths skipped when walking a source directory.
var DefaultExcludePatterns = []string{
	".*/**", "node_modules/**", "vendor/**", "build/**", "dist/**",
	"package.json", "package-lock.json", "tsconfig.json", "composer.json",
	"*.schema.json", "manifest.json",
}

// FileFilter determines which files of a source are loaded.
type FileFilter struct {
	extensions  []string
	patterns    []string
	maxFileSize int64
}

// NewFileFilter creates a FileFilter with the default extensions and exclusions.
func NewFileFilter(maxFileSize int64) *FileFilter {
	return NewFileFilterWithPatterns(DefaultExcludePatterns, maxFileSize)
}

// NewFileFilterWithPatterns creates a FileFilter with custom exclusion patterns.
func NewFileFilterWithPatterns(patterns []string, maxFileSize int64) *FileFilter {
	return &FileFilter{
		extensions:  DefaultIncludeExtensions,
		patterns:    patterns,
		maxFileSize: maxFileSize,
	}
}

// Include reports whether a file, given by its path relative to the source
// root and its size, should be loaded.
func (f *FileFilter) Include(relPath string, size int64) bool {
	if f.maxFileSize > 0 && size > f.maxFileSize {
		return false
	}
	ext := strings.ToLower(filepath.Ext(relPath))
	if !slices.Contains(f.extensions, ext) {
		return false
	}
	return !f.ShouldExclude(relPath)
}

// ShouldExclude returns true if the given path matches any exclusion pattern.
// The path should be relative to the source root.
func (f *FileFilter) ShouldExclude(relPath string) bool {
	relPath = filepath.ToSlash(relPath)

	for _, pattern := range f.patterns {
		if matchPattern(pattern, relPath) {
			return true
		}
	}
	return false
}

// MaxFileSize returns the maximum size of a loaded file.
func (f *FileFilter) MaxFileSize() int64 {
	return f.maxFileSize
}

// matchPattern matches a slash-separated path against a glob pattern.
// "dir/**" matches the directory at any depth, ".*/**" any hidden directory,
// and other patterns are matched against the full path and the base name.
func matchPattern(pattern, path string) bool {
	if dir, ok := strings.CutSuffix(pattern, "/**"); ok {
		parts := strings.Split(path, "/")
		for _, part := range parts[:len(parts)-1] {
			if matched, _ := filepath.Match(dir, part); matched {
				return true
			}
		}
		return false
	}

	if ext, ok := strings.CutPrefix(pattern, "*."); ok && !strings.ContainsAny(ext, "*?[") {
		return strings.HasSuffix(strings.ToLower(path), "."+strings.ToLower(ext))
	}

	if matched, _ := filepath.Match(pattern, path); matched {
		return true
	}
	matched, _ := filepath.Match(pattern, filepath.Base(path))
	return matched
}

// SkipDir reports whether a directory, given relative to the source root,
// should not be walked.
func (f *FileFilter) SkipDir(relDir string) bool {
	return f.ShouldExclude(filepath.ToSlash(relDir) + "/")
}
