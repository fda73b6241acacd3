package vocab

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Source is a configured vocabulary location: a JSON-LD file or a directory
// of them.
type Source struct {
	// ID is a filesystem-safe identifier derived from the path.
	ID string

	// Path is the absolute path of the file or directory.
	Path string

	// Dir is true when Path is a directory.
	Dir bool
}

// SourceID converts a source path to a filesystem-safe identifier, used for
// index directory names and manifest keys.
//
// Examples:
//   - /data/vocabularies/legal -> data_vocabularies_legal
//   - /data/terms.jsonld -> data_terms.jsonld
func SourceID(path string) string {
	path = filepath.ToSlash(filepath.Clean(path))
	path = strings.TrimLeft(path, "/")
	if path == "" || path == "." {
		return "root"
	}
	return strings.NewReplacer("/", "_", ":", "_", "\\", "_", " ", "_").Replace(path)
}

// ResolveSources makes the configured paths absolute and checks they exist.
// Duplicate paths are kept once, in first-seen order.
func ResolveSources(paths []string) ([]Source, error) {
	var sources []Source
	seen := make(map[string]bool)

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve source %q: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to stat source %q: %w", p, err)
		}

		id := SourceID(abs)
		if seen[id] {
			continue
		}
		seen[id] = true
		sources = append(sources, Source{ID: id, Path: abs, Dir: info.IsDir()})
	}

	return sources, nil
}

// SourceIDs returns the IDs of the given sources.
func SourceIDs(sources []Source) []string {
	ids := make([]string, len(sources))
	for i, s := range sources {
		ids[i] = s.ID
	}
	return ids
}

// Files lists the files of the source accepted by filter, in lexical order.
// A file source is returned as is, subject only to the size limit.
func (s Source) Files(filter *FileFilter) ([]string, error) {
	if !s.Dir {
		info, err := os.Stat(s.Path)
		if err != nil {
			return nil, err
		}
		if limit := filter.MaxFileSize(); limit > 0 && info.Size() > limit {
			return nil, fmt.Errorf("source file %s exceeds max file size (%d > %d)", s.Path, info.Size(), limit)
		}
		return []string{s.Path}, nil
	}

	var files []string
	err := filepath.WalkDir(s.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.Path, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && filter.SkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if filter.Include(rel, info.Size()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk source %s: %w", s.Path, err)
	}

	return files, nil
}

// Fingerprint hashes the paths, sizes and contents of files. The result
// changes whenever a file is added, removed or modified.
func Fingerprint(files []string) (string, error) {
	sorted := slices.Clone(files)
	slices.Sort(sorted)

	h := sha256.New()
	for _, path := range sorted {
		if err := hashFile(h, path); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	_, _ = io.WriteString(w, path+"\x00"+strconv.FormatInt(info.Size(), 10)+"\x00")
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}
