package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"colabwize/api/internal/docimport"
)

// expandPaths resolves args into the supported files they name. Arguments
// may be plain paths, directories or doublestar patterns.
func expandPaths(args, excludes []string) ([]string, error) {
	seen := map[string]struct{}{}
	var files []string
	add := func(path string) {
		if !docimport.IsSupportedExtension(path) || excluded(path, excludes) {
			return
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil {
			if !info.IsDir() {
				add(filepath.Clean(arg))
				continue
			}
			arg = filepath.Join(arg, "**", "*")
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		for _, m := range matches {
			add(m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no supported files matched %v", args)
	}
	sort.Strings(files)
	return files, nil
}

func excluded(path string, patterns []string) bool {
	slashed := strings.TrimPrefix(filepath.ToSlash(path), "/")
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, slashed); err == nil && matched {
			return true
		}
	}
	return false
}

func importFile(path string) (*docimport.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	res, err := docimport.Import(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
