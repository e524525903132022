package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// discoverBundleFiles finds all bundle files matching the given patterns.
// Explicit file arguments skip the include filter but not the exclude one.
func discoverBundleFiles(args []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			found, err := discoverInDirectory(arg, recursive, includePatterns, excludePatterns)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
		} else if !matchesAnyPattern(arg, excludePatterns) {
			files = append(files, arg)
		}
	}

	return files, nil
}

// discoverInDirectory walks dir in lexical order.
func discoverInDirectory(dir string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if shouldIncludeFile(path, includePatterns, excludePatterns) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// shouldIncludeFile determines if a file should be included based on include/exclude patterns.
func shouldIncludeFile(path string, includePatterns, excludePatterns []string) bool {
	if matchesAnyPattern(path, excludePatterns) {
		return false
	}
	if len(includePatterns) == 0 {
		return true
	}
	return matchesAnyPattern(path, includePatterns)
}

// matchesAnyPattern checks the file's base name against the glob patterns.
func matchesAnyPattern(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
