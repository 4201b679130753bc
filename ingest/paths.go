package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExtensions lists the model file extensions picked up when none
// are configured.
var DefaultExtensions = []string{".dmn", ".cmmn", ".bpmn", ".xml"}

// ResolveFiles expands patterns to model files. A pattern may name a file,
// a directory (searched recursively) or a glob with * and ** wildcards.
// Only files whose extension is in extensions are returned; the result is
// sorted and free of duplicates.
//
// Examples:
//   - "./models/eligibility.dmn" → ["/abs/models/eligibility.dmn"]
//   - "./models" → every model file below ./models
//   - "./exports/**/*.dmn" → every .dmn file below ./exports
func ResolveFiles(patterns []string, extensions []string) ([]string, error) {
	exts := extensionSet(extensions)
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range patterns {
		matches, err := resolveFilePattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("resolve pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || !exts[strings.ToLower(filepath.Ext(m))] {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}

	sort.Strings(files)
	return files, nil
}

func resolveFilePattern(pattern string) ([]string, error) {
	if !containsGlob(pattern) {
		absPath, err := filepath.Abs(pattern)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return []string{absPath}, nil
		}
		pattern = filepath.Join(absPath, "**", "*")
	}

	absPattern, err := makeAbsolutePattern(pattern)
	if err != nil {
		return nil, err
	}

	matches, err := doublestar.FilepathGlob(absPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}
	return matches, nil
}

// ResolveDirs expands glob patterns to concrete directories.
func ResolveDirs(patterns []string) ([]string, error) {
	var resolved []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		dirs, err := resolveDirPattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("resolve pattern %q: %w", pattern, err)
		}
		for _, d := range dirs {
			if !seen[d] {
				seen[d] = true
				resolved = append(resolved, d)
			}
		}
	}
	return resolved, nil
}

func resolveDirPattern(pattern string) ([]string, error) {
	if !containsGlob(pattern) {
		absPath, err := filepath.Abs(pattern)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("path is not a directory: %s", absPath)
		}
		return []string{absPath}, nil
	}

	absPattern, err := makeAbsolutePattern(pattern)
	if err != nil {
		return nil, err
	}
	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}

	var dirs []string
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil && info.IsDir() {
			dirs = append(dirs, match)
		}
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no directories match pattern: %s", pattern)
	}
	return dirs, nil
}

func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// makeAbsolutePattern converts a relative pattern to absolute, keeping the
// glob part intact.
func makeAbsolutePattern(pattern string) (string, error) {
	globIdx := strings.IndexAny(pattern, "*?[")
	if globIdx == -1 {
		return filepath.Abs(pattern)
	}

	dirPart, globPart := ".", "/"+pattern
	if lastSep := strings.LastIndexAny(pattern[:globIdx], `/\`); lastSep >= 0 {
		dirPart, globPart = pattern[:lastSep], pattern[lastSep:]
	}
	if dirPart == "" {
		dirPart = "/"
	}

	absDir, err := filepath.Abs(dirPart)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(absDir, string(filepath.Separator)) + filepath.FromSlash(globPart), nil
}

func extensionSet(extensions []string) map[string]bool {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}
