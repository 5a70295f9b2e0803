// Package files implements the project file browser: directory trees, safe
// path resolution and bounded reads/writes inside a project root.
package files

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	ErrTraversal   = errors.New("path escapes project root")
	ErrTooLarge    = errors.New("file too large")
	ErrIsDirectory = errors.New("path is a directory")
)

// MaxFileSize caps file reads; the browser is for text files, not artifacts.
const MaxFileSize = 1 << 20

var ignoredDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".next":        true,
	"dist":         true,
	".turbo":       true,
	"__pycache__":  true,
	".cache":       true,
	"coverage":     true,
}

var ignoredFiles = map[string]bool{
	".DS_Store": true,
	"Thumbs.db": true,
}

// Node is one entry in a directory tree.
type Node struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Type       string `json:"type"`
	Icon       string `json:"icon"`
	Size       int64  `json:"size,omitempty"`
	ModifiedAt string `json:"modifiedAt,omitempty"`
	Children   []Node `json:"children,omitempty"`
}

// File is the content view of a single file.
type File struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modifiedAt"`
	Extension  string `json:"extension"`
	Icon       string `json:"icon"`
}

// Tree builds the recursive listing of root, skipping ignored entries.
// Directories sort before files, both alphabetically.
func Tree(root string) ([]Node, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}
	return walk(root, "")
}

func walk(dir, rel string) ([]Node, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	nodes := []Node{}
	for _, entry := range entries {
		name := entry.Name()
		if ignoredDirs[name] || ignoredFiles[name] {
			continue
		}
		entryRel := path.Join(rel, name)
		if entry.IsDir() {
			children, err := walk(filepath.Join(dir, name), entryRel)
			if err != nil {
				continue
			}
			nodes = append(nodes, Node{
				Name:     name,
				Path:     entryRel,
				Type:     "directory",
				Icon:     "folder",
				Children: children,
			})
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		nodes = append(nodes, Node{
			Name:       name,
			Path:       entryRel,
			Type:       "file",
			Icon:       IconFor(name),
			Size:       info.Size(),
			ModifiedAt: info.ModTime().Format(time.RFC3339),
		})
	}

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Type != nodes[j].Type {
			return nodes[i].Type == "directory"
		}
		return nodes[i].Name < nodes[j].Name
	})
	return nodes, nil
}

var icons = map[string]string{
	".go":   "go",
	".ts":   "typescript",
	".tsx":  "react",
	".js":   "javascript",
	".jsx":  "react",
	".json": "json",
	".md":   "markdown",
	".css":  "style",
	".scss": "style",
	".html": "html",
	".py":   "python",
	".yml":  "config",
	".yaml": "config",
	".env":  "secret",
	".sh":   "shell",
	".sql":  "database",
	".svg":  "image",
	".png":  "image",
	".jpg":  "image",
	".jpeg": "image",
}

// IconFor maps a filename to a UI icon hint.
func IconFor(name string) string {
	if icon, ok := icons[strings.ToLower(filepath.Ext(name))]; ok {
		return icon
	}
	return "file"
}

var featureFileName = regexp.MustCompile(`^[A-Z]+-\d+-.*\.md$`)

// Resolve joins rel onto root, rejecting any result that escapes it. Bare
// feature file names (KB-002-foo.md) fall back to the features/ directory
// when the direct path does not exist.
func Resolve(root, rel string) (fullPath, cleanRel string, err error) {
	full := filepath.Join(root, filepath.FromSlash(rel))

	if _, statErr := os.Stat(full); os.IsNotExist(statErr) &&
		!strings.HasPrefix(rel, "features/") && featureFileName.MatchString(path.Base(rel)) {
		withPrefix := filepath.Join(root, "features", filepath.FromSlash(rel))
		if _, statErr := os.Stat(withPrefix); statErr == nil {
			full = withPrefix
			rel = path.Join("features", rel)
		}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", "", err
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return "", "", err
	}
	if absFull != absRoot && !strings.HasPrefix(absFull, absRoot+string(filepath.Separator)) {
		return "", "", ErrTraversal
	}
	return absFull, rel, nil
}

// Read returns a file's content, rejecting directories and oversized files.
func Read(root, rel string) (*File, error) {
	full, cleanRel, err := Resolve(root, rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrIsDirectory
	}
	if info.Size() > MaxFileSize {
		return nil, ErrTooLarge
	}
	raw, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	name := path.Base(cleanRel)
	return &File{
		Path:       cleanRel,
		Name:       name,
		Content:    string(raw),
		Size:       info.Size(),
		ModifiedAt: info.ModTime().Format(time.RFC3339),
		Extension:  strings.ToLower(filepath.Ext(name)),
		Icon:       IconFor(name),
	}, nil
}

// Write saves content inside root, creating parent directories as needed.
// It returns the resolved relative path and resulting size.
func Write(root, rel, content string) (string, int64, error) {
	full, cleanRel, err := Resolve(root, rel)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", 0, err
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return "", 0, err
	}
	return cleanRel, int64(len(content)), nil
}
