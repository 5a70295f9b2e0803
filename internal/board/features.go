package board

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/openclaw/board/internal/logger"
)

var featureFilePattern = regexp.MustCompile(`^PROJ-(\d+)-(.+)\.md$`)

// SyncFeatures imports PROJ-NNN-*.md files from the project's features
// directory as review tasks. Files already represented by a task are skipped.
func (s *Store) SyncFeatures(projectID, projectPath string) ([]*Task, error) {
	if projectPath == "" {
		return nil, fmt.Errorf("projectPath required: %w", ErrValidation)
	}
	featuresDir := filepath.Join(projectPath, "features")
	entries, err := os.ReadDir(featuresDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Task{}, nil
		}
		return nil, fmt.Errorf("read features dir: %w", err)
	}

	var synced []*Task
	err = s.update(func(data *Data) error {
		p := findProject(data, projectID)
		if p == nil {
			return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			m := featureFilePattern.FindStringSubmatch(entry.Name())
			if m == nil {
				continue
			}
			taskID := "PROJ-" + m[1]
			if findTask(p, taskID) != nil {
				continue
			}
			title := strings.ReplaceAll(m[2], "-", " ")
			if first := firstHeading(filepath.Join(featuresDir, entry.Name())); first != "" {
				title = first
			}
			task := &Task{
				ID:          taskID,
				Title:       title,
				Description: "Feature specification - Ready for Architecture",
				Status:      TaskStatusReview,
				Priority:    "high",
				Date:        s.now().Format("02.01.2006"),
				FeatureFile: entry.Name(),
				CreatedAt:   s.now(),
			}
			p.Tasks = append(p.Tasks, task)
			synced = append(synced, task)
		}
		if len(synced) > 0 {
			logger.L.Info("features synced", "count", len(synced), "project", p.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if synced == nil {
		synced = []*Task{}
	}
	return synced, nil
}

// firstHeading returns the first line of a markdown file with leading #
// markers stripped, or "" when unreadable.
func firstHeading(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(raw), "\n")
	line = strings.TrimLeft(line, "# ")
	return strings.TrimSpace(line)
}
