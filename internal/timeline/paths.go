package timeline

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/system"
)

// DocumentDir is where documents are looked up when no path is given.
const DocumentDir = "timelines"

// GenerateDocumentPath creates a timestamped document filename in dir.
func GenerateDocumentPath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("timeline_%s.yaml", timestamp))
}

// FindLatestDocument finds the most recently modified document in dir.
func FindLatestDocument(dir string) (string, error) {
	path, err := system.FindLatestFile(dir, ".yaml", ".yml", ".xml")
	if err != nil {
		return "", fmt.Errorf("timeline: %w", err)
	}
	return path, nil
}
