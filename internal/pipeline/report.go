package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// WriteReport serializes the report to a timestamped JSON file in reportDir
// and returns the path. Called exactly once per run, on success and on
// failure alike.
func WriteReport(report *Report, reportDir string, now time.Time) (string, error) {
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return "", fmt.Errorf("write report: create report dir: %w", err)
	}

	name := fmt.Sprintf("extraction_report_%s.json", now.Format("20060102_150405"))
	path := filepath.Join(reportDir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("write report: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	return path, nil
}
