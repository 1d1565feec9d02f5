package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Exporter writes reports to disk under a single output directory.
type Exporter struct {
	outputDir string
}

func NewExporter(outputDir string) (*Exporter, error) {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Exporter{outputDir: outputDir}, nil
}

func (e *Exporter) OutputDir() string {
	return e.outputDir
}

type exportPayload struct {
	*QualityReport
	Metadata map[string]any `json:"metadata"`
}

// ExportJSON writes the report plus metadata as indented JSON and returns
// the written path. An empty filename picks a timestamped one. The metadata
// is stamped with an export timestamp and a unique report ID.
func (e *Exporter) ExportJSON(report *QualityReport, filename string, metadata map[string]any) (string, error) {
	if filename == "" {
		filename = fmt.Sprintf("report_%s.json", time.Now().Format("20060102_150405"))
	}

	payload := exportPayload{
		QualityReport: report,
		Metadata:      stampMetadata(metadata),
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	path := filepath.Join(e.outputDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write JSON report: %w", err)
	}
	return path, nil
}

// ExportHTML writes the report as a standalone HTML page and returns the
// written path. An empty filename picks a timestamped one.
func (e *Exporter) ExportHTML(report *QualityReport, filename string, metadata map[string]any) (string, error) {
	if filename == "" {
		filename = fmt.Sprintf("report_%s.html", time.Now().Format("20060102_150405"))
	}

	page, err := RenderHTML(report, metadata)
	if err != nil {
		return "", err
	}

	path := filepath.Join(e.outputDir, filename)
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return "", fmt.Errorf("failed to write HTML report: %w", err)
	}
	return path, nil
}

// ExportBatchSummary writes the cross-dataset summary page for a batch run.
func (e *Exporter) ExportBatchSummary(results []DatasetResult, filename string) (string, error) {
	if filename == "" {
		filename = "batch_summary.html"
	}

	page, err := RenderBatchHTML(results)
	if err != nil {
		return "", err
	}

	path := filepath.Join(e.outputDir, filename)
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return "", fmt.Errorf("failed to write batch summary: %w", err)
	}
	return path, nil
}

func stampMetadata(metadata map[string]any) map[string]any {
	stamped := make(map[string]any, len(metadata)+2)
	for key, value := range metadata {
		stamped[key] = value
	}
	stamped["exported_at"] = time.Now().Format(time.RFC3339)
	stamped["report_id"] = uuid.NewString()
	return stamped
}
