// Package report renders a CascadeResult as plain text or a structured JSON
// record and delivers it to stdout or a file.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"webfall/models"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormat reports whether format names a supported output format.
func ValidFormat(format string) bool {
	return format == FormatText || format == FormatJSON
}

// InferFormat guesses the output format from a file extension. Returns ""
// when the extension is not recognised.
func InferFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".txt", ".md", ".markdown", ".html", ".htm":
		return FormatText
	default:
		return ""
	}
}

// Render produces the chosen representation of the result. Text mode returns
// the content itself on success or an explanatory failure message; JSON mode
// always returns the full structured record.
func Render(result *models.CascadeResult, format string) (string, error) {
	if format == FormatJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("report: marshal result: %w", err)
		}
		return string(data), nil
	}

	if result.Succeeded() {
		return *result.Content, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Error: failed to retrieve %s\n", result.URL)
	if len(result.Attempted) > 0 {
		fmt.Fprintf(&b, "Strategies attempted: %s\n", strings.Join(result.Attempted, " -> "))
	}
	if result.Error != nil {
		fmt.Fprintf(&b, "Failure: %s: %s\n", result.Error.Code, result.Error.Message)
	}
	return b.String(), nil
}

// Deliver writes the rendering to path, creating parent directories as
// needed. An empty path means stdout. A file-write failure falls back to
// console output so the result is never lost silently.
func Deliver(rendering string, path string, stdout io.Writer) error {
	if path == "" {
		fmt.Fprintln(stdout, rendering)
		return nil
	}

	if err := writeFile(rendering, path); err != nil {
		slog.Error("failed to write output file, falling back to console",
			"path", path, "error", err)
		fmt.Fprintln(stdout, rendering)
		return err
	}
	slog.Info("output written", "path", path)
	return nil
}

func writeFile(content string, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report: create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("report: write output file: %w", err)
	}
	return nil
}
