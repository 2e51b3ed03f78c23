package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// Diagnostic file names written on failure
const (
	ErrorScreenshotFile = "error.png"
	PageContentFile     = "page_content.html"
	PageOutlineFile     = "page_outline.html"
	ShadowContentFile   = "shadow_content.html"

	SummaryJSONFile     = "summary.json"
	SummaryMarkdownFile = "summary.md"
	EvidencePDFFile     = "evidence.pdf"
)

// ArtifactWriter handles writing run artifacts
type ArtifactWriter struct {
	outputDir      string
	diagnosticsDir string
	config         ArtifactConfig
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir, diagnosticsDir string, config ArtifactConfig) *ArtifactWriter {
	if diagnosticsDir == "" {
		diagnosticsDir = outputDir
	}
	return &ArtifactWriter{
		outputDir:      outputDir,
		diagnosticsDir: diagnosticsDir,
		config:         config,
	}
}

// OutputPath resolves a step path: absolute paths are kept, relative ones
// land in the output directory.
func (w *ArtifactWriter) OutputPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(w.outputDir, path)
}

// WriteEvidence writes a screenshot taken by a step and returns its path.
func (w *ArtifactWriter) WriteEvidence(path string, data []byte) (string, error) {
	return writeFile(w.OutputPath(path), data)
}

// WriteDiagnostic writes a failure artifact into the diagnostics directory.
func (w *ArtifactWriter) WriteDiagnostic(name string, data []byte) (string, error) {
	return writeFile(filepath.Join(w.diagnosticsDir, name), data)
}

func writeFile(path string, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

// WriteAll writes the configured run-level artifacts for a finished run
// and returns the paths written.
func (w *ArtifactWriter) WriteAll(result *Result) ([]string, error) {
	var written []string

	if w.config.Summary {
		if err := os.MkdirAll(w.outputDir, 0755); err != nil {
			return written, fmt.Errorf("failed to create output directory: %w", err)
		}

		path, err := w.WriteSummaryJSON(result)
		if err != nil {
			return written, fmt.Errorf("failed to write summary JSON: %w", err)
		}
		written = append(written, path)

		path, err = w.WriteSummaryMarkdown(result)
		if err != nil {
			return written, fmt.Errorf("failed to write summary markdown: %w", err)
		}
		written = append(written, path)
	}

	if w.config.PDF {
		images := pngFiles(append(append([]string{}, result.Artifacts...), result.Diagnostics...))
		if len(images) > 0 {
			path, err := w.WriteEvidencePDF(images)
			if err != nil {
				return written, fmt.Errorf("failed to write evidence PDF: %w", err)
			}
			written = append(written, path)
		}
	}

	return written, nil
}

// WriteSummaryJSON writes the full result as JSON
func (w *ArtifactWriter) WriteSummaryJSON(result *Result) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return writeFile(filepath.Join(w.outputDir, SummaryJSONFile), data)
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(result *Result) (string, error) {
	var md strings.Builder

	md.WriteString(fmt.Sprintf("# Verification: %s\n\n", result.Scenario))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", result.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", result.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", result.Duration.Round(time.Millisecond)))

	md.WriteString("## Result\n\n")
	if result.Error != "" {
		md.WriteString(fmt.Sprintf("❌ **Error:** %s\n\n", result.Error))
	} else {
		md.WriteString("✅ **Success**\n\n")
	}

	if len(result.Steps) > 0 {
		md.WriteString("## Steps\n\n")
		md.WriteString("| # | Step | Status | Duration |\n|---|---|---|---|\n")
		for _, step := range result.Steps {
			md.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
				step.Index, escapeCell(step.Description), step.Status, step.Duration.Round(time.Millisecond)))
		}
		md.WriteString("\n")
	}

	writeList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		md.WriteString("## " + title + "\n\n")
		for _, item := range items {
			md.WriteString(fmt.Sprintf("- `%s`\n", item))
		}
		md.WriteString("\n")
	}
	writeList("Artifacts", result.Artifacts)
	writeList("Diagnostics", result.Diagnostics)
	writeList("Diagnostic Errors", result.DiagnosticErrors)

	return writeFile(filepath.Join(w.outputDir, SummaryMarkdownFile), []byte(md.String()))
}

// WriteEvidencePDF bundles PNG images into one PDF, one image per page
func (w *ArtifactWriter) WriteEvidencePDF(images []string) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.outputDir, EvidencePDFFile)
	// ImportImagesFile appends to an existing file
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to remove previous evidence: %w", err)
	}
	if err := api.ImportImagesFile(images, path, pdfcpu.DefaultImportConfig(), nil); err != nil {
		return "", fmt.Errorf("failed to import images: %w", err)
	}
	return path, nil
}

func pngFiles(paths []string) []string {
	var out []string
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ".png") {
			out = append(out, p)
		}
	}
	return out
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
