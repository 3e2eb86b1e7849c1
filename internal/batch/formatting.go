package batch

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/codescan/internal/pipeline"
)

// report is the document rendered for JSON and YAML output.
type report struct {
	Files   []FileResult `json:"files" yaml:"files"`
	Summary Stats        `json:"summary" yaml:"summary"`
}

// FormatResults renders the batch in text, json, csv or yaml.
func (r *Result) FormatResults(format string, details bool) (string, error) {
	files := make([]FileResult, len(r.Files))
	copy(files, r.Files)
	if !details {
		for i := range files {
			files[i].Candidates = nil
		}
	}

	switch strings.ToLower(format) {
	case pipeline.FormatJSON:
		b, err := json.MarshalIndent(report{Files: files, Summary: r.Stats()}, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b) + "\n", nil
	case pipeline.FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(report{Files: files, Summary: r.Stats()}); err != nil {
			return "", err
		}
		if err := enc.Close(); err != nil {
			return "", err
		}
		return buf.String(), nil
	case pipeline.FormatCSV:
		return formatCSV(files, details)
	case pipeline.FormatText, "":
		return formatText(files, details)
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatCSV emits one row per code prefixed with the file name; failed files
// and files without codes get a single row with empty code columns.
func formatCSV(files []FileResult, details bool) (string, error) {
	header := append([]string{"file"}, pipeline.CSVHeader(details)...)
	header = append(header, "error")

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return "", err
	}
	blank := make([]string, len(header)-2)
	for _, f := range files {
		rows := pipeline.CSVRows(pipeline.ScanResult{Codes: f.Codes, Candidates: f.Candidates}, details)
		if len(rows) == 0 {
			row := append([]string{f.File}, blank...)
			if err := w.Write(append(row, f.Error)); err != nil {
				return "", err
			}
			continue
		}
		for _, cols := range rows {
			row := append([]string{f.File}, cols...)
			if err := w.Write(append(row, "")); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func formatText(files []FileResult, details bool) (string, error) {
	var sb strings.Builder
	for i, f := range files {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "# %s\n", f.File)
		if f.Failed() {
			fmt.Fprintf(&sb, "error: %s\n", f.Error)
			continue
		}
		body, err := pipeline.RenderResult(pipeline.ScanResult{
			Codes:      f.Codes,
			Candidates: f.Candidates,
			Regions:    f.Regions,
			OCRUsed:    f.OCRUsed,
		}, pipeline.FormatText, details)
		if err != nil {
			return "", err
		}
		sb.WriteString(body)
	}
	return sb.String(), nil
}

// SaveResults writes the formatted batch to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, details bool) error {
	output, err := r.FormatResults(format, details)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}
	if outputFile == "" {
		_, err := io.WriteString(w, output)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// PrintStats writes a human-readable summary.
func (r *Result) PrintStats(w io.Writer) {
	st := r.Stats()
	_, _ = fmt.Fprintf(w, "\nBatch Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total photos: %d\n", st.Total)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", st.Failed)
	_, _ = fmt.Fprintf(w, "  With codes: %d\n", st.WithCodes)
	_, _ = fmt.Fprintf(w, "  Unique codes: %d\n", st.UniqueCodes)
	_, _ = fmt.Fprintf(w, "  OCR fallback used: %d\n", st.OCRUsed)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", st.Duration.Round(time.Millisecond))
	if st.Total > 0 && st.Duration > 0 {
		_, _ = fmt.Fprintf(w, "  Throughput: %.1f photos/sec\n", float64(st.Total)/st.Duration.Seconds())
	}
}
