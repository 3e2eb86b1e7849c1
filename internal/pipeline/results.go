package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats understood by the renderers.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

// OutputFormats lists the accepted output format names.
var OutputFormats = []string{FormatText, FormatJSON, FormatCSV, FormatYAML}

// RenderResult serialises a scan result. Without details the candidate list
// is omitted from JSON and YAML and the CSV carries codes only.
func RenderResult(res ScanResult, format string, details bool) (string, error) {
	if !details {
		res.Candidates = nil
	}
	if res.Codes == nil {
		res.Codes = []string{}
	}
	switch strings.ToLower(format) {
	case FormatJSON:
		return toJSON(res)
	case FormatYAML:
		return toYAML(res)
	case FormatCSV:
		return toCSV(res, details)
	case FormatText, "":
		return toText(res, details), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// RenderQuality serialises a quality report.
func RenderQuality(q QualityReport, format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return toJSON(q)
	case FormatYAML:
		return toYAML(q)
	case FormatCSV:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"sharpness", "brightness", "width", "height"})
		_ = w.Write([]string{
			strconv.FormatFloat(q.Sharpness, 'f', 2, 64),
			strconv.FormatFloat(q.Brightness, 'f', 2, 64),
			strconv.Itoa(q.Width),
			strconv.Itoa(q.Height),
		})
		w.Flush()
		return buf.String(), w.Error()
	case FormatText, "":
		return fmt.Sprintf("sharpness: %.2f\nbrightness: %.2f\n", q.Sharpness, q.Brightness), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func toJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func toYAML(v any) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CSVHeader returns the CSV column names used for scan results.
func CSVHeader(details bool) []string {
	if details {
		return []string{"code", "source", "angle", "format", "x", "y", "w", "h"}
	}
	return []string{"code"}
}

// CSVRows returns one CSV row per accepted code.
func CSVRows(res ScanResult, details bool) [][]string {
	if !details || len(res.Candidates) == 0 {
		rows := make([][]string, 0, len(res.Codes))
		for _, c := range res.Codes {
			row := []string{c}
			if details {
				row = append(row, "", "", "", "", "", "", "")
			}
			rows = append(rows, row)
		}
		return rows
	}
	rows := make([][]string, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		row := []string{c.Code, string(c.Source), strconv.FormatFloat(c.Angle, 'f', -1, 64), c.Format}
		if c.Region != nil {
			row = append(row,
				strconv.Itoa(c.Region.X), strconv.Itoa(c.Region.Y),
				strconv.Itoa(c.Region.W), strconv.Itoa(c.Region.H))
		} else {
			row = append(row, "", "", "", "")
		}
		rows = append(rows, row)
	}
	return rows
}

func toCSV(res ScanResult, details bool) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader(details)); err != nil {
		return "", err
	}
	if err := w.WriteAll(CSVRows(res, details)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toText(res ScanResult, details bool) string {
	var sb strings.Builder
	if details {
		for _, c := range res.Candidates {
			fmt.Fprintf(&sb, "%s\t%s\t%g", c.Code, c.Source, c.Angle)
			if c.Format != "" {
				fmt.Fprintf(&sb, "\t%s", c.Format)
			}
			sb.WriteByte('\n')
		}
		return sb.String()
	}
	for _, c := range res.Codes {
		sb.WriteString(c)
		sb.WriteByte('\n')
	}
	return sb.String()
}
