package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"resumerank/internal/report"
	"resumerank/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "JobCriteria", &CriteriaTextFormatter{})
	registry.RegisterFormatter("markdown", "JobCriteria", &CriteriaMarkdownFormatter{})
	registry.RegisterFormatter("text", "ScoreSummary", &ScoreTextFormatter{})
	registry.RegisterFormatter("markdown", "ScoreSummary", &ScoreMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.JobCriteria:
		return "JobCriteria"
	case types.ScoreSummary:
		return "ScoreSummary"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// CriteriaTextFormatter handles text formatting for extracted criteria
type CriteriaTextFormatter struct{}

func (ctf *CriteriaTextFormatter) Format(data any) (string, error) {
	criteria, ok := data.(types.JobCriteria)
	if !ok {
		return "", fmt.Errorf("expected JobCriteria, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== JOB CRITERIA ===\n\n")

	lists := criteria.Lists()
	for _, key := range types.CriteriaKeys {
		output.WriteString(strings.ToUpper(report.Label(key)))
		output.WriteString(":\n")
		if len(lists[key]) == 0 {
			output.WriteString("  (none)\n\n")
			continue
		}
		for _, item := range lists[key] {
			fmt.Fprintf(&output, "  - %s\n", item)
		}
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (ctf *CriteriaTextFormatter) SupportedType() string {
	return "JobCriteria"
}

// CriteriaMarkdownFormatter handles markdown formatting for extracted criteria
type CriteriaMarkdownFormatter struct{}

func (cmf *CriteriaMarkdownFormatter) Format(data any) (string, error) {
	criteria, ok := data.(types.JobCriteria)
	if !ok {
		return "", fmt.Errorf("expected JobCriteria, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Job Criteria\n\n")

	lists := criteria.Lists()
	for _, key := range types.CriteriaKeys {
		fmt.Fprintf(&output, "## %s\n\n", report.Label(key))
		if len(lists[key]) == 0 {
			output.WriteString("_None_\n\n")
			continue
		}
		for _, item := range lists[key] {
			fmt.Fprintf(&output, "- %s\n", item)
		}
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (cmf *CriteriaMarkdownFormatter) SupportedType() string {
	return "JobCriteria"
}

// ScoreTextFormatter handles text formatting for a scoring batch
type ScoreTextFormatter struct{}

func (stf *ScoreTextFormatter) Format(data any) (string, error) {
	summary, ok := data.(types.ScoreSummary)
	if !ok {
		return "", fmt.Errorf("expected ScoreSummary, got %T", data)
	}

	var output strings.Builder
	if summary.Report != nil {
		fmt.Fprintf(&output, "Report: %s\n\n", summary.Report.Path)
	} else {
		output.WriteString("No report written\n\n")
	}

	if len(summary.Candidates) > 0 {
		output.WriteString("=== CANDIDATES ===\n")
		table := report.Build(summary.Candidates)
		for _, row := range table.Rows {
			// first cell is the name, last is the total
			fmt.Fprintf(&output, "%s: %s\n", row[0], row[len(row)-1])
		}
		output.WriteString("\n")
	}

	if len(summary.Failures) > 0 {
		output.WriteString("=== FAILURES ===\n")
		for _, failure := range summary.Failures {
			fmt.Fprintf(&output, "%s (%s): %s\n", failure.File, failure.Stage, failure.Error)
		}
	}

	return output.String(), nil
}

func (stf *ScoreTextFormatter) SupportedType() string {
	return "ScoreSummary"
}

// ScoreMarkdownFormatter handles markdown formatting for a scoring batch
type ScoreMarkdownFormatter struct{}

func (smf *ScoreMarkdownFormatter) Format(data any) (string, error) {
	summary, ok := data.(types.ScoreSummary)
	if !ok {
		return "", fmt.Errorf("expected ScoreSummary, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Resume Scores\n\n")
	if summary.Report != nil {
		fmt.Fprintf(&output, "**Report:** `%s`\n\n", summary.Report.Path)
	}

	if len(summary.Candidates) > 0 {
		table := report.Build(summary.Candidates)
		output.WriteString("| " + strings.Join(table.Header, " | ") + " |\n")
		output.WriteString("|" + strings.Repeat(" --- |", len(table.Header)) + "\n")
		for _, row := range table.Rows {
			escaped := make([]string, len(row))
			for i, cell := range row {
				escaped[i] = strings.ReplaceAll(cell, "|", `\|`)
			}
			output.WriteString("| " + strings.Join(escaped, " | ") + " |\n")
		}
		output.WriteString("\n")
	}

	if len(summary.Failures) > 0 {
		output.WriteString("## Failures\n\n")
		for _, failure := range summary.Failures {
			fmt.Fprintf(&output, "- **%s** (%s): %s\n", failure.File, failure.Stage, failure.Error)
		}
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (smf *ScoreMarkdownFormatter) SupportedType() string {
	return "ScoreSummary"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
