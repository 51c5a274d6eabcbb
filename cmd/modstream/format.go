package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"modstream/internal/version"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman, "":
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *BundlePlan:
		return formatPlanHuman(v), nil
	case *InspectReport:
		return formatInspectHuman(v), nil
	case *LoadReport:
		return formatLoadHuman(v), nil
	case version.Details:
		return fmt.Sprintf("modstream version %s\nCommit: %s\nBuilt: %s\nGo: %s",
			v.Version, v.Commit, v.BuildDate, v.GoVersion), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func formatPlanHuman(p *BundlePlan) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Bundle plan for %s\n", p.Entrypoint))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, m := range p.Modules {
		b.WriteString(fmt.Sprintf("%3d. %s (%s)\n", m.Index, m.Identifier, formatBytes(int64(m.Bytes))))
		for _, dep := range m.Imports {
			b.WriteString(fmt.Sprintf("       -> %s\n", dep))
		}
		for _, ext := range m.External {
			b.WriteString(fmt.Sprintf("       -> %s (external)\n", ext))
		}
	}

	b.WriteString(fmt.Sprintf("\n%d modules, %d edges, %d external imports, %s\n",
		len(p.Modules), p.Edges, p.External, formatBytes(p.Bytes)))
	return b.String()
}

func formatInspectHuman(r *InspectReport) string {
	var b strings.Builder

	for _, rec := range r.Records {
		b.WriteString(fmt.Sprintf("%3d. %s (%s)\n", rec.Index, rec.Identifier, formatBytes(int64(rec.Bytes))))
	}
	b.WriteString(fmt.Sprintf("\n%d frames in %d chunks, %s\n", r.Frames, r.Chunks, formatBytes(r.Bytes)))
	if r.Error != "" {
		b.WriteString(fmt.Sprintf("Stream error: %s\n", r.Error))
	}
	return b.String()
}

func formatLoadHuman(r *LoadReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Loaded %d modules (%s mode), entry %s\n", len(r.Registered), r.Mode, r.Entry))
	b.WriteString("\nExecution order:\n")
	for i, id := range r.Order {
		b.WriteString(fmt.Sprintf("%3d. %s\n", i+1, id))
	}
	if len(r.External) > 0 {
		b.WriteString("\nExternal imports of entry:\n")
		for _, ext := range r.External {
			b.WriteString(fmt.Sprintf("  - %s\n", ext))
		}
	}
	return b.String()
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// writeResponse formats resp and prints it with a trailing newline.
func writeResponse(w io.Writer, resp interface{}, format OutputFormat) error {
	out, err := FormatResponse(resp, format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, strings.TrimRight(out, "\n"))
	return err
}
