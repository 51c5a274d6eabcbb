package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"modstream/internal/config"
)

var (
	configFormat   string
	configShowDiff bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage modstream configuration",
	Long:  "View modstream configuration stored in .modstream/config.json",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective modstream configuration.

Examples:
  modstream config show                # Pretty-print current config
  modstream config show --format json  # JSON with source details
  modstream config show --format toml  # TOML rendering of the config
  modstream config show --diff         # Only show non-default values`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Long:  "Display all supported MODSTREAM_* environment variable overrides",
	Args:  cobra.NoArgs,
	Run:   runConfigEnv,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "human", "Output format (human, json, toml)")
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigPath   string                 `json:"configPath,omitempty"`
	UsedDefaults bool                   `json:"usedDefaults"`
	EnvOverrides []config.EnvOverride   `json:"envOverrides,omitempty"`
	Config       map[string]interface{} `json:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	root, err := getPackageRoot()
	if err != nil {
		return err
	}
	result, err := config.LoadWithDetails(root)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch configFormat {
	case "json":
		return outputConfigJSON(out, result, configShowDiff)
	case "toml":
		data, err := result.Config.MarshalTOML()
		if err != nil {
			return fmt.Errorf("failed to marshal TOML: %w", err)
		}
		_, err = out.Write(data)
		return err
	case "human", "":
		return outputConfigHuman(out, result, configShowDiff)
	default:
		return fmt.Errorf("unsupported format: %s", configFormat)
	}
}

func outputConfigJSON(w io.Writer, result *config.LoadResult, diffOnly bool) error {
	values, err := flattenConfig(result.Config)
	if err != nil {
		return err
	}
	if diffOnly {
		defaults, err := flattenConfig(config.DefaultConfig())
		if err != nil {
			return err
		}
		values = computeDiff(values, defaults)
	}

	response := ConfigShowResponse{
		ConfigPath:   result.ConfigPath,
		UsedDefaults: result.UsedDefaults,
		EnvOverrides: result.EnvOverrides,
		Config:       values,
	}
	out, err := formatJSON(response)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func outputConfigHuman(w io.Writer, result *config.LoadResult, diffOnly bool) error {
	values, err := flattenConfig(result.Config)
	if err != nil {
		return err
	}
	defaults, err := flattenConfig(config.DefaultConfig())
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "modstream Configuration")
	fmt.Fprintln(w, strings.Repeat("─", 50))

	if result.UsedDefaults {
		fmt.Fprintln(w, "Source: defaults (no config file found)")
	} else if result.ConfigPath != "" {
		fmt.Fprintf(w, "Source: %s\n", result.ConfigPath)
	}

	if len(result.EnvOverrides) > 0 {
		fmt.Fprintln(w, "\nEnvironment Overrides:")
		for _, ov := range result.EnvOverrides {
			fmt.Fprintf(w, "  %s=%s → %s\n", ov.EnvVar, ov.Value, ov.Key)
		}
	}
	fmt.Fprintln(w)

	if diffOnly {
		values = computeDiff(values, defaults)
		if len(values) == 0 {
			fmt.Fprintln(w, "All settings are at their defaults.")
			return nil
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		printConfigValue(w, k, values[k], defaults[k])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use 'modstream config show --format json' for full configuration")
	fmt.Fprintln(w, "Use 'modstream config env' to see supported environment variables")
	return nil
}

func printConfigValue(w io.Writer, name string, value, defaultValue interface{}) {
	modified := ""
	if !isEqual(value, defaultValue) {
		modified = fmt.Sprintf(" (default: %v)", defaultValue)
	}
	fmt.Fprintf(w, "%s: %v%s\n", name, value, modified)
}

// flattenConfig renders cfg as dotted keys, e.g. serve.addr.
func flattenConfig(cfg *config.Config) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	var nested map[string]interface{}
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	flat := make(map[string]interface{})
	flattenInto(flat, "", nested)
	return flat, nil
}

func flattenInto(dst map[string]interface{}, prefix string, m map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]interface{}); ok {
			flattenInto(dst, key, child)
			continue
		}
		dst[key] = v
	}
}

// computeDiff returns only the values that differ from defaults
func computeDiff(values, defaults map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{})
	for k, v := range values {
		if d, ok := defaults[k]; !ok || !isEqual(v, d) {
			diff[k] = v
		}
	}
	return diff
}

func isEqual(a, b interface{}) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Supported Environment Variables")
	fmt.Fprintln(out, strings.Repeat("─", 50))
	for _, env := range config.GetSupportedEnvVars() {
		fmt.Fprintf(out, "  %s\n", env)
	}
}
