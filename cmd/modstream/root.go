package main

import (
	"modstream/internal/version"

	"github.com/spf13/cobra"
)

var (
	// rootFlag is the CLI --root flag value
	rootFlag string

	verbosity int
	quiet     bool
)

var rootCmd = &cobra.Command{
	Use:   "modstream",
	Short: "modstream - progressive JavaScript module bundler",
	Long: `modstream walks the static imports of an entrypoint, rewrites package-internal
specifiers to private-scheme URIs and writes every module as a length-prefixed
frame, dependencies first, so a consumer can register and run modules while the
rest of the bundle is still arriving.`,
	Version:       version.Info(),
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.SetVersionTemplate("modstream version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "",
		"Package root (default: current directory)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"Suppress all log output")
}
