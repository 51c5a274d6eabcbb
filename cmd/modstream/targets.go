package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"modstream/internal/targets"
)

var (
	targetsFormat      string
	targetsDescription string
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Manage bundle targets",
	Long:  "List and declare the named entrypoints in modstream.toml",
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bundle targets",
	Args:  cobra.NoArgs,
	RunE:  runTargetsList,
}

var targetsAddCmd = &cobra.Command{
	Use:   "add <name> <entrypoint>",
	Short: "Declare a bundle target",
	Long: `Declare a named entrypoint in the targets file, creating the file if needed.

Examples:
  modstream targets add app src/main.js --description "Main application"`,
	Args: cobra.ExactArgs(2),
	RunE: runTargetsAdd,
}

func init() {
	targetsListCmd.Flags().StringVar(&targetsFormat, "format", "human", "Output format (human, json, yaml)")
	targetsAddCmd.Flags().StringVar(&targetsDescription, "description", "", "Human-readable description")

	targetsCmd.AddCommand(targetsListCmd)
	targetsCmd.AddCommand(targetsAddCmd)
	rootCmd.AddCommand(targetsCmd)
}

func runTargetsList(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	manifest, err := s.loadTargets()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if OutputFormat(targetsFormat) != FormatHuman {
		return writeResponse(out, manifest.Targets, OutputFormat(targetsFormat))
	}
	if len(manifest.Targets) == 0 {
		fmt.Fprintf(out, "No targets declared in %s\n", s.targetsPath())
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tENTRYPOINT\tDESCRIPTION")
	for _, name := range manifest.Names() {
		t, _ := manifest.Get(name)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Name, t.Entrypoint, t.Description)
	}
	return tw.Flush()
}

func runTargetsAdd(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	manifest, err := s.loadTargets()
	if err != nil {
		return err
	}

	if err := manifest.Add(targets.Target{
		Name:        args[0],
		Entrypoint:  args[1],
		Description: targetsDescription,
	}); err != nil {
		return err
	}
	if err := manifest.Save(s.targetsPath()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added target %s (%s) to %s\n", args[0], args[1], s.targetsPath())
	return nil
}
