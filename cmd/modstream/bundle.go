package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"modstream/internal/errors"
	"modstream/internal/frame"
	"modstream/internal/graph"
	"modstream/internal/streaming"
)

var (
	bundleOutput   string
	bundleCompress string
	bundleDB       string
	bundleTarget   string
	bundleParser   string
	bundleDryRun   bool
	bundleFormat   string
)

var bundleCmd = &cobra.Command{
	Use:   "bundle [entrypoint]",
	Short: "Write the frame stream of an entrypoint",
	Long: `Build the module graph of an entrypoint and write every module as a frame,
dependencies first and the entrypoint last.

The entrypoint is a path relative to the package root, or the name of a target
declared in modstream.toml when --target is given.

Examples:
  modstream bundle src/main.js -o app.bundle
  modstream bundle --target app --compress zstd > app.bundle.zst
  modstream bundle src/main.js --db snapshot.db
  modstream bundle src/main.js --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBundle,
}

func init() {
	bundleCmd.Flags().StringVarP(&bundleOutput, "output", "o", "", "Output file (default: stdout)")
	bundleCmd.Flags().StringVar(&bundleCompress, "compress", "", "Transport compression: none, gzip or zstd (default from config)")
	bundleCmd.Flags().StringVar(&bundleDB, "db", "", "Read sources from a SQLite snapshot instead of the package tree")
	bundleCmd.Flags().StringVar(&bundleTarget, "target", "", "Bundle a named target from the targets file")
	bundleCmd.Flags().StringVar(&bundleParser, "parser", "", "Import parser: auto, treesitter or pattern (default from config)")
	bundleCmd.Flags().BoolVar(&bundleDryRun, "dry-run", false, "Print the emission order instead of writing frames")
	bundleCmd.Flags().StringVar(&bundleFormat, "format", "human", "Dry-run output format (human, json, yaml)")
	rootCmd.AddCommand(bundleCmd)
}

// BundlePlan is the dry-run view of a build.
type BundlePlan struct {
	BuildID    string       `json:"buildId" yaml:"buildId"`
	Entrypoint string       `json:"entrypoint" yaml:"entrypoint"`
	Modules    []PlanModule `json:"modules" yaml:"modules"`
	Edges      int          `json:"edges" yaml:"edges"`
	External   int          `json:"external" yaml:"external"`
	Bytes      int64        `json:"bytes" yaml:"bytes"`
}

// PlanModule is one module of a BundlePlan, in emission order.
type PlanModule struct {
	Index      int      `json:"index" yaml:"index"`
	Identifier string   `json:"identifier" yaml:"identifier"`
	Bytes      int      `json:"bytes" yaml:"bytes"`
	Imports    []string `json:"imports,omitempty" yaml:"imports,omitempty"`
	External   []string `json:"external,omitempty" yaml:"external,omitempty"`
}

func runBundle(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	entrypoint, err := bundleEntrypoint(s, args)
	if err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	builder, closeStore, err := s.newBuilder(ctx, bundleParser, bundleDB)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	if bundleDryRun {
		var sink graph.Collect
		stats, err := builder.Build(ctx, entrypoint, &sink)
		if err != nil {
			return err
		}
		return writeResponse(cmd.OutOrStdout(), newBundlePlan(stats, sink.Records), OutputFormat(bundleFormat))
	}

	compressName := bundleCompress
	if compressName == "" {
		compressName = s.cfg.Compression
	}
	compression, err := frame.ParseCompression(compressName)
	if err != nil {
		return errors.NewBundleError(errors.ConfigInvalid, "invalid compression", err)
	}

	var (
		written int64
		stats   *graph.Stats
	)
	write := func(w io.Writer) error {
		stream := streaming.Open(ctx, builder, entrypoint, streaming.Options{
			Compression: compression,
			Logger:      s.logger,
		})
		defer func() { _ = stream.Close() }()

		n, copyErr := io.Copy(w, stream)
		st, buildErr := stream.Wait()
		if buildErr != nil {
			return buildErr
		}
		if copyErr != nil {
			return fmt.Errorf("failed to write bundle: %w", copyErr)
		}
		written, stats = n, st
		return nil
	}

	if bundleOutput == "" {
		err = write(cmd.OutOrStdout())
	} else {
		err = writeBundleTo(bundleOutput, write)
	}
	if err != nil {
		return err
	}

	s.logger.Info("Bundle written",
		"entrypoint", stats.Entrypoint,
		"modules", stats.Modules,
		"edges", stats.Edges,
		"bytes", written,
		"compression", string(compression),
		"elapsed", stats.Elapsed)
	return nil
}

// createOutput opens a bundle output file.
var createOutput = func(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

// writeBundleTo runs write against the named output file. A failed close is
// reported, since the last frames may only reach the file then.
func writeBundleTo(name string, write func(io.Writer) error) (err error) {
	f, err := createOutput(name)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()
	return write(f)
}

// bundleEntrypoint picks the entrypoint from --target or the argument.
func bundleEntrypoint(s *session, args []string) (string, error) {
	if bundleTarget != "" {
		if len(args) > 0 {
			return "", fmt.Errorf("an entrypoint argument cannot be combined with --target")
		}
		manifest, err := s.loadTargets()
		if err != nil {
			return "", err
		}
		target, err := manifest.Get(bundleTarget)
		if err != nil {
			return "", err
		}
		return target.Entrypoint, nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("an entrypoint or --target is required")
	}
	return args[0], nil
}

// newBundlePlan combines the emitted records with the edges recorded in the
// build graph.
func newBundlePlan(stats *graph.Stats, records []frame.Record) *BundlePlan {
	plan := &BundlePlan{
		BuildID:    stats.BuildID,
		Entrypoint: stats.Entrypoint,
		Edges:      stats.Edges,
		External:   stats.External,
		Bytes:      stats.Bytes,
	}
	for i, rec := range records {
		m := PlanModule{
			Index:      i + 1,
			Identifier: rec.Identifier,
			Bytes:      len(rec.Text),
		}
		if stats.Graph != nil {
			for _, edge := range stats.Graph.Imports(rec.Identifier) {
				if edge.Kind == graph.EdgeExternal {
					m.External = append(m.External, edge.To)
				} else {
					m.Imports = append(m.Imports, edge.To)
				}
			}
		}
		plan.Modules = append(plan.Modules, m)
	}
	return plan
}
