package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"modstream/internal/config"
	"modstream/internal/errors"
	"modstream/internal/graph"
	"modstream/internal/imports"
	"modstream/internal/resolve"
	"modstream/internal/slogutil"
	"modstream/internal/source"
	"modstream/internal/targets"
)

// session is the per-invocation state shared by commands: the effective
// configuration and a logger writing to stderr.
type session struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
}

// newSession resolves the package root, loads its configuration and builds
// the logger.
func newSession() (*session, error) {
	root, err := getPackageRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return &session{
		root:   root,
		cfg:    cfg,
		logger: newLogger(os.Stderr, cfg),
	}, nil
}

// getPackageRoot returns the absolute package root from --root or the
// working directory.
func getPackageRoot() (string, error) {
	if rootFlag != "" {
		return filepath.Abs(rootFlag)
	}
	return os.Getwd()
}

// newLogger creates the CLI logger. Explicit -v or --quiet flags win over
// logging.level from the config.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	return slogutil.NewLoggerWithFormat(w, level, slogutil.Format(cfg.Logging.Format))
}

// newContext creates a context canceled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newExtractor creates the import extractor selected by the config.
func (s *session) newExtractor(parser string) (imports.Extractor, error) {
	if parser == "" {
		parser = s.cfg.Parser
	}
	kind, err := imports.ParseKind(parser)
	if err != nil {
		return nil, errors.NewBundleError(errors.ConfigInvalid, "invalid parser", err)
	}
	return imports.New(kind, s.cfg.StrictParse)
}

// newBuilder creates a graph builder over the package tree on disk, or over
// a SQLite snapshot when dbPath is set. The returned close function releases
// the store.
func (s *session) newBuilder(ctx context.Context, parser, dbPath string) (*graph.Builder, func() error, error) {
	extractor, err := s.newExtractor(parser)
	if err != nil {
		return nil, nil, err
	}

	var store source.Store
	root := s.cfg.Root
	closeFn := func() error { return nil }
	if dbPath != "" {
		snapshot, err := source.OpenSQLiteStore(dbPath, s.logger)
		if err != nil {
			return nil, nil, errors.NewBundleError(errors.LoadError, "cannot open snapshot", err)
		}
		root, err = snapshot.Root(ctx)
		if err != nil {
			_ = snapshot.Close()
			return nil, nil, errors.NewBundleError(errors.LoadError, "cannot read snapshot root", err)
		}
		if root == "" {
			_ = snapshot.Close()
			return nil, nil, errors.Errorf(errors.LoadError, "snapshot %s is empty", dbPath)
		}
		store, closeFn = snapshot, snapshot.Close
	} else {
		store = source.NewFSStore(nil)
	}

	resolver, err := resolve.New(root)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	b := graph.NewBuilder(store, extractor, resolver,
		graph.WithScheme(s.cfg.Scheme),
		graph.WithLogger(s.logger))
	return b, closeFn, nil
}

// targetsPath returns the manifest location; a relative targetsFile is taken
// from the package root.
func (s *session) targetsPath() string {
	if filepath.IsAbs(s.cfg.TargetsFile) {
		return s.cfg.TargetsFile
	}
	return filepath.Join(s.cfg.Root, s.cfg.TargetsFile)
}

// loadTargets reads the bundle target manifest.
func (s *session) loadTargets() (*targets.Manifest, error) {
	return targets.Load(s.targetsPath())
}

// printSuggestedFixes writes the fixes registered for err's code, if any.
func printSuggestedFixes(w io.Writer, err error) {
	fixes := errors.GetSuggestedFixes(errors.CodeOf(err))
	if len(fixes) == 0 {
		return
	}
	fmt.Fprintln(w, "Suggested fixes:")
	for _, fix := range fixes {
		if fix.Command != "" {
			fmt.Fprintf(w, "  - %s: %s\n", fix.Description, fix.Command)
			continue
		}
		fmt.Fprintf(w, "  - %s\n", fix.Description)
	}
}
