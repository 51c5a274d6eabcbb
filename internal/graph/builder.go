package graph

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"modstream/internal/errors"
	"modstream/internal/frame"
	"modstream/internal/imports"
	"modstream/internal/resolve"
	"modstream/internal/rewrite"
	"modstream/internal/source"
)

// Module is one loaded source unit before rewriting.
type Module struct {
	Location string
	Text     string
	Imports  []imports.Reference
}

// Stats summarizes one build.
type Stats struct {
	BuildID    string        `json:"buildId"`
	Entrypoint string        `json:"entrypoint"`
	Modules    int           `json:"modules"`
	Edges      int           `json:"edges"`
	External   int           `json:"external"`
	Bytes      int64         `json:"bytes"`
	Elapsed    time.Duration `json:"elapsed"`
	Graph      *Graph        `json:"-"`
}

// Option configures a Builder.
type Option func(*Builder)

// WithScheme sets the private URI scheme used when rewriting imports.
func WithScheme(scheme string) Option {
	return func(b *Builder) {
		if scheme != "" {
			b.scheme = scheme
		}
	}
}

// WithLogger sets the logger; builds are silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Builder turns an entrypoint into a dependency-ordered record sequence.
// A Builder holds no per-build state and may run concurrent builds.
type Builder struct {
	store     source.Store
	extractor imports.Extractor
	resolver  *resolve.Resolver
	scheme    string
	logger    *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(store source.Store, extractor imports.Extractor, resolver *resolve.Resolver, opts ...Option) *Builder {
	b := &Builder{
		store:     store,
		extractor: extractor,
		resolver:  resolver,
		scheme:    rewrite.DefaultScheme,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Resolver returns the resolver the builder was created with.
func (b *Builder) Resolver() *resolve.Resolver {
	return b.resolver
}

// Build emits every module reachable from entrypoint into sink, each after
// all of its dependencies and the entrypoint last. The entrypoint is an
// absolute location or a path relative to the package root.
//
// Stats are returned even when the build fails; records emitted before a
// failure are not retracted.
func (b *Builder) Build(ctx context.Context, entrypoint string, sink Sink) (*Stats, error) {
	start := time.Now()
	st := &build{
		Builder:    b,
		sink:       sink,
		finalized:  make(map[resolve.Identifier]bool),
		inProgress: make(map[resolve.Identifier]bool),
		stats: &Stats{
			BuildID:    uuid.NewString(),
			Entrypoint: entrypoint,
			Graph:      NewGraph(),
		},
	}
	st.logger = b.logger.With("build", st.stats.BuildID)

	err := func() error {
		entry, err := b.resolver.Entrypoint(entrypoint)
		if err != nil {
			return err
		}
		st.stats.Entrypoint = entry.Identifier.String()
		return st.visit(ctx, entry)
	}()

	st.stats.Elapsed = time.Since(start)
	if err != nil {
		st.logger.Debug("Build failed", "entrypoint", entrypoint, "emitted", st.stats.Modules, "error", err)
		return st.stats, err
	}
	st.logger.Debug("Build complete",
		"entrypoint", st.stats.Entrypoint,
		"modules", st.stats.Modules,
		"edges", st.stats.Edges,
		"elapsed", st.stats.Elapsed)
	return st.stats, nil
}

// build is the traversal state of one Build call.
type build struct {
	*Builder
	sink       Sink
	logger     *slog.Logger
	finalized  map[resolve.Identifier]bool
	inProgress map[resolve.Identifier]bool
	stack      []resolve.Identifier
	stats      *Stats
}

func (st *build) visit(ctx context.Context, target resolve.Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id := target.Identifier
	if st.inProgress[id] {
		return st.cycleError(id)
	}
	st.inProgress[id] = true
	st.stack = append(st.stack, id)
	st.stats.Graph.AddNode(id.String())

	mod, err := st.load(ctx, target.Location)
	if err != nil {
		return err
	}

	ids := make([]resolve.Identifier, len(mod.Imports))
	for i, ref := range mod.Imports {
		dep, err := st.resolver.Resolve(ref.Specifier, mod.Location)
		if err != nil {
			return err
		}
		st.stats.Edges++
		if dep.External {
			st.stats.External++
			st.stats.Graph.AddEdge(id.String(), dep.Location, EdgeExternal)
			continue
		}
		ids[i] = dep.Identifier
		st.stats.Graph.AddEdge(id.String(), dep.Identifier.String(), EdgeInternal)

		// A finalized target is already upstream in the stream; rewriting
		// below does not depend on whether this reference triggered its visit.
		if st.finalized[dep.Identifier] {
			continue
		}
		if err := st.visit(ctx, dep); err != nil {
			return err
		}
	}

	text, err := rewrite.Rewrite(mod.Text, mod.Imports, ids, st.scheme)
	if err != nil {
		return errors.NewBundleError(errors.RewriteError, "rewriting "+id.String(), err)
	}

	delete(st.inProgress, id)
	st.stack = st.stack[:len(st.stack)-1]
	st.finalized[id] = true

	rec := frame.Record{Identifier: id.String(), Text: text}
	if err := st.sink.Emit(ctx, rec); err != nil {
		return err
	}
	st.stats.Modules++
	st.stats.Bytes += int64(rec.Size())
	st.logger.Debug("Emitted module", "id", rec.Identifier, "imports", len(mod.Imports), "bytes", len(text))
	return nil
}

func (st *build) load(ctx context.Context, location string) (*Module, error) {
	text, err := st.store.Load(ctx, location)
	if err != nil {
		if errors.CodeOf(err) == "" && ctx.Err() == nil {
			err = errors.NewBundleError(errors.LoadError, "loading "+location, err)
		}
		return nil, err
	}
	refs, err := st.extractor.Extract(ctx, text)
	if err != nil {
		if errors.CodeOf(err) == "" && ctx.Err() == nil {
			err = errors.NewBundleError(errors.ParseError, "parsing "+location, err)
		}
		return nil, err
	}
	return &Module{Location: location, Text: text, Imports: refs}, nil
}

func (st *build) cycleError(id resolve.Identifier) error {
	stack := make([]string, len(st.stack))
	for i, s := range st.stack {
		stack[i] = s.String()
	}
	return errors.Errorf(errors.CycleDetected, "import cycle through %s: %s -> %s",
		id, strings.Join(stack, " -> "), id).
		WithDetails(errors.CycleDetails{Identifier: id.String(), Stack: stack})
}
