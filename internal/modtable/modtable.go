// Package modtable is an in-process execution environment for bundles. It
// keeps a table of registered modules, links their private-scheme imports
// against each other and runs each module at most once, dependencies first.
//
// Running a module records it as evaluated; no JavaScript is interpreted.
package modtable

import (
	"context"
	"log/slog"
	"sync"

	"modstream/internal/errors"
	"modstream/internal/imports"
	"modstream/internal/loader"
	"modstream/internal/resolve"
	"modstream/internal/rewrite"
)

type state int

const (
	registered state = iota
	linking
	evaluated
)

type module struct {
	id       string
	text     string
	state    state
	deps     []string
	external []string
}

// Option configures a Table.
type Option func(*Table)

// WithScheme sets the private scheme that marks package-internal imports.
func WithScheme(scheme string) Option {
	return func(t *Table) {
		if scheme != "" {
			t.scheme = scheme
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Table) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Table implements loader.Environment. It is safe for concurrent use.
type Table struct {
	mu        sync.Mutex
	extractor imports.Extractor
	scheme    string
	logger    *slog.Logger
	modules   map[string]*module
	order     []string
	evaluated []string
}

// New creates an empty table that finds imports with extractor.
func New(extractor imports.Extractor, opts ...Option) *Table {
	t := &Table{
		extractor: extractor,
		scheme:    rewrite.DefaultScheme,
		logger:    slog.New(slog.DiscardHandler),
		modules:   make(map[string]*module),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register implements loader.Environment.
func (t *Table) Register(ctx context.Context, identifier, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.modules[identifier]; ok {
		return errors.Errorf(errors.DuplicateModule, "%s is already registered", rewrite.URI(t.scheme, resolve.Identifier(identifier)))
	}
	t.modules[identifier] = &module{id: identifier, text: text}
	t.order = append(t.order, identifier)
	return nil
}

// Execute implements loader.Environment.
func (t *Table) Execute(ctx context.Context, identifier string) (loader.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.modules[identifier]
	if !ok {
		return loader.Result{}, errors.Errorf(errors.UnresolvedImport, "%s is not registered", identifier)
	}

	var ran []string
	if err := t.evaluate(ctx, m, &ran); err != nil {
		return loader.Result{}, err
	}
	return loader.Result{
		Identifier:   m.id,
		Dependencies: append([]string(nil), m.deps...),
		External:     append([]string(nil), m.external...),
		Order:        ran,
	}, nil
}

func (t *Table) evaluate(ctx context.Context, m *module, ran *[]string) error {
	switch m.state {
	case evaluated:
		return nil
	case linking:
		return errors.Errorf(errors.CycleDetected, "%s imports itself through its dependencies", m.id)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.state = linking
	if err := t.link(ctx, m); err != nil {
		m.state = registered
		return err
	}
	for _, dep := range m.deps {
		if err := t.evaluate(ctx, t.modules[dep], ran); err != nil {
			m.state = registered
			return err
		}
	}

	m.state = evaluated
	t.evaluated = append(t.evaluated, m.id)
	*ran = append(*ran, m.id)
	t.logger.Debug("Evaluated module", "id", m.id, "deps", len(m.deps), "external", len(m.external))
	return nil
}

// link resolves m's imports against the table.
func (t *Table) link(ctx context.Context, m *module) error {
	refs, err := t.extractor.Extract(ctx, m.text)
	if err != nil {
		return errors.NewBundleError(errors.ParseError, "linking "+m.id, err)
	}

	m.deps, m.external = nil, nil
	seen := make(map[string]bool)
	for _, ref := range refs {
		id, internal := rewrite.ParseURI(t.scheme, ref.Specifier)
		if !internal {
			m.external = append(m.external, ref.Specifier)
			continue
		}
		if _, ok := t.modules[string(id)]; !ok {
			return errors.Errorf(errors.UnresolvedImport, "%s imports %s, which is not registered", m.id, ref.Specifier)
		}
		if !seen[string(id)] {
			seen[string(id)] = true
			m.deps = append(m.deps, string(id))
		}
	}
	return nil
}

// Modules returns the registered identifiers in registration order.
func (t *Table) Modules() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.order...)
}

// Evaluated returns the identifiers that have run, in the order they ran.
func (t *Table) Evaluated() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.evaluated...)
}

// Text returns the registered text of identifier.
func (t *Table) Text(identifier string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.modules[identifier]
	if !ok {
		return "", false
	}
	return m.text, true
}
