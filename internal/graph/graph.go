// Package graph builds the dependency-ordered module sequence of a package.
//
// A Builder walks the static imports of an entrypoint depth first, rewrites
// every package-internal specifier to a private-scheme URI and emits each
// module only after all of its dependencies, so a consumer can make modules
// available in arrival order.
package graph

import "sort"

// EdgeKind classifies an import edge.
type EdgeKind string

const (
	// EdgeInternal points at a module inside the package.
	EdgeInternal EdgeKind = "internal"
	// EdgeExternal points at a bare specifier or URL left to the environment.
	EdgeExternal EdgeKind = "external"
)

// Edge is one import from a module.
type Edge struct {
	From string   `json:"from" yaml:"from"`
	To   string   `json:"to" yaml:"to"`
	Kind EdgeKind `json:"kind" yaml:"kind"`
}

// Graph records the import edges seen during a build. Node order is the
// order in which modules were first reached.
type Graph struct {
	nodes    []string
	nodeIdx  map[string]int
	outEdges [][]Edge
	inEdges  [][]Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodeIdx: make(map[string]int)}
}

// AddNode adds a node if it doesn't exist, returns its index.
func (g *Graph) AddNode(id string) int {
	if idx, ok := g.nodeIdx[id]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, id)
	g.nodeIdx[id] = idx
	g.outEdges = append(g.outEdges, nil)
	g.inEdges = append(g.inEdges, nil)
	return idx
}

// AddEdge adds a directed edge from an importing module to its import.
func (g *Graph) AddEdge(from, to string, kind EdgeKind) {
	e := Edge{From: from, To: to, Kind: kind}
	src := g.AddNode(from)
	g.outEdges[src] = append(g.outEdges[src], e)
	if kind == EdgeInternal {
		dst := g.AddNode(to)
		g.inEdges[dst] = append(g.inEdges[dst], e)
	}
}

// Nodes returns the module identifiers in first-reached order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Imports returns the edges leaving id in source order.
func (g *Graph) Imports(id string) []Edge {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil
	}
	return append([]Edge(nil), g.outEdges[idx]...)
}

// Importers returns the sorted identifiers of modules importing id.
func (g *Graph) Importers(id string) []string {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, e := range g.inEdges[idx] {
		if !seen[e.From] {
			seen[e.From] = true
			out = append(out, e.From)
		}
	}
	sort.Strings(out)
	return out
}

// NumNodes returns the number of package-internal modules.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumEdges returns the number of import edges of both kinds.
func (g *Graph) NumEdges() int {
	n := 0
	for _, edges := range g.outEdges {
		n += len(edges)
	}
	return n
}
