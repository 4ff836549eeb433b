// Package topology maintains the hub-and-spoke connectivity graph of the station.
package topology

import "github.com/OCAP2/dockyard/pkg/core"

// LinkRange is the maximum 3D distance at which a module links to the hub.
const LinkRange = 3.0

// Edge is a rendered link between the hub and a module.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Solid bool   `json:"solid"` // dashed while the module is not yet docked
}

// Graph is an immutable adjacency built around one hub.
type Graph struct {
	hubID string
	order []string
	adj   map[string][]string
}

// Build rebuilds the graph from scratch. Every module within LinkRange of
// the hub gets a symmetric hub edge; modules never link to each other.
func Build(hubID string, modules []core.Module) *Graph {
	g := &Graph{
		hubID: hubID,
		adj:   map[string][]string{hubID: {}},
		order: []string{hubID},
	}

	var hub *core.Module
	for i := range modules {
		if modules[i].ID == hubID {
			hub = &modules[i]
			break
		}
	}

	for _, m := range modules {
		if m.ID == hubID {
			continue
		}
		if _, seen := g.adj[m.ID]; !seen {
			g.adj[m.ID] = []string{}
			g.order = append(g.order, m.ID)
		}
		if hub == nil || m.Position.DistanceTo(hub.Position) >= LinkRange {
			continue
		}
		g.adj[hubID] = append(g.adj[hubID], m.ID)
		g.adj[m.ID] = append(g.adj[m.ID], hubID)
	}

	return g
}

// HubID returns the root of the graph.
func (g *Graph) HubID() string {
	return g.hubID
}

// Neighbors returns the ids adjacent to id in insertion order.
func (g *Graph) Neighbors(id string) []string {
	return append([]string(nil), g.adj[id]...)
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.adj[id]
	return ok
}

// Adjacency returns a copy of the adjacency map.
func (g *Graph) Adjacency() map[string][]string {
	out := make(map[string][]string, len(g.adj))
	for id, n := range g.adj {
		out[id] = append([]string{}, n...)
	}
	return out
}

// CountConnections returns the number of undirected edges.
func (g *Graph) CountConnections() int {
	total := 0
	for _, n := range g.adj {
		total += len(n)
	}
	return total / 2
}

// ShortestPath runs a breadth-first search from the hub and returns the
// node sequence hub..target. It returns nil when target is unknown or
// unreachable.
func (g *Graph) ShortestPath(target string) []string {
	if !g.Has(target) {
		return nil
	}
	if target == g.hubID {
		return []string{g.hubID}
	}

	parent := map[string]string{g.hubID: ""}
	frontier := []string{g.hubID}

	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]

		for _, next := range g.adj[cur] {
			if _, visited := parent[next]; visited {
				continue
			}
			parent[next] = cur
			if next == target {
				return g.walkBack(parent, target)
			}
			frontier = append(frontier, next)
		}
	}
	return nil
}

func (g *Graph) walkBack(parent map[string]string, target string) []string {
	var path []string
	for id := target; id != ""; id = parent[id] {
		path = append(path, id)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Edges lists hub links for rendering. An edge is solid when its module
// endpoint has completed docking.
func (g *Graph) Edges(isDocked func(id string) bool) []Edge {
	var out []Edge
	for _, id := range g.adj[g.hubID] {
		out = append(out, Edge{
			From:  g.hubID,
			To:    id,
			Solid: isDocked != nil && isDocked(id),
		})
	}
	return out
}
