// Package graph holds per-fleet navigation graphs and the lazily-populated
// cache the console validates waypoint selections against.
package graph

import (
	"errors"
	"fmt"
	"sync"
)

// ErrGraphNotFound is returned when a fleet's navigation graph cannot be
// loaded. The failure is not cached: the resource may appear later, e.g.
// after the fleet adapter announces itself.
var ErrGraphNotFound = errors.New("navigation graph not found")

// Waypoint is a named node in a fleet's navigation graph.
type Waypoint struct {
	Name        string `yaml:"name" json:"name"`
	HasWorkcell bool   `yaml:"workcell" json:"has_workcell"`
}

// GraphInfo is the navigation graph of one fleet. Immutable after load;
// waypoint order follows the source resource.
type GraphInfo struct {
	FleetName string     `yaml:"fleet_name" json:"fleet_name"`
	Waypoints []Waypoint `yaml:"waypoints" json:"waypoints"`
}

// Find returns the named waypoint, if present.
func (g *GraphInfo) Find(name string) (Waypoint, bool) {
	for _, wp := range g.Waypoints {
		if wp.Name == name {
			return wp, true
		}
	}
	return Waypoint{}, false
}

// WaypointNames returns waypoint names in graph order. If workcellsOnly is
// set, only waypoints hosting a workcell are included.
func (g *GraphInfo) WaypointNames(workcellsOnly bool) []string {
	names := make([]string, 0, len(g.Waypoints))
	for _, wp := range g.Waypoints {
		if workcellsOnly && !wp.HasWorkcell {
			continue
		}
		names = append(names, wp.Name)
	}
	return names
}

// Source loads a fleet's navigation graph from an external resource.
type Source interface {
	Load(fleetName string) (*GraphInfo, error)
}

// Cache memoizes navigation graphs per fleet. Successful loads are kept for
// the session; failed loads are retried on the next Get. Loads run under the
// cache lock, so at most one load is in flight at a time.
type Cache struct {
	source Source
	mu     sync.Mutex
	graphs map[string]*GraphInfo
}

// NewCache creates a cache backed by the given source.
func NewCache(source Source) *Cache {
	return &Cache{
		source: source,
		graphs: make(map[string]*GraphInfo),
	}
}

// Get returns the fleet's graph, loading and memoizing it on first use.
func (c *Cache) Get(fleetName string) (*GraphInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if g, ok := c.graphs[fleetName]; ok {
		return g, nil
	}
	g, err := c.source.Load(fleetName)
	if err != nil {
		return nil, fmt.Errorf("load graph for fleet %q: %w", fleetName, err)
	}
	c.graphs[fleetName] = g
	return g, nil
}

// Cached returns the fleet's graph only if a previous Get loaded it.
func (c *Cache) Cached(fleetName string) (*GraphInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.graphs[fleetName]
	return g, ok
}

// Fleets returns the fleet names with a cached graph.
func (c *Cache) Fleets() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.graphs))
	for name := range c.graphs {
		out = append(out, name)
	}
	return out
}
