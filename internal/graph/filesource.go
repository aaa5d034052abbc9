package graph

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileSource loads navigation graphs from per-fleet YAML files named
// <dir>/<fleet>.yaml:
//
//	fleet_name: tinyRobot
//	waypoints:
//	  - name: pantry
//	    workcell: true
//	  - name: hardware_2
type FileSource struct {
	Dir string
}

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

// Load reads and parses the fleet's graph file. A missing file maps to
// ErrGraphNotFound so callers can retry once the fleet publishes its graph.
func (s *FileSource) Load(fleetName string) (*GraphInfo, error) {
	path := filepath.Join(s.Dir, fleetName+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrGraphNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var g GraphInfo
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, ErrGraphNotFound)
	}
	if len(g.Waypoints) == 0 {
		return nil, fmt.Errorf("%s: no waypoints: %w", path, ErrGraphNotFound)
	}
	if g.FleetName == "" {
		g.FleetName = fleetName
	}
	return &g, nil
}
