// Package loader reads scene description files.
//
// A scene file lists the player, the optional shared NPC and the regions with their nodes.
// YAML is the default format; files ending in .json are read as JSON.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/exhibit/pkg/domain"
)

// Scene is the root of a scene file.
type Scene struct {
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description" json:"description"`
	Player      PlayerSpec   `yaml:"player" json:"player"`
	NPC         *NPCSpec     `yaml:"npc,omitempty" json:"npc,omitempty"`
	Regions     []RegionSpec `yaml:"regions" json:"regions"`
}

// PlayerSpec identifies the visitor actor.
type PlayerSpec struct {
	ID  string `yaml:"id" json:"id"`
	Tag string `yaml:"tag" json:"tag"`
}

// NPCSpec describes the shared NPC and the lengths of its animation clips.
type NPCSpec struct {
	Name  string                   `yaml:"name" json:"name"`
	Clips map[string]time.Duration `yaml:"clips" json:"clips"`
}

// RegionSpec describes one region.
type RegionSpec struct {
	Name         string     `yaml:"name" json:"name"`
	ID           string     `yaml:"id" json:"id"`
	AmbientAudio string     `yaml:"ambient_audio" json:"ambient_audio"`
	Description  string     `yaml:"description" json:"description"`
	Nodes        []NodeSpec `yaml:"nodes" json:"nodes"`
}

// NodeSpec describes one node. Params is free-form and decoded per use with DecodeParams.
type NodeSpec struct {
	ID          string             `yaml:"id" json:"id"`
	Name        string             `yaml:"name" json:"name"`
	Kind        domain.TriggerKind `yaml:"kind" json:"kind"`
	Description string             `yaml:"description" json:"description"`
	Anchor      *domain.Position   `yaml:"anchor,omitempty" json:"anchor,omitempty"`
	Params      map[string]any     `yaml:"params,omitempty" json:"params,omitempty"`
}

// Load reads a scene file (YAML or JSON).
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		var s Scene
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
		s.applyDefaults()
		return &s, nil
	}
	return Parse(data)
}

// Parse decodes a YAML scene.
func Parse(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scene: %w", err)
	}
	s.applyDefaults()
	return &s, nil
}

func (s *Scene) applyDefaults() {
	if s.Player.Tag == "" {
		s.Player.Tag = "Player"
	}
	for i := range s.Regions {
		if s.Regions[i].ID == "" {
			s.Regions[i].ID = s.Regions[i].Name
		}
		for j := range s.Regions[i].Nodes {
			n := &s.Regions[i].Nodes[j]
			if n.Name == "" {
				n.Name = n.ID
			}
		}
	}
}

// Problem is a configuration error found in a scene.
// Region problems are recoverable: the region is skipped and the rest of the scene still loads.
type Problem struct {
	Region string
	Node   string
	Err    error
}

func (p Problem) Error() string {
	switch {
	case p.Node != "":
		return fmt.Sprintf("region %q node %q: %v", p.Region, p.Node, p.Err)
	case p.Region != "":
		return fmt.Sprintf("region %q: %v", p.Region, p.Err)
	}
	return p.Err.Error()
}

func (p Problem) Unwrap() error { return p.Err }

var (
	errMissingName = errors.New("missing name")
	errMissingID   = errors.New("missing id")
)

// Check lists the configuration problems of the scene. A missing player is fatal and is
// reported by Fatal; every other problem disqualifies only the region it belongs to.
func (s *Scene) Check() []Problem {
	var problems []Problem
	if s.Player.ID == "" {
		problems = append(problems, Problem{Err: domain.ErrPlayerMissing})
	}

	seenRegions := make(map[string]bool)
	for i, r := range s.Regions {
		if r.Name == "" {
			problems = append(problems, Problem{Region: fmt.Sprintf("#%d", i), Err: errMissingName})
			continue
		}
		if seenRegions[r.Name] {
			problems = append(problems, Problem{Region: r.Name, Err: domain.ErrDuplicateRegion})
			continue
		}
		seenRegions[r.Name] = true

		seenNodes := make(map[string]bool)
		for _, n := range r.Nodes {
			switch {
			case n.ID == "":
				problems = append(problems, Problem{Region: r.Name, Err: errMissingID})
			case seenNodes[n.ID]:
				problems = append(problems, Problem{Region: r.Name, Node: n.ID, Err: domain.ErrDuplicateNode})
			}
			seenNodes[n.ID] = true
		}
	}
	return problems
}

// Fatal returns the problem that prevents the scene from being used at all, if any.
func Fatal(problems []Problem) error {
	for _, p := range problems {
		if errors.Is(p.Err, domain.ErrPlayerMissing) {
			return p
		}
	}
	return nil
}

// Validate joins every problem into one error, or returns nil for a clean scene.
func (s *Scene) Validate() error {
	problems := s.Check()
	errs := make([]error, 0, len(problems))
	for _, p := range problems {
		errs = append(errs, p)
	}
	return errors.Join(errs...)
}

// Usable returns the regions that can be built, in file order: unnamed regions, later
// duplicates of a name and regions with node problems are left out.
func (s *Scene) Usable() []RegionSpec {
	broken := make(map[string]bool)
	for _, p := range s.Check() {
		if p.Region != "" && !errors.Is(p.Err, domain.ErrDuplicateRegion) {
			broken[p.Region] = true
		}
	}

	seen := make(map[string]bool)
	out := make([]RegionSpec, 0, len(s.Regions))
	for _, r := range s.Regions {
		if r.Name == "" || seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		if !broken[r.Name] {
			out = append(out, r)
		}
	}
	return out
}
