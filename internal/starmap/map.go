// internal/starmap/map.go
package starmap

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Map is the name-keyed collection of systems of one region
type Map struct {
	Region  string
	systems map[string]*System
	names   []string
}

// New returns an empty map
func New(region string) *Map {
	return &Map{Region: region, systems: make(map[string]*System)}
}

// Add inserts a system, or returns the existing one with that name.
// Names are stored upper-cased.
func (m *Map) Add(name string, id int64) *System {
	name = strings.ToUpper(name)
	if sys, ok := m.systems[name]; ok {
		return sys
	}
	sys := NewSystem(name, id)
	m.systems[name] = sys
	i := sort.SearchStrings(m.names, name)
	m.names = append(m.names, "")
	copy(m.names[i+1:], m.names[i:])
	m.names[i] = name
	return sys
}

// Get looks a system up by its upper-case name
func (m *Map) Get(name string) (*System, bool) {
	sys, ok := m.systems[name]
	return sys, ok
}

// Has reports whether a system with the upper-case name exists
func (m *Map) Has(name string) bool {
	_, ok := m.systems[name]
	return ok
}

// Names returns the system names in ascending order.
// The slice is shared and must not be modified.
func (m *Map) Names() []string {
	return m.names
}

// Systems returns all systems ordered by name
func (m *Map) Systems() []*System {
	out := make([]*System, len(m.names))
	for i, n := range m.names {
		out[i] = m.systems[n]
	}
	return out
}

// Len returns the number of systems
func (m *Map) Len() int {
	return len(m.systems)
}

// Link connects two systems by name
func (m *Map) Link(a, b string) error {
	sa, ok := m.Get(strings.ToUpper(a))
	if !ok {
		return fmt.Errorf("unknown system %q", a)
	}
	sb, ok := m.Get(strings.ToUpper(b))
	if !ok {
		return fmt.Errorf("unknown system %q", b)
	}
	sa.AddNeighbor(sb)
	return nil
}

// mapFile is the on-disk topology of one region
type mapFile struct {
	Region  string `yaml:"region"`
	Systems []struct {
		Name      string   `yaml:"name"`
		ID        int64    `yaml:"id"`
		Neighbors []string `yaml:"neighbors"`
	} `yaml:"systems"`
	// Jumps are "j-<id>-<id>" pairs as exported from the region SVG
	Jumps []string `yaml:"jumps"`
}

// LoadMap reads a region topology from a YAML file
func LoadMap(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f mapFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse map %s: %w", path, err)
	}

	m := New(f.Region)
	byID := make(map[int64]*System)
	for _, s := range f.Systems {
		if s.Name == "" {
			return nil, fmt.Errorf("parse map %s: system without name", path)
		}
		sys := m.Add(s.Name, s.ID)
		if s.ID != 0 {
			byID[s.ID] = sys
		}
	}
	for _, s := range f.Systems {
		for _, n := range s.Neighbors {
			if err := m.Link(s.Name, n); err != nil {
				return nil, fmt.Errorf("parse map %s: %w", path, err)
			}
		}
	}
	for _, j := range f.Jumps {
		a, b, err := parseJump(j)
		if err != nil {
			return nil, fmt.Errorf("parse map %s: %w", path, err)
		}
		sa, okA := byID[a]
		sb, okB := byID[b]
		if !okA || !okB {
			// jumps leaving the region point at systems we do not draw
			continue
		}
		sa.AddNeighbor(sb)
	}

	return m, nil
}

func parseJump(j string) (int64, int64, error) {
	parts := strings.Split(strings.TrimPrefix(j, "j-"), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad jump %q", j)
	}
	a, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad jump %q: %w", j, err)
	}
	b, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad jump %q: %w", j, err)
	}
	return a, b, nil
}

// RegionSlug converts a region name to its file name form,
// e.g. "providence" -> "Providence", "the forge" -> "The_Forge".
func RegionSlug(name string) string {
	var b strings.Builder
	nextUpper := false
	for i, r := range name {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case r == ' ' || r == '_':
			b.WriteRune('_')
			nextUpper = true
		case nextUpper:
			b.WriteRune(unicode.ToUpper(r))
			nextUpper = false
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// MapPath returns the topology file for region inside dir
func MapPath(dir, region string) string {
	return filepath.Join(dir, RegionSlug(region)+".yaml")
}
