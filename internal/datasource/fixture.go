package datasource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Fixture is a graph written by hand, one entry per descriptor. Parents
// must appear before their children.
type Fixture struct {
	Descriptors []FixtureDescriptor `yaml:"descriptors" json:"descriptors"`
}

type FixtureDescriptor struct {
	ID         string            `yaml:"id" json:"id"`
	Parent     string            `yaml:"parent" json:"parent"`
	Name       string            `yaml:"name" json:"name"`
	Fixed      bool              `yaml:"fixed" json:"fixed"`
	Properties map[string]string `yaml:"properties" json:"properties"`
	// Also lists further descriptors this one is related from.
	Also []string `yaml:"also" json:"also"`
}

// ParseFixture decodes YAML, or JSON when format is "json".
func ParseFixture(data []byte, format string) (*Fixture, error) {
	var f Fixture
	var err error
	if format == "json" {
		err = json.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

func LoadFixtureFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return ParseFixture(data, format)
}

// Load adds every descriptor of f. Descriptors without a parent hang from
// the root; a missing id gets a fresh UUID.
func (m *Memory) Load(f *Fixture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range f.Descriptors {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		if id == RootID {
			if d.Name != "" {
				m.descriptors[RootID].node.Name = d.Name
			}
			continue
		}
		if _, dup := m.descriptors[id]; dup {
			return fmt.Errorf("fixture descriptor %d: %q already loaded", i, id)
		}
		parent := d.Parent
		if parent == "" {
			parent = RootID
		}
		if _, ok := m.descriptors[parent]; !ok {
			return fmt.Errorf("fixture descriptor %q: parent %q: %w", id, parent, ErrNotFound)
		}

		n := Node{ID: id, Name: d.Name, Fixed: d.Fixed}
		for _, k := range sortedKeys(d.Properties) {
			n.Properties = append(n.Properties, Property{Name: k, Value: d.Properties[k]})
		}
		m.descriptors[id] = &record{node: n}
		m.relate(m.associate(parent, id), parent, id, Describes)
		for _, src := range d.Also {
			if _, ok := m.descriptors[src]; !ok {
				return fmt.Errorf("fixture descriptor %q: related from %q: %w", id, src, ErrNotFound)
			}
			m.relate(m.associate(src, id), src, id, Describes)
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
