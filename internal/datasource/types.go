// Package datasource is the boundary to whatever owns the graph data. The
// layout engine asks it for descriptors and sends it the edits a user makes;
// answers arrive as Nodes and Relations.
package datasource

import (
	"context"
	"errors"
)

// RootID names the root descriptor every graph hangs from.
const RootID = "metaroot"

var (
	ErrNotFound = errors.New("datasource: not found")
	ErrRoot     = errors.New("datasource: the root cannot be dropped")
)

type Property struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// Relation links Source to Target under an association.
type Relation struct {
	ID            string `yaml:"id" json:"id"`
	AssociationID string `yaml:"association_id" json:"associationId"`
	Type          string `yaml:"type" json:"type"`
	SourceID      string `yaml:"source_id" json:"sourceId"`
	TargetID      string `yaml:"target_id" json:"targetId"`
}

// Association groups the relations between one parent and one child.
type Association struct {
	ID        string     `yaml:"id" json:"id"`
	SourceID  string     `yaml:"source_id" json:"sourceId"`
	TargetID  string     `yaml:"target_id" json:"targetId"`
	Relations []Relation `yaml:"relations" json:"relations"`
}

// Node is a descriptor as delivered to the layout. ParentRelations holds the
// associations linking ParentID (or another source) to this node; Targets
// lists child descriptors the layout should request next.
type Node struct {
	ID              string        `yaml:"id" json:"id"`
	ParentID        string        `yaml:"parent_id,omitempty" json:"parentId,omitempty"`
	Name            string        `yaml:"name,omitempty" json:"name,omitempty"`
	Fixed           bool          `yaml:"fixed,omitempty" json:"fixed,omitempty"`
	Properties      []Property    `yaml:"properties,omitempty" json:"properties,omitempty"`
	Targets         []string      `yaml:"targets,omitempty" json:"targets,omitempty"`
	ParentRelations []Association `yaml:"parent_relations,omitempty" json:"parentRelations,omitempty"`
}

func (n *Node) IsRoot() bool { return n.ID == RootID }

func (n *Node) Property(name string) (string, bool) {
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// DisplayName prefers the "ts" property, then "name", then Name, then the id.
func (n *Node) DisplayName() string {
	for _, key := range []string{"ts", "name"} {
		if v, ok := n.Property(key); ok && v != "" {
			return v
		}
	}
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// Backend is implemented by graph data sources. Calls may block and are
// issued off the layout goroutine.
type Backend interface {
	Root(ctx context.Context) (*Node, error)
	Descriptor(ctx context.Context, parentID, id string) (*Node, error)
	AddDescriptor(ctx context.Context, parentID string) (*Node, error)
	AddAssociation(ctx context.Context, sourceID, targetID string) (*Association, error)
	AddRelation(ctx context.Context, associationID, sourceID, targetID, relType string) (*Relation, error)
	DropDescriptor(ctx context.Context, id string) error
	Reason(ctx context.Context, id string) error
}
