package datasource

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Describes is the relation type the layout creates between a parent and
// the child it describes.
const Describes = "describes"

type record struct {
	node     Node
	children []string
}

// Memory is an in-process Backend. Ids it mints are UUIDs.
type Memory struct {
	mu           sync.Mutex
	descriptors  map[string]*record
	associations map[string]*Association
	byPair       map[[2]string]string
	reasoned     map[string]int
	failures     map[string]error
	calls        map[string]int
}

func NewMemory() *Memory {
	m := &Memory{
		descriptors:  make(map[string]*record),
		associations: make(map[string]*Association),
		byPair:       make(map[[2]string]string),
		reasoned:     make(map[string]int),
		failures:     make(map[string]error),
		calls:        make(map[string]int),
	}
	m.descriptors[RootID] = &record{node: Node{ID: RootID, Name: "root", Fixed: true}}
	return m
}

// FailOn makes every later call to op return err. A nil err clears it.
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls returns how many times op was called.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Reasoned returns how many times Reason was called for id.
func (m *Memory) Reasoned(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reasoned[id]
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.descriptors)
}

func (m *Memory) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.descriptors[id]
	return ok
}

// Association returns the association from source to target, if any.
func (m *Memory) Association(sourceID, targetID string) (*Association, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPair[[2]string{sourceID, targetID}]
	if !ok {
		return nil, false
	}
	a := cloneAssociation(m.associations[id])
	return &a, true
}

// enter must be called with mu held.
func (m *Memory) enter(ctx context.Context, op string) error {
	m.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.failures[op]
}

func (m *Memory) Root(ctx context.Context) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "root"); err != nil {
		return nil, err
	}
	return m.view("", RootID)
}

func (m *Memory) Descriptor(ctx context.Context, parentID, id string) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "descriptor"); err != nil {
		return nil, err
	}
	return m.view(parentID, id)
}

// view assembles the node as seen from parentID. Associations from
// parentID come first.
func (m *Memory) view(parentID, id string) (*Node, error) {
	r, ok := m.descriptors[id]
	if !ok {
		return nil, fmt.Errorf("descriptor %q: %w", id, ErrNotFound)
	}
	n := r.node
	n.ParentID = parentID
	n.Properties = slices.Clone(r.node.Properties)
	n.Targets = slices.Clone(r.children)
	n.ParentRelations = nil
	if aid, ok := m.byPair[[2]string{parentID, id}]; ok {
		n.ParentRelations = append(n.ParentRelations, cloneAssociation(m.associations[aid]))
	}
	for _, aid := range m.sortedAssociations() {
		a := m.associations[aid]
		if a.TargetID == id && a.SourceID != parentID {
			n.ParentRelations = append(n.ParentRelations, cloneAssociation(a))
		}
	}
	return &n, nil
}

func (m *Memory) sortedAssociations() []string {
	ids := make([]string, 0, len(m.associations))
	for id := range m.associations {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (m *Memory) AddDescriptor(ctx context.Context, parentID string) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "add descriptor"); err != nil {
		return nil, err
	}
	if _, ok := m.descriptors[parentID]; !ok {
		return nil, fmt.Errorf("parent %q: %w", parentID, ErrNotFound)
	}
	id := uuid.NewString()
	m.descriptors[id] = &record{node: Node{ID: id, Name: "untitled"}}
	a := m.associate(parentID, id)
	m.relate(a, parentID, id, Describes)
	return m.view(parentID, id)
}

func (m *Memory) AddAssociation(ctx context.Context, sourceID, targetID string) (*Association, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "add association"); err != nil {
		return nil, err
	}
	for _, id := range []string{sourceID, targetID} {
		if _, ok := m.descriptors[id]; !ok {
			return nil, fmt.Errorf("descriptor %q: %w", id, ErrNotFound)
		}
	}
	a := cloneAssociation(m.associate(sourceID, targetID))
	return &a, nil
}

func (m *Memory) AddRelation(ctx context.Context, associationID, sourceID, targetID, relType string) (*Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "add relation"); err != nil {
		return nil, err
	}
	a, ok := m.associations[associationID]
	if !ok {
		return nil, fmt.Errorf("association %q: %w", associationID, ErrNotFound)
	}
	rel := m.relate(a, sourceID, targetID, relType)
	return &rel, nil
}

func (m *Memory) DropDescriptor(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "drop descriptor"); err != nil {
		return err
	}
	if id == RootID {
		return ErrRoot
	}
	if _, ok := m.descriptors[id]; !ok {
		return fmt.Errorf("descriptor %q: %w", id, ErrNotFound)
	}
	delete(m.descriptors, id)
	for _, r := range m.descriptors {
		r.children = slices.DeleteFunc(r.children, func(c string) bool { return c == id })
	}
	for aid, a := range m.associations {
		if a.SourceID == id || a.TargetID == id {
			delete(m.associations, aid)
			delete(m.byPair, [2]string{a.SourceID, a.TargetID})
		}
	}
	return nil
}

func (m *Memory) Reason(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "reason"); err != nil {
		return err
	}
	if _, ok := m.descriptors[id]; !ok {
		return fmt.Errorf("descriptor %q: %w", id, ErrNotFound)
	}
	m.reasoned[id]++
	return nil
}

// associate returns the association from source to target, creating it and
// recording target as a child of source when needed. mu must be held.
func (m *Memory) associate(sourceID, targetID string) *Association {
	key := [2]string{sourceID, targetID}
	if id, ok := m.byPair[key]; ok {
		return m.associations[id]
	}
	a := &Association{ID: uuid.NewString(), SourceID: sourceID, TargetID: targetID}
	m.associations[a.ID] = a
	m.byPair[key] = a.ID
	if r, ok := m.descriptors[sourceID]; ok && !slices.Contains(r.children, targetID) {
		r.children = append(r.children, targetID)
	}
	return a
}

func (m *Memory) relate(a *Association, sourceID, targetID, relType string) Relation {
	rel := Relation{
		ID:            uuid.NewString(),
		AssociationID: a.ID,
		Type:          relType,
		SourceID:      sourceID,
		TargetID:      targetID,
	}
	a.Relations = append(a.Relations, rel)
	return rel
}

func cloneAssociation(a *Association) Association {
	c := *a
	c.Relations = slices.Clone(a.Relations)
	return c
}
