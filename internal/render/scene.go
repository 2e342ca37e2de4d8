package render

import (
	"slices"

	"github.com/san-kum/forcegraph/internal/dynamo"
)

// Scene is the bookkeeping every renderer shares: which nodes and edges
// exist, in insertion order.
type Scene struct {
	Width, Height float64

	nodes []*dynamo.Particle
	edges map[EdgeHandle]Edge
	order []EdgeHandle
	next  EdgeHandle
}

func (s *Scene) AddNode(p *dynamo.Particle) {
	if !slices.Contains(s.nodes, p) {
		s.nodes = append(s.nodes, p)
	}
}

func (s *Scene) RemoveNode(p *dynamo.Particle) {
	s.nodes = slices.DeleteFunc(s.nodes, func(q *dynamo.Particle) bool { return q == p })
}

func (s *Scene) AddEdge(e Edge) EdgeHandle {
	if s.edges == nil {
		s.edges = make(map[EdgeHandle]Edge)
	}
	s.next++
	s.edges[s.next] = e
	s.order = append(s.order, s.next)
	return s.next
}

func (s *Scene) RemoveEdge(h EdgeHandle) {
	if _, ok := s.edges[h]; !ok {
		return
	}
	delete(s.edges, h)
	s.order = slices.DeleteFunc(s.order, func(x EdgeHandle) bool { return x == h })
}

func (s *Scene) Clear() {
	s.nodes = nil
	s.edges = nil
	s.order = nil
}

func (s *Scene) SetSize(w, h float64) {
	s.Width, s.Height = w, h
}

func (s *Scene) Nodes() []*dynamo.Particle { return slices.Clone(s.nodes) }

func (s *Scene) Edges() []Edge {
	out := make([]Edge, 0, len(s.order))
	for _, h := range s.order {
		out = append(out, s.edges[h])
	}
	return out
}

func (s *Scene) Edge(h EdgeHandle) (Edge, bool) {
	e, ok := s.edges[h]
	return e, ok
}

// Retarget points edge h at to wherever it pointed at from.
func (s *Scene) Retarget(h EdgeHandle, from, to *dynamo.Particle) {
	e, ok := s.edges[h]
	if !ok {
		return
	}
	if e.Source == from {
		e.Source = to
	}
	if e.Control == from {
		e.Control = to
	}
	if e.Target == from {
		e.Target = to
	}
	s.edges[h] = e
}
