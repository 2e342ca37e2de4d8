package layout

import (
	"github.com/san-kum/forcegraph/internal/dynamo"
	"github.com/san-kum/forcegraph/internal/render"
	"gonum.org/v1/gonum/spatial/r2"
)

type ParticleState struct {
	ID    dynamo.ID `json:"id"`
	Kind  string    `json:"kind"`
	Name  string    `json:"name,omitempty"`
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
	Fixed bool      `json:"fixed,omitempty"`
}

type EdgeState struct {
	Source  dynamo.ID `json:"source"`
	Control dynamo.ID `json:"control,omitempty"`
	Target  dynamo.ID `json:"target"`
}

// Snapshot is the active context frozen for storage or export.
type Snapshot struct {
	Context   string          `json:"context"`
	Drilled   dynamo.ID       `json:"drilled,omitempty"`
	Particles []ParticleState `json:"particles"`
	Edges     []EdgeState     `json:"edges"`
	Instances []Instance      `json:"instances"`
}

func (c *Controller) Snapshot() Snapshot {
	ctx := c.active
	s := Snapshot{Context: ctx.Name, Instances: ctx.Instances()}
	if id, ok := c.Drilled(); ok {
		s.Drilled = id
	}
	ctx.Model.Each(func(p *dynamo.Particle) bool {
		s.Particles = append(s.Particles, ParticleState{
			ID:    p.ID,
			Kind:  p.Kind.String(),
			Name:  p.Name,
			X:     p.Pos.X,
			Y:     p.Pos.Y,
			Fixed: p.Fixed,
		})
		return true
	})
	for _, e := range ctx.edges {
		es := EdgeState{Source: e.Source.ID, Target: e.Target.ID}
		if e.Control != nil {
			es.Control = e.Control.ID
		}
		s.Edges = append(s.Edges, es)
	}
	return s
}

// Draw replays the snapshot into r with fresh particles at the saved
// positions. Edges naming a particle the snapshot lacks are skipped.
func (s Snapshot) Draw(r render.Renderer) int {
	ps := make(map[dynamo.ID]*dynamo.Particle, len(s.Particles))
	for _, st := range s.Particles {
		kind, _ := dynamo.ParseKind(st.Kind)
		p := &dynamo.Particle{
			ID:    st.ID,
			Kind:  kind,
			Name:  st.Name,
			Pos:   r2.Vec{X: st.X, Y: st.Y},
			Fixed: st.Fixed,
		}
		ps[st.ID] = p
		r.AddNode(p)
		r.DrawNode(p, true)
	}
	skipped := 0
	for _, e := range s.Edges {
		src, okS := ps[e.Source]
		tgt, okT := ps[e.Target]
		if !okS || !okT {
			skipped++
			continue
		}
		edge := render.Edge{Source: src, Target: tgt}
		if e.Control != "" {
			c, ok := ps[e.Control]
			if !ok {
				skipped++
				continue
			}
			edge.Control = c
		}
		r.AddEdge(edge)
	}
	r.DrawEdges()
	return skipped
}

type Stats struct {
	Live            int
	Springs         int
	Magnets         int
	Instances       int
	QueuedNodes     int
	QueuedEdges     int
	QueuedInstances int
	Failures        int
	Drilled         bool
	Dragging        bool
}

func (c *Controller) Stats() Stats {
	m := c.active.Model
	return Stats{
		Live:            m.Live(),
		Springs:         len(m.Springs()),
		Magnets:         len(m.Magnets()),
		Instances:       len(c.active.instances),
		QueuedNodes:     c.nodes.len(),
		QueuedEdges:     c.edges.len(),
		QueuedInstances: c.instances.len(),
		Failures:        c.failures,
		Drilled:         c.drill != nil,
		Dragging:        c.drag != nil,
	}
}
