package layout

import (
	"slices"

	"github.com/san-kum/forcegraph/internal/dynamo"
	"github.com/san-kum/forcegraph/internal/physics"
	"github.com/san-kum/forcegraph/internal/render"
)

// Instance records that Child is related from Parent under one
// association, through one or more relation particles.
type Instance struct {
	AssociationID string      `json:"association_id"`
	Parent        dynamo.ID   `json:"parent"`
	Child         dynamo.ID   `json:"child"`
	Relations     []dynamo.ID `json:"relations"`
}

func (in *Instance) hasRelation(id dynamo.ID) bool {
	return slices.Contains(in.Relations, id)
}

type edgeRecord struct {
	render.Edge
	handle render.EdgeHandle
}

func (e *edgeRecord) touches(p *dynamo.Particle) bool {
	return e.Source == p || e.Control == p || e.Target == p
}

// within reports whether every endpoint of e satisfies in.
func (e *edgeRecord) within(in func(*dynamo.Particle) bool) bool {
	if !in(e.Source) || !in(e.Target) {
		return false
	}
	return e.Control == nil || in(e.Control)
}

// Context is one graph view: a particle model, the renderer showing it,
// and the instances and edges laid out in it.
type Context struct {
	Name  string
	Model *physics.Model
	View  render.Renderer

	instances []*Instance
	edges     []*edgeRecord
}

func newContext(name string, model *physics.Model, view render.Renderer) *Context {
	model.SetDrawer(view)
	return &Context{Name: name, Model: model, View: view}
}

func (c *Context) Instances() []Instance {
	out := make([]Instance, 0, len(c.instances))
	for _, in := range c.instances {
		cp := *in
		cp.Relations = slices.Clone(in.Relations)
		out = append(out, cp)
	}
	return out
}

func (c *Context) instance(parent, child dynamo.ID) *Instance {
	for _, in := range c.instances {
		if in.Parent == parent && in.Child == child {
			return in
		}
	}
	return nil
}

func (c *Context) instanceOf(relation dynamo.ID) *Instance {
	for _, in := range c.instances {
		if in.hasRelation(relation) {
			return in
		}
	}
	return nil
}

func (c *Context) addEdge(e render.Edge) *edgeRecord {
	rec := &edgeRecord{Edge: e, handle: c.View.AddEdge(e)}
	c.edges = append(c.edges, rec)
	return rec
}

func (c *Context) adoptEdge(rec *edgeRecord) {
	rec.handle = c.View.AddEdge(rec.Edge)
	c.edges = append(c.edges, rec)
}

// removeEdges drops every edge matching fn from the view and returns them.
func (c *Context) removeEdges(fn func(*edgeRecord) bool) []*edgeRecord {
	var out []*edgeRecord
	c.edges = slices.DeleteFunc(c.edges, func(e *edgeRecord) bool {
		if !fn(e) {
			return false
		}
		c.View.RemoveEdge(e.handle)
		out = append(out, e)
		return true
	})
	return out
}

// removeParticle takes p out of the model and the view along with every
// edge touching it.
func (c *Context) removeParticle(p *dynamo.Particle) error {
	c.removeEdges(func(e *edgeRecord) bool { return e.touches(p) })
	c.View.RemoveNode(p)
	return c.Model.RemoveParticle(p.ID)
}

// descendants walks instances depth first from root. Instances are scanned
// newest first and the first visit of a descriptor wins.
func (c *Context) descendants(root dynamo.ID) []dynamo.ID {
	visited := map[dynamo.ID]bool{root: true}
	order := []dynamo.ID{root}
	var walk func(id dynamo.ID)
	walk = func(id dynamo.ID) {
		for i := len(c.instances) - 1; i >= 0; i-- {
			in := c.instances[i]
			if in.Parent != id || visited[in.Child] {
				continue
			}
			visited[in.Child] = true
			order = append(order, in.Child)
			walk(in.Child)
		}
	}
	walk(root)
	return order
}
