package layout

import (
	"slices"

	"github.com/san-kum/forcegraph/internal/dynamo"
	"github.com/san-kum/forcegraph/internal/physics"
	"gonum.org/v1/gonum/spatial/r2"
)

// drillState remembers what a drill-down changed so DrillUp can undo it.
type drillState struct {
	root      *dynamo.Particle
	offset    r2.Vec
	wasFixed  bool
	severed   physics.Detached
	edges     []*edgeRecord
	instances []*Instance

	// placed maps each moved particle to its position before and after
	// the move, so an untouched particle returns exactly where it was.
	placed map[*dynamo.Particle][2]r2.Vec
}

// Drilled returns the descriptor the layout is drilled into, if any.
func (c *Controller) Drilled() (dynamo.ID, bool) {
	if c.drill == nil {
		return "", false
	}
	return c.drill.root.ID, true
}

// Toggle drills into id, or back up when id is the drilled descriptor.
func (c *Controller) Toggle(id dynamo.ID) error {
	if c.drill != nil {
		if c.drill.root.ID != id {
			return ErrAlreadyDrilled
		}
		return c.DrillUp()
	}
	return c.DrillDown(id)
}

// DrillDown moves id and its descendants into the background context,
// re-centred on id, and makes that context the active one.
func (c *Controller) DrillDown(id dynamo.ID) error {
	if c.drill != nil {
		return ErrAlreadyDrilled
	}
	if c.drag != nil {
		return ErrDragInProgress
	}
	from, to := c.active, c.background
	root, ok := from.Model.Get(id)
	if !ok {
		return &dynamo.ParticleError{Op: "drill down", ID: id, Wrapped: dynamo.ErrUnknownParticle}
	}
	if root.Kind != dynamo.Descriptor {
		return ErrNotDescriptor
	}

	desc := from.descendants(id)
	closure := make(map[dynamo.ID]bool, len(desc))
	for _, d := range desc {
		closure[d] = true
	}
	moved := make(map[*dynamo.Particle]bool)
	var ids []dynamo.ID
	move := func(id dynamo.ID) {
		if p, ok := from.Model.Get(id); ok && !moved[p] {
			moved[p] = true
			ids = append(ids, id)
		}
	}
	for _, d := range desc {
		move(d)
	}
	for _, in := range from.instances {
		if closure[in.Parent] && closure[in.Child] {
			for _, r := range in.Relations {
				move(r)
			}
		}
	}
	for _, e := range from.edges {
		if e.Control != nil && moved[e.Source] && moved[e.Target] {
			move(e.Control.ID)
		}
	}

	frag, err := from.Model.Extract(ids)
	if err != nil {
		return err
	}
	st := &drillState{
		root:     root,
		offset:   root.Pos,
		wasFixed: root.Fixed,
		severed:  frag.Severed,
		placed:   make(map[*dynamo.Particle][2]r2.Vec, len(frag.Particles)),
	}
	for _, p := range frag.Particles {
		st.placed[p] = [2]r2.Vec{p.Pos}
	}
	if err := c.transfer(frag, from, to, r2.Scale(-1, st.offset), func(p *dynamo.Particle) bool { return moved[p] }); err != nil {
		return err
	}

	st.edges = from.removeEdges(func(e *edgeRecord) bool {
		return moved[e.Source] || moved[e.Target] || (e.Control != nil && moved[e.Control])
	})
	var kept []*Instance
	for _, in := range from.instances {
		switch {
		case closure[in.Parent] && closure[in.Child]:
			to.instances = append(to.instances, in)
		case closure[in.Parent] || closure[in.Child]:
			st.instances = append(st.instances, in)
		default:
			kept = append(kept, in)
		}
	}
	from.instances = kept

	root.Fixed = true
	c.drill = st
	c.active, c.background = to, from
	to.Model.Reset()
	// Draw clamps into the viewport, so the after position is taken once it has run.
	to.Model.Draw(true)
	for _, p := range frag.Particles {
		st.placed[p] = [2]r2.Vec{st.placed[p][0], p.Pos}
	}
	to.View.DrawEdges()
	c.logger.Info("drilled down", "id", id, "particles", len(frag.Particles), "severed", frag.Severed.Len())
	return nil
}

// transfer implants frag into to, shifted by shift, and hands over the view
// state: nodes, and edges whose endpoints all satisfy inside. On failure
// frag goes back where it came from.
func (c *Controller) transfer(frag *physics.Fragment, from, to *Context, shift r2.Vec, inside func(*dynamo.Particle) bool) error {
	for _, p := range frag.Particles {
		p.Pos = r2.Add(p.Pos, shift)
	}
	if err := to.Model.Implant(frag); err != nil {
		for _, p := range frag.Particles {
			p.Pos = r2.Sub(p.Pos, shift)
		}
		if rerr := from.Model.Implant(frag); rerr == nil {
			from.Model.Restore(frag.Severed)
		}
		return err
	}
	for _, p := range frag.Particles {
		p.Drawn = false
		from.View.RemoveNode(p)
		to.View.AddNode(p)
	}
	for _, e := range from.removeEdges(func(e *edgeRecord) bool { return e.within(inside) }) {
		to.adoptEdge(e)
	}
	return nil
}

// DrillUp moves every particle of the drilled context back, restores the
// forces, edges and instances that crossed the boundary and swaps the
// contexts back.
func (c *Controller) DrillUp() error {
	st := c.drill
	if st == nil {
		return ErrNotDrilled
	}
	if c.drag != nil {
		return ErrDragInProgress
	}
	from, to := c.active, c.background

	var ids []dynamo.ID
	from.Model.Each(func(p *dynamo.Particle) bool {
		ids = append(ids, p.ID)
		return true
	})
	frag, err := from.Model.Extract(ids)
	if err != nil {
		return err
	}
	unmoved := make(map[*dynamo.Particle]bool)
	for _, p := range frag.Particles {
		if at, ok := st.placed[p]; ok && at[1] == p.Pos {
			unmoved[p] = true
		}
	}
	if err := c.transfer(frag, from, to, st.offset, func(*dynamo.Particle) bool { return true }); err != nil {
		return err
	}
	for p := range unmoved {
		p.Pos = st.placed[p][0]
	}
	st.severed.Merge(frag.Severed)
	to.instances = append(to.instances, from.instances...)
	from.instances = nil

	dropped := to.Model.Restore(st.severed)
	owned := func(p *dynamo.Particle) bool { return to.Model.Owns(p) }
	lost := 0
	for _, e := range st.edges {
		if e.within(owned) {
			to.adoptEdge(e)
		} else {
			lost++
		}
	}
	live := func(id dynamo.ID) bool {
		_, ok := to.Model.Get(id)
		return ok
	}
	for _, in := range st.instances {
		if live(in.Parent) && live(in.Child) {
			in.Relations = slices.DeleteFunc(in.Relations, func(r dynamo.ID) bool { return !live(r) })
			to.instances = append(to.instances, in)
			continue
		}
		lost++
		for _, r := range in.Relations {
			if p, ok := to.Model.Get(r); ok && to.instanceOf(r) == nil {
				if err := to.removeParticle(p); err != nil {
					return err
				}
			}
		}
	}

	st.root.Fixed = st.wasFixed
	c.drill = nil
	c.active, c.background = to, from
	to.Model.Reset()
	to.Model.Draw(true)
	to.View.DrawEdges()
	if lost > 0 || dropped.Len() > 0 {
		c.logger.Info("discarded links to deleted particles", "forces", dropped.Len(), "links", lost)
	}
	c.logger.Info("drilled up", "id", st.root.ID)
	return nil
}
