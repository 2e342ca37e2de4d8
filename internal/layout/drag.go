package layout

import (
	"context"

	"github.com/san-kum/forcegraph/internal/datasource"
	"github.com/san-kum/forcegraph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

type dragStage int

const (
	staging dragStage = iota
	committing
	failed
)

// dragState tracks a drag-to-relate from from towards a target descriptor.
// Until the data source answers, the new relation lives under
// dynamo.TempRelation.
type dragState struct {
	stage  dragStage
	from   *dynamo.Particle
	target *dynamo.Particle
	node   *dynamo.Particle
	rel    *dynamo.Particle
}

// Dragging reports whether a drag-to-relate is staged, committing or
// waiting to be cancelled after a failed commit.
func (c *Controller) Dragging() bool { return c.drag != nil }

// BeginDrag stages a new relation hanging from from. The staged node
// follows DragTo; Drop relates it to a target.
func (c *Controller) BeginDrag(from dynamo.ID) error {
	if c.drag != nil {
		return ErrDragInProgress
	}
	m := c.active.Model
	a, ok := m.Get(from)
	if !ok {
		return &dynamo.ParticleError{Op: "drag", ID: from, Wrapped: dynamo.ErrUnknownParticle}
	}
	if a.Kind != dynamo.Descriptor || a.ID.IsTemp() {
		return ErrNotDescriptor
	}

	node := &dynamo.Particle{
		ID:        dynamo.TempNode,
		Kind:      dynamo.Descriptor,
		Pos:       c.jitter(a.Pos),
		Mass:      c.settings.DragMass,
		Draggable: true,
		TargetID:  a.ID,
		Width:     c.settings.NodeWidth,
		Height:    c.settings.NodeHeight,
	}
	if err := c.place(node, false); err != nil {
		return err
	}
	err := c.materializeEdge(EdgeItem{
		Source:   dynamo.TempNode,
		Relation: dynamo.TempRelation,
		Target:   a.ID,
		Type:     datasource.Describes,
	})
	if err != nil {
		_ = c.active.removeParticle(node)
		return err
	}
	rel, _ := m.Get(dynamo.TempRelation)
	if err := m.Select(dynamo.TempNode); err != nil {
		return err
	}
	m.SetDrag(true)
	c.drag = &dragState{stage: staging, from: a, node: node, rel: rel}
	c.logger.Debug("drag started", "from", a.ID)
	return nil
}

// DragTo moves the staged node, or the selected particle when no
// drag-to-relate is staged.
func (c *Controller) DragTo(pos r2.Vec) error {
	m := c.active.Model
	if c.drag == nil {
		sel := m.Selected()
		if sel == nil {
			return ErrNoDrag
		}
		return m.Move(sel.ID, pos)
	}
	if c.drag.stage != staging {
		return ErrDragInProgress
	}
	return m.Move(dynamo.TempNode, pos)
}

// Drop relates the staged relation to target: the staged node is replaced
// by target locally and the association and relation are written to the
// data source. The relation takes its permanent id once the data source
// answers.
func (c *Controller) Drop(target dynamo.ID) error {
	st := c.drag
	if st == nil || st.stage != staging {
		return ErrNoDrag
	}
	ctx := c.active
	b, ok := ctx.Model.Get(target)
	if !ok {
		return &dynamo.ParticleError{Op: "drop", ID: target, Wrapped: dynamo.ErrUnknownParticle}
	}
	if b.Kind != dynamo.Descriptor || b.ID.IsTemp() {
		return ErrNotDescriptor
	}
	if b == st.from {
		return &dynamo.ParticleError{Op: "drop", ID: target, Wrapped: dynamo.ErrSelfPair}
	}

	if _, err := ctx.Model.AddSpring(b.ID, dynamo.TempRelation, c.settings.RelatedSpring); err != nil {
		return err
	}
	retarget := ctx.removeEdges(func(e *edgeRecord) bool { return e.touches(st.node) })
	for _, e := range retarget {
		if e.Source == st.node {
			e.Source = b
		}
		if e.Target == st.node {
			e.Target = b
		}
		ctx.adoptEdge(e)
	}
	if err := ctx.removeParticle(st.node); err != nil {
		return err
	}
	st.node = nil
	st.target = b
	st.stage = committing

	assoc := ""
	if in := ctx.instance(b.ID, st.from.ID); in != nil {
		assoc = in.AssociationID
	}
	source, child := string(b.ID), string(st.from.ID)
	c.dispatch.Dispatch(c.ctx, func(cctx context.Context) func() {
		if assoc == "" {
			a, err := c.backend.AddAssociation(cctx, source, child)
			if err != nil {
				return func() { c.commitFailed("add association", err) }
			}
			assoc = a.ID
		}
		rel, err := c.backend.AddRelation(cctx, assoc, source, child, datasource.Describes)
		if err != nil {
			return func() { c.commitFailed("add relation", err) }
		}
		return func() { c.commitRelation(assoc, rel) }
	})
	c.logger.Debug("drag dropped", "from", st.from.ID, "target", b.ID)
	return nil
}

func (c *Controller) commitFailed(op string, err error) {
	if c.drag != nil {
		c.drag.stage = failed
	}
	c.active.Model.SetDrag(false)
	c.active.Model.Deselect()
	c.fail(&CommitError{Op: op, ID: dynamo.TempRelation, Err: err})
}

// commitRelation rekeys the staged relation and only then records it.
func (c *Controller) commitRelation(assoc string, rel *datasource.Relation) {
	st := c.drag
	ctx := c.active
	id := dynamo.ID(rel.ID)
	if err := ctx.Model.Rekey(dynamo.TempRelation, id); err != nil {
		c.commitFailed("rekey", err)
		return
	}
	c.seen[id] = true

	parent, child := st.target.ID, st.from.ID
	if in := ctx.instance(parent, child); in != nil {
		in.AssociationID = assoc
		in.Relations = append(in.Relations, id)
	} else {
		ctx.instances = append(ctx.instances, &Instance{
			AssociationID: assoc,
			Parent:        parent,
			Child:         child,
			Relations:     []dynamo.ID{id},
		})
	}
	st.from.AddParent(parent)
	st.rel.Draggable = false
	if _, err := ctx.Model.AddMagnet(parent, child, c.settings.Magnet); err != nil {
		c.logger.Debug("relation magnet", "err", err)
	}
	ctx.Model.Reset()
	ctx.Model.SetDrag(false)
	ctx.Model.Deselect()
	c.drag = nil
	c.logger.Info("relation committed", "id", id, "source", parent, "target", child)
}

// CancelDrag removes whatever a drag staged. It is refused while the data
// source is still committing.
func (c *Controller) CancelDrag() error {
	st := c.drag
	if st == nil {
		return ErrNoDrag
	}
	if st.stage == committing {
		return ErrDragInProgress
	}
	ctx := c.active
	for _, p := range []*dynamo.Particle{st.node, st.rel} {
		if p != nil && ctx.Model.Owns(p) {
			if err := ctx.removeParticle(p); err != nil {
				return err
			}
		}
	}
	ctx.Model.SetDrag(false)
	ctx.Model.Deselect()
	ctx.Model.Reset()
	c.drag = nil
	c.logger.Debug("drag cancelled")
	return nil
}
