package layout

import (
	"context"
	"slices"

	"github.com/san-kum/forcegraph/internal/datasource"
	"github.com/san-kum/forcegraph/internal/dynamo"
)

// Delete removes id from the active context. A descriptor takes every
// descendant with it that no surviving descriptor still holds as a child;
// each removed descriptor is dropped from the data source. A relation is
// removed only while its instance keeps another one.
func (c *Controller) Delete(id dynamo.ID) error {
	if c.drag != nil {
		return ErrDragInProgress
	}
	p, ok := c.active.Model.Get(id)
	if !ok {
		return &dynamo.ParticleError{Op: "delete", ID: id, Wrapped: dynamo.ErrUnknownParticle}
	}
	if p.Kind == dynamo.Relation {
		return c.deleteRelation(p)
	}
	if id == datasource.RootID || (c.drill != nil && c.drill.root == p) {
		return ErrRoot
	}

	ctx := c.active
	doomed := c.deletionSet(id)

	var relations []dynamo.ID
	for _, e := range ctx.edges {
		if e.Control != nil && (doomed[e.Source.ID] || doomed[e.Target.ID]) {
			relations = append(relations, e.Control.ID)
		}
	}
	ctx.instances = slices.DeleteFunc(ctx.instances, func(in *Instance) bool {
		if !doomed[in.Parent] && !doomed[in.Child] {
			return false
		}
		if child, ok := ctx.Model.Get(in.Child); ok && !doomed[in.Child] {
			child.RemoveParent(in.Parent)
		}
		relations = append(relations, in.Relations...)
		return true
	})

	var descriptors []dynamo.ID
	ctx.Model.Each(func(q *dynamo.Particle) bool {
		if doomed[q.ID] {
			descriptors = append(descriptors, q.ID)
		}
		return true
	})
	removed := 0
	for _, r := range relations {
		if _, live := ctx.Model.Get(r); !live || ctx.instanceOf(r) != nil {
			continue
		}
		if err := c.remove(r); err != nil {
			return err
		}
		removed++
	}
	for _, d := range descriptors {
		if err := c.remove(d); err != nil {
			return err
		}
		c.dropDescriptor(d)
	}
	ctx.Model.Reset()
	c.logger.Info("deleted", "id", id, "descriptors", len(descriptors), "relations", removed)
	return nil
}

// deletionSet walks down from id. A child joins the set only when every
// descriptor holding it is already in the set.
func (c *Controller) deletionSet(id dynamo.ID) map[dynamo.ID]bool {
	ctx := c.active
	set := map[dynamo.ID]bool{id: true}
	stack := []dynamo.ID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, in := range ctx.instances {
			if in.Parent != cur || set[in.Child] {
				continue
			}
			child, ok := ctx.Model.Get(in.Child)
			if !ok {
				continue
			}
			orphaned := true
			for _, parent := range child.Parents {
				if !set[parent] {
					orphaned = false
					break
				}
			}
			if orphaned {
				set[in.Child] = true
				stack = append(stack, in.Child)
			}
		}
	}
	return set
}

// remove takes a particle out of the active context for good.
func (c *Controller) remove(id dynamo.ID) error {
	p, ok := c.active.Model.Get(id)
	if !ok {
		return nil
	}
	c.deleted[id] = true
	delete(c.known, id)
	return c.active.removeParticle(p)
}

func (c *Controller) dropDescriptor(id dynamo.ID) {
	if id.IsTemp() {
		return
	}
	c.call("drop descriptor", id, func(ctx context.Context) (func(), error) {
		return nil, c.backend.DropDescriptor(ctx, string(id))
	})
}

func (c *Controller) deleteRelation(p *dynamo.Particle) error {
	in := c.active.instanceOf(p.ID)
	if in == nil || len(in.Relations) < 2 {
		return ErrLastRelation
	}
	in.Relations = slices.DeleteFunc(in.Relations, func(r dynamo.ID) bool { return r == p.ID })
	if err := c.remove(p.ID); err != nil {
		return err
	}
	c.active.Model.Reset()
	return nil
}
