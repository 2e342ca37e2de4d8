// Package layout is the graph navigation controller. It turns descriptors
// and relations from a data source into particles, springs and magnets,
// admits them one per queue per tick once their endpoints exist, and
// implements drilling into a subgraph, reference-counted deletion and
// drag-to-relate.
//
// A Controller is not safe for concurrent use. Every method must run on the
// scheduler goroutine; data-source calls are dispatched elsewhere and their
// completions are posted back.
package layout

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/san-kum/forcegraph/internal/datasource"
	"github.com/san-kum/forcegraph/internal/dynamo"
	"github.com/san-kum/forcegraph/internal/physics"
	"github.com/san-kum/forcegraph/internal/render"
	"gonum.org/v1/gonum/spatial/r2"
)

// queuedDelay is the tick delay while any queue still holds items.
const queuedDelay = time.Millisecond

// Dispatcher runs data-source calls off the loop and wakes it.
type Dispatcher interface {
	dynamo.Waker
	Dispatch(ctx context.Context, call func(context.Context) func())
}

type Controller struct {
	backend  datasource.Backend
	dispatch Dispatcher
	settings Settings
	logger   *slog.Logger
	observer Observer
	onError  func(error)
	rng      *rand.Rand

	newIntegrator func() dynamo.Integrator
	modelOpts     []physics.Option
	positions     map[dynamo.ID]r2.Vec

	active, background *Context
	drill              *drillState
	drag               *dragState

	nodes     queue[NodeItem]
	edges     queue[EdgeItem]
	instances queue[Instance]

	// known holds every descriptor id ever enqueued, requested the ids
	// asked of the data source, seen the relation ids already enqueued.
	known     map[dynamo.ID]bool
	requested map[dynamo.ID]bool
	seen      map[dynamo.ID]bool
	deleted   map[dynamo.ID]bool
	// waiting parks associations until their source descriptor is known.
	waiting map[dynamo.ID][]datasource.Association

	ctx      context.Context
	failures int
	width    float64
	height   float64
}

// New builds a controller drawing into front, with back as the renderer of
// the drilled-down context.
func New(backend datasource.Backend, d Dispatcher, front, back render.Renderer, opts ...Option) *Controller {
	c := &Controller{
		backend:       backend,
		dispatch:      d,
		settings:      DefaultSettings(),
		logger:        slog.Default(),
		newIntegrator: defaultIntegrator,
		known:         make(map[dynamo.ID]bool),
		requested:     make(map[dynamo.ID]bool),
		seen:          make(map[dynamo.ID]bool),
		deleted:       make(map[dynamo.ID]bool),
		waiting:       make(map[dynamo.ID][]datasource.Association),
		ctx:           context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.rng = rand.New(rand.NewPCG(c.settings.Seed, c.settings.Seed^0x9e3779b97f4a7c15))
	c.active = newContext("graph", c.newModel(), front)
	c.background = newContext("drill", c.newModel(), back)
	return c
}

func (c *Controller) newModel() *physics.Model {
	opts := append([]physics.Option{
		physics.WithWaker(c.dispatch),
		physics.WithLogger(c.logger),
	}, c.modelOpts...)
	return physics.New(c.newIntegrator(), opts...)
}

// Active returns the context currently shown and ticked.
func (c *Controller) Active() *Context { return c.active }

func (c *Controller) Background() *Context { return c.background }

// LastTick describes the active model's last tick.
func (c *Controller) LastTick() dynamo.TickStats { return c.active.Model.LastTick() }

// Start requests the root descriptor. ctx is handed to every later
// data-source call.
func (c *Controller) Start(ctx context.Context) {
	c.ctx = ctx
	c.call("root", datasource.RootID, func(ctx context.Context) (func(), error) {
		n, err := c.backend.Root(ctx)
		if err != nil {
			return nil, err
		}
		return func() { c.Receive(n) }, nil
	})
}

// call dispatches fn and runs its completion on the loop, or reports its
// error as a CommitError for op and id.
func (c *Controller) call(op string, id dynamo.ID, fn func(context.Context) (func(), error)) {
	c.dispatch.Dispatch(c.ctx, func(ctx context.Context) func() {
		done, err := fn(ctx)
		if err != nil {
			return func() { c.fail(&CommitError{Op: op, ID: id, Err: err}) }
		}
		return done
	})
}

func (c *Controller) fail(err error) {
	c.failures++
	op := "unknown"
	var ce *CommitError
	if errors.As(err, &ce) {
		op = ce.Op
		c.logger.Warn("data source call failed", "op", ce.Op, "id", ce.ID, "err", ce.Err)
	} else {
		c.logger.Warn("layout operation failed", "err", err)
	}
	if c.observer != nil {
		c.observer.Failed(op)
	}
	if c.onError != nil {
		c.onError(err)
	}
}

// Receive takes a descriptor delivered by the data source: the node itself,
// the relations linking it to its sources and, asynchronously, its targets.
func (c *Controller) Receive(n *datasource.Node) {
	id := dynamo.ID(n.ID)
	if c.deleted[id] {
		c.logger.Debug("ignoring deleted descriptor", "id", id)
		return
	}
	if !c.known[id] {
		c.EnqueueNode(NodeItem{
			ID:       id,
			ParentID: dynamo.ID(n.ParentID),
			Name:     n.DisplayName(),
			Fixed:    n.Fixed || n.IsRoot(),
		})
	}
	for _, a := range n.ParentRelations {
		c.receiveAssociation(a)
	}
	for _, t := range n.Targets {
		c.request(id, dynamo.ID(t))
	}
}

func (c *Controller) request(parent, id dynamo.ID) {
	if c.known[id] || c.requested[id] || c.deleted[id] {
		return
	}
	c.requested[id] = true
	c.call("descriptor", id, func(ctx context.Context) (func(), error) {
		n, err := c.backend.Descriptor(ctx, string(parent), string(id))
		if err != nil {
			return nil, err
		}
		return func() { c.Receive(n) }, nil
	})
}

func (c *Controller) receiveAssociation(a datasource.Association) {
	src := dynamo.ID(a.SourceID)
	if !c.known[src] {
		c.waiting[src] = append(c.waiting[src], a)
		return
	}
	in := Instance{
		AssociationID: a.ID,
		Parent:        src,
		Child:         dynamo.ID(a.TargetID),
	}
	for _, r := range a.Relations {
		rid := dynamo.ID(r.ID)
		if c.seen[rid] {
			continue
		}
		c.seen[rid] = true
		c.EnqueueEdge(EdgeItem{
			Source:   dynamo.ID(r.SourceID),
			Relation: rid,
			Target:   dynamo.ID(r.TargetID),
			Type:     r.Type,
		})
		in.Relations = append(in.Relations, rid)
	}
	if len(in.Relations) > 0 {
		c.EnqueueInstance(in)
	}
}

func (c *Controller) EnqueueNode(it NodeItem) {
	c.known[it.ID] = true
	c.nodes.push(it)
	c.queued("node", c.nodes.len())
	if parked, ok := c.waiting[it.ID]; ok {
		delete(c.waiting, it.ID)
		for _, a := range parked {
			c.receiveAssociation(a)
		}
	}
}

func (c *Controller) EnqueueEdge(it EdgeItem) {
	c.edges.push(it)
	c.queued("edge", c.edges.len())
}

func (c *Controller) EnqueueInstance(in Instance) {
	c.instances.push(in)
	c.queued("instance", c.instances.len())
}

func (c *Controller) queued(kind string, depth int) {
	if c.observer != nil {
		c.observer.Queued(kind, depth)
	}
	c.dispatch.Wake()
}

// Pending returns the number of queued items of every kind.
func (c *Controller) Pending() int {
	return c.nodes.len() + c.edges.len() + c.instances.len()
}

// Update ticks the active model and then admits at most one item from each
// queue. The scheduler keeps running while anything is queued.
func (c *Controller) Update() (time.Duration, bool) {
	delay, running := c.active.Model.Update()
	c.active.View.DrawEdges()

	admitted := c.admit()
	if admitted || c.Pending() > 0 {
		if !running || delay > queuedDelay {
			delay = queuedDelay
		}
		running = true
	}
	return delay, running
}

func (c *Controller) admit() bool {
	admitted := false
	if it, ok := c.nodes.head(); ok {
		c.nodes.pop()
		if c.deleted[it.ID] {
			c.logger.Debug("node discarded", "id", it.ID)
		} else if err := c.materializeNode(it); err != nil {
			c.logger.Debug("node not admitted", "id", it.ID, "err", err)
		} else {
			admitted = true
			c.admitted("node", c.nodes.len())
		}
	}
	if it, ok := c.edges.head(); ok {
		switch {
		case c.deleted[it.Source] || c.deleted[it.Target] || c.deleted[it.Relation]:
			c.edges.pop()
		case c.has(it.Source) && c.has(it.Target):
			c.edges.pop()
			if err := c.materializeEdge(it); err != nil {
				c.logger.Debug("edge not admitted", "id", it.Relation, "err", err)
			} else {
				admitted = true
				c.admitted("edge", c.edges.len())
			}
		}
	}
	if in, ok := c.instances.head(); ok {
		switch {
		case c.deleted[in.Parent] || c.deleted[in.Child]:
			c.instances.pop()
		case c.instanceReady(in):
			c.instances.pop()
			c.materializeInstance(in)
			admitted = true
			c.admitted("instance", c.instances.len())
		}
	}
	return admitted
}

func (c *Controller) admitted(kind string, depth int) {
	if c.observer != nil {
		c.observer.Admitted(kind)
		c.observer.Queued(kind, depth)
	}
}

func (c *Controller) has(id dynamo.ID) bool {
	_, ok := c.active.Model.Get(id)
	return ok
}

func (c *Controller) instanceReady(in Instance) bool {
	if !c.has(in.Parent) || !c.has(in.Child) {
		return false
	}
	for _, r := range in.Relations {
		if !c.has(r) && !c.deleted[r] {
			return false
		}
	}
	return true
}

func (c *Controller) jitter(at r2.Vec) r2.Vec {
	j := c.settings.Jitter
	return r2.Vec{
		X: at.X + (c.rng.Float64()*2-1)*j,
		Y: at.Y + (c.rng.Float64()*2-1)*j,
	}
}

func (c *Controller) exists(id dynamo.ID) bool {
	if _, ok := c.active.Model.Get(id); ok {
		return true
	}
	_, ok := c.background.Model.Get(id)
	return ok
}

func (c *Controller) materializeNode(it NodeItem) error {
	if c.exists(it.ID) {
		return &dynamo.ParticleError{Op: "admit", ID: it.ID, Wrapped: dynamo.ErrDuplicateParticle}
	}
	parent, hasParent := c.active.Model.Get(it.ParentID)
	var anchor r2.Vec
	if hasParent {
		anchor = parent.Pos
	}
	p := &dynamo.Particle{
		ID:     it.ID,
		Kind:   dynamo.Descriptor,
		Name:   it.Name,
		Pos:    c.jitter(anchor),
		Mass:   c.settings.DescriptorMass,
		Fixed:  it.Fixed,
		Width:  c.settings.NodeWidth,
		Height: c.settings.NodeHeight,
	}
	if at, ok := c.positions[it.ID]; ok {
		p.Pos = at
	}
	if err := c.place(p, it.ID != dynamo.TempNode); err != nil {
		return err
	}
	if hasParent {
		if _, err := c.active.Model.AddSpring(parent.ID, p.ID, c.settings.ParentSpring); err != nil {
			return err
		}
		c.active.addEdge(render.Edge{Source: parent, Target: p})
	}
	c.logger.Debug("descriptor admitted", "id", p.ID, "parent", it.ParentID)
	return nil
}

// place adds p to the active model and view, with magnets against every
// other live particle when magnetize is set.
func (c *Controller) place(p *dynamo.Particle, magnetize bool) error {
	m := c.active.Model
	if err := m.AddParticle(p); err != nil {
		return err
	}
	c.active.View.AddNode(p)
	if !magnetize {
		return nil
	}
	var others []dynamo.ID
	m.Each(func(q *dynamo.Particle) bool {
		if q != p && q.ID != dynamo.TempNode {
			others = append(others, q.ID)
		}
		return true
	})
	for _, id := range others {
		if _, err := m.AddMagnet(id, p.ID, c.settings.Magnet); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) materializeEdge(it EdgeItem) error {
	if c.exists(it.Relation) {
		return &dynamo.ParticleError{Op: "admit", ID: it.Relation, Wrapped: dynamo.ErrDuplicateParticle}
	}
	m := c.active.Model
	src, _ := m.Get(it.Source)
	dst, _ := m.Get(it.Target)
	mid := r2.Scale(0.5, r2.Add(src.Pos, dst.Pos))
	rel := &dynamo.Particle{
		ID:        it.Relation,
		Kind:      dynamo.Relation,
		Name:      it.Type,
		Pos:       c.jitter(mid),
		Mass:      c.settings.RelationMass,
		Draggable: it.Relation == dynamo.TempRelation,
	}
	if err := c.place(rel, true); err != nil {
		return err
	}
	if _, err := m.AddSpring(src.ID, rel.ID, c.settings.RelatedSpring); err != nil {
		return err
	}
	if _, err := m.AddSpring(rel.ID, dst.ID, c.settings.RelatedSpring); err != nil {
		return err
	}
	c.active.addEdge(render.Edge{Source: src, Control: rel, Target: dst})
	c.logger.Debug("relation admitted", "id", rel.ID, "source", src.ID, "target", dst.ID)
	return nil
}

func (c *Controller) materializeInstance(in Instance) {
	ctx := c.active
	var live []dynamo.ID
	for _, r := range in.Relations {
		if c.has(r) {
			live = append(live, r)
		}
	}
	if cur := ctx.instance(in.Parent, in.Child); cur != nil {
		for _, r := range live {
			if !cur.hasRelation(r) {
				cur.Relations = append(cur.Relations, r)
			}
		}
		if in.AssociationID != "" {
			cur.AssociationID = in.AssociationID
		}
	} else {
		in.Relations = live
		ctx.instances = append(ctx.instances, &in)
	}
	child, _ := ctx.Model.Get(in.Child)
	child.AddParent(in.Parent)
	if _, err := ctx.Model.AddMagnet(in.Parent, in.Child, c.settings.Magnet); err != nil {
		c.logger.Debug("instance magnet", "parent", in.Parent, "child", in.Child, "err", err)
	}
}

// Resize sets the viewport of both contexts.
func (c *Controller) Resize(w, h float64) {
	c.width, c.height = w, h
	for _, ctx := range []*Context{c.active, c.background} {
		ctx.Model.SetBounds(w, h)
		ctx.View.SetSize(w, h)
	}
	c.active.Model.Draw(true)
	c.active.View.DrawEdges()
	c.dispatch.Wake()
}

// Select pins a descriptor under the pointer so DragTo moves it.
func (c *Controller) Select(id dynamo.ID) error {
	return c.active.Model.Select(id)
}

// Release lets go of the selected particle and restarts the layout.
func (c *Controller) Release() {
	if c.drag != nil {
		return
	}
	c.active.Model.Deselect()
	c.active.Model.Reset()
}

// AddChild asks the data source for a new descriptor under parent. The
// result is received like any other descriptor.
func (c *Controller) AddChild(parent dynamo.ID) error {
	p, ok := c.active.Model.Get(parent)
	if !ok {
		return &dynamo.ParticleError{Op: "add child", ID: parent, Wrapped: dynamo.ErrUnknownParticle}
	}
	if p.Kind != dynamo.Descriptor || p.ID.IsTemp() {
		return ErrNotDescriptor
	}
	c.call("add descriptor", parent, func(ctx context.Context) (func(), error) {
		n, err := c.backend.AddDescriptor(ctx, string(parent))
		if err != nil {
			return nil, err
		}
		return func() { c.Receive(n) }, nil
	})
	return nil
}

// Reason asks the data source to reason over id and everything below it.
func (c *Controller) Reason(id dynamo.ID) error {
	p, ok := c.active.Model.Get(id)
	if !ok {
		return &dynamo.ParticleError{Op: "reason", ID: id, Wrapped: dynamo.ErrUnknownParticle}
	}
	if p.Kind != dynamo.Descriptor {
		return ErrNotDescriptor
	}
	for _, d := range c.active.descendants(id) {
		c.call("reason", d, func(ctx context.Context) (func(), error) {
			return nil, c.backend.Reason(ctx, string(d))
		})
	}
	return nil
}
