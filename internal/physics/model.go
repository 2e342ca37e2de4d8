package physics

import (
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/san-kum/forcegraph/internal/dynamo"
	"github.com/tidwall/btree"
	"gonum.org/v1/gonum/spatial/r2"
)

// Windows bounds how long new forces stay in the active window.
type Windows struct {
	SpringAge int `yaml:"spring_age" toml:"spring_age" json:"spring_age"`
	MagnetAge int `yaml:"magnet_age" toml:"magnet_age" json:"magnet_age"`
	MagnetCap int `yaml:"magnet_cap" toml:"magnet_cap" json:"magnet_cap"`
}

func DefaultWindows() Windows {
	return Windows{SpringAge: 20, MagnetAge: 50, MagnetCap: 50}
}

type slotItem struct {
	id   dynamo.ID
	slot int
}

func slotLess(a, b slotItem) bool { return a.id < b.id }

type bounds struct {
	set                      bool
	left, right, top, bottom float64
	skewX, skewY             float64
}

type Model struct {
	slots []*dynamo.Particle
	free  []int
	index *btree.BTreeG[slotItem]

	springs       []*Spring
	springIndex   map[pair]*Spring
	activeSprings []*Spring

	magnets       []*Magnet
	magnetIndex   map[pair]*Magnet
	activeMagnets []*Magnet

	integrator dynamo.Integrator
	dt         float64
	windows    Windows
	throttle   Throttle
	drawer     dynamo.Drawer
	waker      dynamo.Waker
	logger     *slog.Logger

	bounds   bounds
	drag     bool
	selected *dynamo.Particle

	ticks int
	last  dynamo.TickStats
}

type Option func(*Model)

func WithDrawer(d dynamo.Drawer) Option    { return func(m *Model) { m.drawer = d } }
func WithWaker(w dynamo.Waker) Option      { return func(m *Model) { m.waker = w } }
func WithThrottle(t Throttle) Option       { return func(m *Model) { m.throttle = t } }
func WithWindows(w Windows) Option         { return func(m *Model) { m.windows = w } }
func WithDt(dt float64) Option             { return func(m *Model) { m.dt = dt } }
func WithLogger(l *slog.Logger) Option     { return func(m *Model) { m.logger = l } }
func WithSkew(skewX, skewY float64) Option { return func(m *Model) { m.bounds.skewX, m.bounds.skewY = skewX, skewY } }

func New(integrator dynamo.Integrator, opts ...Option) *Model {
	m := &Model{
		index:       btree.NewBTreeGOptions(slotLess, btree.Options{NoLocks: true}),
		springIndex: make(map[pair]*Spring),
		magnetIndex: make(map[pair]*Magnet),
		integrator:  integrator,
		dt:          1,
		windows:     DefaultWindows(),
		throttle:    DefaultThrottle(),
		logger:      slog.Default(),
		bounds:      bounds{skewX: 1, skewY: 1},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) SetDrawer(d dynamo.Drawer) { m.drawer = d }
func (m *Model) SetWaker(w dynamo.Waker)   { m.waker = w }

func (m *Model) wake() {
	if m.waker != nil {
		m.waker.Wake()
	}
}

// Len and At expose the arena to the integrator.
func (m *Model) Len() int                  { return len(m.slots) }
func (m *Model) At(i int) *dynamo.Particle { return m.slots[i] }

func (m *Model) Movable(p *dynamo.Particle) bool {
	return !p.Fixed && !p.Selected && (!m.drag || p.Draggable)
}

func (m *Model) SetDrag(drag bool) { m.drag = drag }
func (m *Model) Dragging() bool    { return m.drag }

// Live returns the number of particles currently in the model.
func (m *Model) Live() int { return m.index.Len() }

func (m *Model) lookup(id dynamo.ID) (*dynamo.Particle, int, bool) {
	it, ok := m.index.Get(slotItem{id: id})
	if !ok {
		return nil, -1, false
	}
	return m.slots[it.slot], it.slot, true
}

func (m *Model) Get(id dynamo.ID) (*dynamo.Particle, bool) {
	p, _, ok := m.lookup(id)
	return p, ok
}

// Owns reports whether p itself, not just a particle with its id, lives here.
func (m *Model) Owns(p *dynamo.Particle) bool {
	q, ok := m.Get(p.ID)
	return ok && q == p
}

// Each visits live particles in id order until fn returns false.
func (m *Model) Each(fn func(p *dynamo.Particle) bool) {
	m.index.Scan(func(it slotItem) bool {
		return fn(m.slots[it.slot])
	})
}

func (m *Model) Particles() []*dynamo.Particle {
	out := make([]*dynamo.Particle, 0, m.Live())
	m.Each(func(p *dynamo.Particle) bool {
		out = append(out, p)
		return true
	})
	return out
}

func (m *Model) AddParticle(p *dynamo.Particle) error {
	if _, ok := m.Get(p.ID); ok {
		return &dynamo.ParticleError{Op: "add", ID: p.ID, Wrapped: dynamo.ErrDuplicateParticle}
	}
	m.place(p)
	m.wake()
	return nil
}

func (m *Model) place(p *dynamo.Particle) {
	slot := len(m.slots)
	if n := len(m.free); n > 0 {
		slot = m.free[n-1]
		m.free = m.free[:n-1]
		m.slots[slot] = p
	} else {
		m.slots = append(m.slots, p)
	}
	m.index.Set(slotItem{id: p.ID, slot: slot})
}

func (m *Model) unplace(p *dynamo.Particle, slot int) {
	m.slots[slot] = nil
	m.free = append(m.free, slot)
	m.index.Delete(slotItem{id: p.ID})
	if m.selected == p {
		m.selected = nil
	}
}

func (m *Model) RemoveParticle(id dynamo.ID) error {
	p, slot, ok := m.lookup(id)
	if !ok {
		return &dynamo.ParticleError{Op: "remove", ID: id, Wrapped: dynamo.ErrUnknownParticle}
	}
	m.dropForces(p)
	m.unplace(p, slot)
	p.Drawn = false
	m.wake()
	return nil
}

// DropForces detaches every spring and magnet touching id.
func (m *Model) DropForces(id dynamo.ID) error {
	p, ok := m.Get(id)
	if !ok {
		return &dynamo.ParticleError{Op: "drop forces", ID: id, Wrapped: dynamo.ErrUnknownParticle}
	}
	m.dropForces(p)
	return nil
}

func (m *Model) dropForces(p *dynamo.Particle) {
	m.springs = slices.DeleteFunc(m.springs, func(s *Spring) bool {
		if !s.Touches(p) {
			return false
		}
		s.detach()
		delete(m.springIndex, pair{s.A, s.B})
		return true
	})
	m.activeSprings = slices.DeleteFunc(m.activeSprings, func(s *Spring) bool { return s.Touches(p) })

	m.magnets = slices.DeleteFunc(m.magnets, func(g *Magnet) bool {
		if !g.Touches(p) {
			return false
		}
		g.detach()
		delete(m.magnetIndex, pair{g.A, g.B})
		return true
	})
	m.activeMagnets = slices.DeleteFunc(m.activeMagnets, func(g *Magnet) bool { return g.Touches(p) })
}

func (m *Model) endpoints(op string, a, b dynamo.ID) (*dynamo.Particle, *dynamo.Particle, error) {
	if a == b {
		return nil, nil, &dynamo.ParticleError{Op: op, ID: a, Wrapped: dynamo.ErrSelfPair}
	}
	pa, ok := m.Get(a)
	if !ok {
		return nil, nil, &dynamo.ParticleError{Op: op, ID: a, Wrapped: dynamo.ErrUnknownParticle}
	}
	pb, ok := m.Get(b)
	if !ok {
		return nil, nil, &dynamo.ParticleError{Op: op, ID: b, Wrapped: dynamo.ErrUnknownParticle}
	}
	return pa, pb, nil
}

func (m *Model) springBetween(a, b *dynamo.Particle) *Spring {
	if s, ok := m.springIndex[pair{a, b}]; ok {
		return s
	}
	return m.springIndex[pair{b, a}]
}

func (m *Model) magnetBetween(a, b *dynamo.Particle) *Magnet {
	if g, ok := m.magnetIndex[pair{a, b}]; ok {
		return g
	}
	return m.magnetIndex[pair{b, a}]
}

// AddSpring connects a and b. An existing spring between the pair, in
// either orientation, is returned unchanged.
func (m *Model) AddSpring(a, b dynamo.ID, params SpringParams) (*Spring, error) {
	pa, pb, err := m.endpoints("spring", a, b)
	if err != nil {
		return nil, err
	}
	if s := m.springBetween(pa, pb); s != nil {
		return s, nil
	}
	s := &Spring{A: pa, B: pb, SpringParams: params}
	m.springs = append(m.springs, s)
	m.activeSprings = append(m.activeSprings, s)
	m.springIndex[pair{pa, pb}] = s
	m.wake()
	return s, nil
}

func (m *Model) AddMagnet(a, b dynamo.ID, params MagnetParams) (*Magnet, error) {
	pa, pb, err := m.endpoints("magnet", a, b)
	if err != nil {
		return nil, err
	}
	if g := m.magnetBetween(pa, pb); g != nil {
		return g, nil
	}
	g := &Magnet{A: pa, B: pb, MagnetParams: params}
	m.magnets = append(m.magnets, g)
	m.magnetIndex[pair{pa, pb}] = g
	m.activateMagnet(g)
	m.wake()
	return g, nil
}

func (m *Model) activateMagnet(g *Magnet) {
	m.activeMagnets = append(m.activeMagnets, g)
	if m.windows.MagnetCap > 0 && len(m.activeMagnets) > m.windows.MagnetCap {
		m.activeMagnets = m.activeMagnets[1:]
	}
}

func (m *Model) SpringBetween(a, b dynamo.ID) *Spring {
	pa, pb, err := m.endpoints("spring", a, b)
	if err != nil {
		return nil
	}
	return m.springBetween(pa, pb)
}

func (m *Model) MagnetBetween(a, b dynamo.ID) *Magnet {
	pa, pb, err := m.endpoints("magnet", a, b)
	if err != nil {
		return nil
	}
	return m.magnetBetween(pa, pb)
}

func (m *Model) Springs() []*Spring { return slices.Clone(m.springs) }
func (m *Model) Magnets() []*Magnet { return slices.Clone(m.magnets) }

func (m *Model) ActiveSprings() int { return len(m.activeSprings) }
func (m *Model) ActiveMagnets() int { return len(m.activeMagnets) }

// ApplyForces runs one force pass. Members of an active window are applied
// both in the window pass and in the full pass; with delta bookkeeping the
// second application only adds what changed in between.
func (m *Model) ApplyForces() {
	for _, s := range m.activeSprings {
		s.apply()
		s.Age++
	}
	if len(m.activeSprings) > 0 && m.activeSprings[0].Age > m.windows.SpringAge {
		m.activeSprings = m.activeSprings[1:]
	}
	for _, s := range m.springs {
		s.apply()
	}

	for _, g := range m.activeMagnets {
		g.apply()
		g.Age++
	}
	if len(m.activeMagnets) > 0 && m.activeMagnets[0].Age > m.windows.MagnetAge {
		m.activeMagnets = m.activeMagnets[1:]
	}
	for _, g := range m.magnets {
		g.apply()
	}
}

// Reset zeroes every accumulated and remembered force and restarts a
// settled scheduler.
func (m *Model) Reset() {
	for _, s := range m.springs {
		s.force = r2.Vec{}
	}
	for _, g := range m.magnets {
		g.force = r2.Vec{}
	}
	for _, p := range m.slots {
		if p != nil {
			p.Force = r2.Vec{}
		}
	}
	if m.integrator != nil {
		m.integrator.Reset()
	}
	m.wake()
}

// Clear removes every particle and force.
func (m *Model) Clear() {
	m.slots = nil
	m.free = nil
	m.index = btree.NewBTreeGOptions(slotLess, btree.Options{NoLocks: true})
	m.springs = nil
	m.activeSprings = nil
	m.magnets = nil
	m.activeMagnets = nil
	clear(m.springIndex)
	clear(m.magnetIndex)
	m.selected = nil
	if m.integrator != nil {
		m.integrator.Reset()
	}
}

// SetBounds confines particles to a w by h viewport centred on the origin.
func (m *Model) SetBounds(w, h float64) {
	b := &m.bounds
	b.left = (-w / b.skewX) / 2
	b.right = (w / b.skewX) / 2
	b.top = (-h / b.skewY) / 2
	b.bottom = (h / b.skewY) / 2
	b.set = w > 0 && h > 0
}

func (m *Model) clamp(p *dynamo.Particle) {
	b := m.bounds
	if !b.set {
		return
	}
	halfW := (p.Width / 2) / b.skewX
	halfH := (p.Height / 2) / b.skewY
	if p.Pos.X < b.left+halfW {
		p.Pos.X = b.left + halfW
	} else if p.Pos.X > b.right-halfW {
		p.Pos.X = b.right - halfW
	}
	if p.Pos.Y < b.top+halfH {
		p.Pos.Y = b.top + halfH
	} else if p.Pos.Y > b.bottom-halfH {
		p.Pos.Y = b.bottom - halfH
	}
}

// Draw clamps every particle into bounds and hands it to the drawer.
// It returns how many particles moved to a new half-unit grid position,
// or all of them when force is set.
func (m *Model) Draw(force bool) int {
	moved := 0
	for _, p := range m.slots {
		if p == nil {
			continue
		}
		m.clamp(p)
		at := r2.Vec{X: math.Round(p.Pos.X*2) / 2, Y: math.Round(p.Pos.Y*2) / 2}
		redraw := force || !p.Drawn || at != p.LastDrawn
		if m.drawer != nil {
			m.drawer.DrawNode(p, redraw)
		}
		if redraw {
			moved++
			p.LastDrawn = at
			p.Drawn = true
		}
	}
	return moved
}

// Tick integrates one step and redraws.
func (m *Model) Tick() int {
	if m.integrator != nil {
		m.integrator.Step(m, m.dt)
	}
	return m.Draw(false)
}

// Update ticks the model and returns the delay before the next tick, or
// false once the layout has settled.
func (m *Model) Update() (time.Duration, bool) {
	redrawn := m.Tick()
	live := m.Live()
	delay, running := m.throttle.Next(redrawn, live)
	if err := m.Check(); err != nil {
		m.logger.Error("layout diverged", "err", err)
		delay, running = 0, false
	}

	m.ticks++
	m.last = dynamo.TickStats{
		Tick:     m.ticks,
		Redrawn:  redrawn,
		Live:     live,
		Fraction: m.throttle.Fraction(redrawn, live),
		Delay:    delay,
		Stopped:  !running,
		Kinetic:  m.Kinetic(),
	}
	if !running {
		m.logger.Debug("layout settled", "tick", m.ticks, "live", live, "redrawn", redrawn)
	}
	return delay, running
}

func (m *Model) LastTick() dynamo.TickStats { return m.last }

// Check reports the first particle whose position or velocity is no longer
// finite.
func (m *Model) Check() error {
	for _, p := range m.slots {
		if p != nil && !p.IsValid() {
			return &dynamo.ParticleError{Op: "integrate", ID: p.ID, Wrapped: dynamo.ErrInvalidState}
		}
	}
	return nil
}

func (m *Model) Kinetic() float64 {
	e := 0.0
	for _, p := range m.slots {
		if p != nil {
			e += 0.5 * p.Mass * r2.Norm2(p.Vel)
		}
	}
	return e
}

// Select pins id under the pointer. Selected particles neither move nor
// receive force.
func (m *Model) Select(id dynamo.ID) error {
	p, ok := m.Get(id)
	if !ok {
		return &dynamo.ParticleError{Op: "select", ID: id, Wrapped: dynamo.ErrUnknownParticle}
	}
	m.Deselect()
	p.Selected = true
	m.selected = p
	return nil
}

func (m *Model) Deselect() {
	if m.selected != nil {
		m.selected.Selected = false
		m.selected = nil
	}
}

func (m *Model) Selected() *dynamo.Particle { return m.selected }

func (m *Model) Move(id dynamo.ID, pos r2.Vec) error {
	p, ok := m.Get(id)
	if !ok {
		return &dynamo.ParticleError{Op: "move", ID: id, Wrapped: dynamo.ErrUnknownParticle}
	}
	p.Pos = pos
	m.wake()
	return nil
}

// Rekey renames a live particle. Forces and renderer state hold the
// particle itself, so only the id table and parent lists change.
func (m *Model) Rekey(old, id dynamo.ID) error {
	p, slot, ok := m.lookup(old)
	if !ok {
		return &dynamo.ParticleError{Op: "rekey", ID: old, Wrapped: dynamo.ErrUnknownParticle}
	}
	if _, taken := m.Get(id); taken {
		return &dynamo.ParticleError{Op: "rekey", ID: id, Wrapped: dynamo.ErrDuplicateParticle}
	}
	m.index.Delete(slotItem{id: old})
	p.ID = id
	m.index.Set(slotItem{id: id, slot: slot})

	for _, q := range m.slots {
		if q == nil {
			continue
		}
		if q.HasParent(old) {
			q.RemoveParent(old)
			q.AddParent(id)
		}
		if q.TargetID == old {
			q.TargetID = id
		}
	}
	return nil
}
