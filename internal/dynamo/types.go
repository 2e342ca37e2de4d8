package dynamo

import (
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

type ID string

const (
	TempNode     ID = "td"
	TempRelation ID = "trid"
)

// IsTemp reports whether id names a staged, not yet committed entity.
func (id ID) IsTemp() bool {
	return id == TempNode || id == TempRelation
}

type Kind int

const (
	Descriptor Kind = iota
	Relation
)

func (k Kind) String() string {
	switch k {
	case Descriptor:
		return "descriptor"
	case Relation:
		return "relation"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "descriptor":
		return Descriptor, true
	case "relation":
		return Relation, true
	}
	return 0, false
}

// Particle is a point mass in the layout plane.
type Particle struct {
	ID   ID
	Kind Kind
	Name string

	Pos   r2.Vec
	Vel   r2.Vec
	Force r2.Vec
	Mass  float64

	Fixed     bool
	Selected  bool
	Draggable bool

	// Footprint used for bounds clamping.
	Width, Height float64

	// Parents lists every descriptor that holds this one as a child.
	Parents []ID

	// TargetID is the node a staged drag started from.
	TargetID ID

	// Integrator scratch.
	OrigPos, OrigVel r2.Vec

	LastDrawn r2.Vec
	Drawn     bool
}

// Receives reports whether forces may be accumulated on p.
func (p *Particle) Receives() bool {
	return !p.Fixed && !p.Selected
}

func (p *Particle) AddParent(id ID) {
	if !slices.Contains(p.Parents, id) {
		p.Parents = append(p.Parents, id)
	}
}

func (p *Particle) RemoveParent(id ID) {
	p.Parents = slices.DeleteFunc(p.Parents, func(x ID) bool { return x == id })
}

func (p *Particle) HasParent(id ID) bool {
	return slices.Contains(p.Parents, id)
}

func (p *Particle) IsValid() bool {
	for _, v := range [...]float64{p.Pos.X, p.Pos.Y, p.Vel.X, p.Vel.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// System is the particle set an Integrator advances. At returns nil for
// free arena slots.
type System interface {
	Len() int
	At(i int) *Particle
	Movable(p *Particle) bool
	ApplyForces()
}

type Integrator interface {
	Step(sys System, dt float64)
	Reset()
}

type Drawer interface {
	DrawNode(p *Particle, redraw bool)
}

// Waker restarts a stopped scheduler.
type Waker interface {
	Wake()
}

// TickStats describes one scheduler tick.
type TickStats struct {
	Tick     int
	Redrawn  int
	Live     int
	Fraction float64
	Delay    time.Duration
	Stopped  bool
	Kinetic  float64
}

type TickObserver interface {
	OnTick(s TickStats)
}

type Metric interface {
	Name() string
	Observe(s TickStats)
	Value() float64
	Reset()
}
