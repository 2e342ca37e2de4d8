package physics

import (
	"slices"

	"github.com/san-kum/forcegraph/internal/dynamo"
)

// Fragment is a set of particles lifted out of a model together with the
// forces whose endpoints both lie inside the set.
type Fragment struct {
	Particles []*dynamo.Particle
	Springs   []*Spring
	Magnets   []*Magnet

	// Subsets of Springs and Magnets that were still in an active window,
	// oldest first.
	ActiveSprings []*Spring
	ActiveMagnets []*Magnet

	// Severed holds the forces that crossed the boundary. They are detached
	// and belong to neither model until restored.
	Severed Detached
}

type Detached struct {
	Springs []*Spring
	Magnets []*Magnet
}

func (d *Detached) Merge(o Detached) {
	d.Springs = append(d.Springs, o.Springs...)
	d.Magnets = append(d.Magnets, o.Magnets...)
}

func (d Detached) Len() int { return len(d.Springs) + len(d.Magnets) }

// Extract removes ids from the model. Nothing is removed when any id is
// unknown.
func (m *Model) Extract(ids []dynamo.ID) (*Fragment, error) {
	inside := make(map[*dynamo.Particle]bool, len(ids))
	f := &Fragment{}
	for _, id := range ids {
		p, ok := m.Get(id)
		if !ok {
			return nil, &dynamo.ParticleError{Op: "extract", ID: id, Wrapped: dynamo.ErrUnknownParticle}
		}
		if !inside[p] {
			inside[p] = true
			f.Particles = append(f.Particles, p)
		}
	}

	m.springs = slices.DeleteFunc(m.springs, func(s *Spring) bool {
		a, b := inside[s.A], inside[s.B]
		switch {
		case a && b:
			f.Springs = append(f.Springs, s)
		case a || b:
			s.detach()
			f.Severed.Springs = append(f.Severed.Springs, s)
		default:
			return false
		}
		delete(m.springIndex, pair{s.A, s.B})
		return true
	})
	m.activeSprings = slices.DeleteFunc(m.activeSprings, func(s *Spring) bool {
		if inside[s.A] && inside[s.B] {
			f.ActiveSprings = append(f.ActiveSprings, s)
		}
		return inside[s.A] || inside[s.B]
	})

	m.magnets = slices.DeleteFunc(m.magnets, func(g *Magnet) bool {
		a, b := inside[g.A], inside[g.B]
		switch {
		case a && b:
			f.Magnets = append(f.Magnets, g)
		case a || b:
			g.detach()
			f.Severed.Magnets = append(f.Severed.Magnets, g)
		default:
			return false
		}
		delete(m.magnetIndex, pair{g.A, g.B})
		return true
	})
	m.activeMagnets = slices.DeleteFunc(m.activeMagnets, func(g *Magnet) bool {
		if inside[g.A] && inside[g.B] {
			f.ActiveMagnets = append(f.ActiveMagnets, g)
		}
		return inside[g.A] || inside[g.B]
	})

	for _, p := range f.Particles {
		_, slot, _ := m.lookup(p.ID)
		m.unplace(p, slot)
	}
	m.wake()
	return f, nil
}

// Implant adds a fragment extracted from another model. Nothing is added
// when any particle id is already live here.
func (m *Model) Implant(f *Fragment) error {
	for _, p := range f.Particles {
		if _, ok := m.Get(p.ID); ok {
			return &dynamo.ParticleError{Op: "implant", ID: p.ID, Wrapped: dynamo.ErrDuplicateParticle}
		}
	}
	for _, p := range f.Particles {
		m.place(p)
	}
	for _, s := range f.Springs {
		m.springs = append(m.springs, s)
		m.springIndex[pair{s.A, s.B}] = s
	}
	for _, g := range f.Magnets {
		m.magnets = append(m.magnets, g)
		m.magnetIndex[pair{g.A, g.B}] = g
	}
	m.activeSprings = append(m.activeSprings, f.ActiveSprings...)
	for _, g := range f.ActiveMagnets {
		m.activateMagnet(g)
	}
	m.wake()
	return nil
}

// Restore reattaches detached forces whose endpoints both live in this
// model and returns the ones that could not be placed.
func (m *Model) Restore(d Detached) Detached {
	var dropped Detached
	for _, s := range d.Springs {
		if !m.Owns(s.A) || !m.Owns(s.B) || m.springBetween(s.A, s.B) != nil {
			dropped.Springs = append(dropped.Springs, s)
			continue
		}
		m.springs = append(m.springs, s)
		m.springIndex[pair{s.A, s.B}] = s
	}
	for _, g := range d.Magnets {
		if !m.Owns(g.A) || !m.Owns(g.B) || m.magnetBetween(g.A, g.B) != nil {
			dropped.Magnets = append(dropped.Magnets, g)
			continue
		}
		m.magnets = append(m.magnets, g)
		m.magnetIndex[pair{g.A, g.B}] = g
	}
	m.wake()
	return dropped
}
