// Package render defines the boundary between the layout engine and
// whatever draws it, plus three implementations: a Recorder for tests and
// headless runs, a braille Canvas for terminals and an SVG writer.
//
// Renderers hold particles by pointer. A particle that is rekeyed or moved
// between models keeps its renderer state without any renderer call.
package render

import "github.com/san-kum/forcegraph/internal/dynamo"

// Edge is drawn from Source to Target. Relation edges bend through their
// Control particle; parent/child edges have none.
type Edge struct {
	Source  *dynamo.Particle
	Control *dynamo.Particle
	Target  *dynamo.Particle
}

type EdgeHandle int

type Renderer interface {
	dynamo.Drawer
	AddNode(p *dynamo.Particle)
	RemoveNode(p *dynamo.Particle)
	AddEdge(e Edge) EdgeHandle
	RemoveEdge(h EdgeHandle)
	DrawEdges()
	Clear()
	SetSize(w, h float64)
}
