package render

import "github.com/san-kum/forcegraph/internal/dynamo"

// Recorder is a Renderer that only counts what it was asked to do.
type Recorder struct {
	Scene
	Draws     int
	Redraws   int
	EdgeDraws int
	Clears    int
	last      map[*dynamo.Particle]bool
}

func NewRecorder() *Recorder {
	return &Recorder{last: make(map[*dynamo.Particle]bool)}
}

func (r *Recorder) DrawNode(p *dynamo.Particle, redraw bool) {
	r.Draws++
	if redraw {
		r.Redraws++
	}
	r.last[p] = redraw
}

func (r *Recorder) DrawEdges() { r.EdgeDraws++ }

func (r *Recorder) Clear() {
	r.Clears++
	r.Scene.Clear()
	clear(r.last)
}

// Redrawn reports whether the last DrawNode call for p asked for a redraw.
func (r *Recorder) Redrawn(p *dynamo.Particle) bool { return r.last[p] }

func (r *Recorder) HasNode(id dynamo.ID) bool {
	for _, p := range r.nodes {
		if p.ID == id {
			return true
		}
	}
	return false
}
