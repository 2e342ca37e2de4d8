package render

import (
	"math"

	"github.com/san-kum/forcegraph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// bezierSteps is the number of segments a curved edge is drawn with.
const bezierSteps = 12

// Canvas renders into a braille grid. The layout plane, centred on the
// origin and Width by Height units large, is scaled onto the grid.
type Canvas struct {
	Scene
	Grid  *Braille
	dirty bool
}

func NewCanvas(cols, rows int) *Canvas {
	return &Canvas{Grid: NewBraille(cols, rows), dirty: true}
}

func (c *Canvas) DrawNode(_ *dynamo.Particle, redraw bool) {
	if redraw {
		c.dirty = true
	}
}

func (c *Canvas) DrawEdges() { c.dirty = true }

func (c *Canvas) Clear() {
	c.Scene.Clear()
	c.Grid.Clear()
	c.dirty = true
}

// Dirty reports whether anything changed since the last Frame.
func (c *Canvas) Dirty() bool { return c.dirty }

func (c *Canvas) project(v r2.Vec) (int, int) {
	w, h := c.Width, c.Height
	if w <= 0 || h <= 0 {
		w, h = float64(c.Grid.Cols*2), float64(c.Grid.Rows*4)
	}
	x := (v.X/w + 0.5) * float64(c.Grid.Cols*2-1)
	y := (v.Y/h + 0.5) * float64(c.Grid.Rows*4-1)
	return int(math.Round(x)), int(math.Round(y))
}

// Locate returns the character cell a particle is drawn in.
func (c *Canvas) Locate(p *dynamo.Particle) (col, row int) {
	x, y := c.project(p.Pos)
	return x / 2, y / 4
}

// Frame redraws the grid from the current particle positions.
func (c *Canvas) Frame() string {
	c.Grid.Clear()
	for _, e := range c.Edges() {
		c.edge(e)
	}
	for _, p := range c.nodes {
		x, y := c.project(p.Pos)
		if p.Kind == dynamo.Relation {
			c.Grid.Set(x, y)
			continue
		}
		c.Grid.Line(x-1, y, x+1, y)
		c.Grid.Line(x, y-1, x, y+1)
	}
	c.dirty = false
	return c.Grid.String()
}

func (c *Canvas) edge(e Edge) {
	x0, y0 := c.project(e.Source.Pos)
	x1, y1 := c.project(e.Target.Pos)
	if e.Control == nil {
		c.Grid.Line(x0, y0, x1, y1)
		return
	}
	px, py := x0, y0
	for i := 1; i <= bezierSteps; i++ {
		pt := Bezier(e.Source.Pos, e.Control.Pos, e.Target.Pos, float64(i)/bezierSteps)
		x, y := c.project(pt)
		c.Grid.Line(px, py, x, y)
		px, py = x, y
	}
}

// Bezier evaluates the quadratic curve from a to b controlled by c at t.
func Bezier(a, c, b r2.Vec, t float64) r2.Vec {
	u := 1 - t
	return r2.Add(r2.Add(r2.Scale(u*u, a), r2.Scale(2*u*t, c)), r2.Scale(t*t, b))
}
