package render

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/san-kum/forcegraph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// SVG renders the scene as a standalone SVG document on demand.
type SVG struct {
	Scene
	Background string
	Stroke     string
	Fill       string
}

func NewSVG() *SVG {
	return &SVG{Background: "#0a0a0a", Stroke: "#4f8f6f", Fill: "#00ff88"}
}

func (s *SVG) DrawNode(*dynamo.Particle, bool) {}
func (s *SVG) DrawEdges()                      {}

type viewBox struct {
	minX, minY, w, h float64
}

// fit returns the drawing area: the configured viewport when set, else the
// particle bounds with ten percent padding.
func (s *SVG) fit() viewBox {
	if s.Width > 0 && s.Height > 0 {
		return viewBox{-s.Width / 2, -s.Height / 2, s.Width, s.Height}
	}
	if len(s.nodes) == 0 {
		return viewBox{-1, -1, 2, 2}
	}
	lo, hi := s.nodes[0].Pos, s.nodes[0].Pos
	for _, p := range s.nodes {
		lo = r2.Vec{X: min(lo.X, p.Pos.X), Y: min(lo.Y, p.Pos.Y)}
		hi = r2.Vec{X: max(hi.X, p.Pos.X), Y: max(hi.Y, p.Pos.Y)}
	}
	rangeX, rangeY := hi.X-lo.X, hi.Y-lo.Y
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	return viewBox{lo.X - rangeX*0.1, lo.Y - rangeY*0.1, rangeX * 1.2, rangeY * 1.2}
}

func (s *SVG) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, s.String())
	return int64(n), err
}

func (s *SVG) String() string {
	vb := s.fit()
	var sb strings.Builder

	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.1f %.1f %.1f %.1f">
<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>
<g fill="none" stroke="%s" stroke-width="0.5">
`, vb.minX, vb.minY, vb.w, vb.h, vb.minX, vb.minY, vb.w, vb.h, s.Background, s.Stroke)

	for _, e := range s.Edges() {
		a, b := e.Source.Pos, e.Target.Pos
		if e.Control == nil {
			fmt.Fprintf(&sb, "<path d=\"M%.1f,%.1f L%.1f,%.1f\"/>\n", a.X, a.Y, b.X, b.Y)
			continue
		}
		c := e.Control.Pos
		fmt.Fprintf(&sb, "<path d=\"M%.1f,%.1f Q%.1f,%.1f %.1f,%.1f\"/>\n", a.X, a.Y, c.X, c.Y, b.X, b.Y)
	}
	sb.WriteString("</g>\n")

	fmt.Fprintf(&sb, "<g fill=\"%s\" font-family=\"monospace\" font-size=\"4\">\n", s.Fill)
	for _, p := range s.nodes {
		r := 2.0
		if p.Kind == dynamo.Relation {
			r = 0.8
		}
		fmt.Fprintf(&sb, "<circle id=\"%s\" cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", html.EscapeString(string(p.ID)), p.Pos.X, p.Pos.Y, r)
		if p.Kind == dynamo.Descriptor && p.Name != "" {
			fmt.Fprintf(&sb, "<text x=\"%.1f\" y=\"%.1f\">%s</text>\n", p.Pos.X+3, p.Pos.Y-3, html.EscapeString(p.Name))
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}
