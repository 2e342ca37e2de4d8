package render

import (
	"strings"
	"testing"

	"github.com/san-kum/forcegraph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

func testParticles() (a, r, b *dynamo.Particle) {
	a = &dynamo.Particle{ID: "a", Name: "alpha", Pos: r2.Vec{X: -20, Y: -10}}
	r = &dynamo.Particle{ID: "r", Kind: dynamo.Relation, Pos: r2.Vec{X: 0, Y: 15}}
	b = &dynamo.Particle{ID: "b", Name: "<beta>", Pos: r2.Vec{X: 20, Y: 10}}
	return a, r, b
}

func TestSceneEdges(t *testing.T) {
	a, r, b := testParticles()
	var s Scene
	h1 := s.AddEdge(Edge{Source: a, Target: b})
	h2 := s.AddEdge(Edge{Source: a, Control: r, Target: b})

	if h1 == h2 {
		t.Fatal("expected distinct handles")
	}
	if got := len(s.Edges()); got != 2 {
		t.Fatalf("expected 2 edges, got %d", got)
	}

	s.RemoveEdge(h1)
	s.RemoveEdge(h1)
	edges := s.Edges()
	if len(edges) != 1 || edges[0].Control != r {
		t.Errorf("unexpected edges after removal: %+v", edges)
	}

	c := &dynamo.Particle{ID: "c"}
	s.Retarget(h2, a, c)
	e, _ := s.Edge(h2)
	if e.Source != c || e.Target != b {
		t.Errorf("retarget failed: %+v", e)
	}
}

func TestSceneNodesUnique(t *testing.T) {
	a, _, b := testParticles()
	var s Scene
	s.AddNode(a)
	s.AddNode(a)
	s.AddNode(b)
	if got := len(s.Nodes()); got != 2 {
		t.Fatalf("expected 2 nodes, got %d", got)
	}
	s.RemoveNode(a)
	if nodes := s.Nodes(); len(nodes) != 1 || nodes[0] != b {
		t.Errorf("unexpected nodes: %v", nodes)
	}
}

func TestBezierEndpoints(t *testing.T) {
	a, c, b := r2.Vec{X: 0, Y: 0}, r2.Vec{X: 5, Y: 10}, r2.Vec{X: 10, Y: 0}
	if got := Bezier(a, c, b, 0); got != a {
		t.Errorf("t=0: got %v", got)
	}
	if got := Bezier(a, c, b, 1); got != b {
		t.Errorf("t=1: got %v", got)
	}
	if got := Bezier(a, c, b, 0.5); got.X != 5 || got.Y != 5 {
		t.Errorf("t=0.5: got %v, expected (5,5)", got)
	}
}

func TestBrailleSetAndClear(t *testing.T) {
	b := NewBraille(2, 1)
	b.Set(0, 0)
	b.Set(3, 3)
	b.Set(-1, 0)
	b.Set(100, 0)

	if b.Grid[0][0] != brailleBlank|0x01 {
		t.Errorf("cell 0: got %U", b.Grid[0][0])
	}
	if b.Grid[0][1] != brailleBlank|0x80 {
		t.Errorf("cell 1: got %U", b.Grid[0][1])
	}

	b.Clear()
	if strings.TrimRight(b.String(), "\n") != string([]rune{brailleBlank, brailleBlank}) {
		t.Errorf("expected blank grid, got %q", b.String())
	}
}

func TestCanvasFrame(t *testing.T) {
	a, r, b := testParticles()
	c := NewCanvas(20, 10)
	c.SetSize(60, 40)
	c.AddNode(a)
	c.AddNode(r)
	c.AddNode(b)
	c.AddEdge(Edge{Source: a, Control: r, Target: b})

	if !c.Dirty() {
		t.Error("new canvas should be dirty")
	}
	frame := c.Frame()
	if c.Dirty() {
		t.Error("frame should clear dirty flag")
	}
	if lines := strings.Split(strings.TrimRight(frame, "\n"), "\n"); len(lines) != 10 {
		t.Errorf("expected 10 rows, got %d", len(lines))
	}
	if !strings.ContainsFunc(frame, func(r rune) bool { return r > brailleBlank && r <= 0x28FF }) {
		t.Error("expected dots in frame")
	}

	col, row := c.Locate(a)
	if col < 0 || col >= 20 || row < 0 || row >= 10 {
		t.Errorf("locate out of grid: %d,%d", col, row)
	}

	c.DrawNode(a, false)
	if c.Dirty() {
		t.Error("draw without redraw should not dirty the canvas")
	}
	c.DrawNode(a, true)
	if !c.Dirty() {
		t.Error("redraw should dirty the canvas")
	}
}

func TestSVG(t *testing.T) {
	a, r, b := testParticles()
	s := NewSVG()
	s.AddNode(a)
	s.AddNode(r)
	s.AddNode(b)
	s.AddEdge(Edge{Source: a, Control: r, Target: b})
	s.AddEdge(Edge{Source: a, Target: b})

	out := s.String()
	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg"`,
		`id="a"`,
		`Q0.0,15.0 20.0,10.0`,
		`L20.0,10.0`,
		`&lt;beta&gt;`,
		`</svg>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q", want)
		}
	}

	var sb strings.Builder
	if _, err := s.WriteTo(&sb); err != nil {
		t.Fatalf("write: %v", err)
	}
	if sb.String() != out {
		t.Error("WriteTo and String disagree")
	}
}

func TestRecorder(t *testing.T) {
	a, _, _ := testParticles()
	rec := NewRecorder()
	rec.AddNode(a)
	rec.DrawNode(a, true)
	rec.DrawNode(a, false)

	if rec.Draws != 2 || rec.Redraws != 1 {
		t.Errorf("draws=%d redraws=%d", rec.Draws, rec.Redraws)
	}
	if rec.Redrawn(a) {
		t.Error("last draw was not a redraw")
	}
	if !rec.HasNode("a") {
		t.Error("expected node a")
	}
	rec.Clear()
	if rec.HasNode("a") || rec.Clears != 1 {
		t.Error("clear did not reset recorder")
	}
}
