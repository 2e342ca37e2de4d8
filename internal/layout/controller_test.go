package layout_test

import (
	"context"
	"errors"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/forcegraph/internal/datasource"
	"github.com/san-kum/forcegraph/internal/dynamo"
	"github.com/san-kum/forcegraph/internal/layout"
	"github.com/san-kum/forcegraph/internal/physics"
	"github.com/san-kum/forcegraph/internal/render"
	"gonum.org/v1/gonum/spatial/r2"
)

// loop stands in for the scheduler: dispatched calls wait until flush runs
// them, completions included, in order.
type loop struct {
	wakes int
	calls []func()
}

func (l *loop) Wake() { l.wakes++ }

func (l *loop) Dispatch(ctx context.Context, call func(context.Context) func()) {
	l.calls = append(l.calls, func() {
		if done := call(ctx); done != nil {
			done()
		}
	})
}

func (l *loop) flush() {
	for len(l.calls) > 0 {
		fn := l.calls[0]
		l.calls = l.calls[1:]
		fn()
	}
}

// settle ticks until nothing is queued or in flight.
func (l *loop) settle(c *layout.Controller) {
	for i := 0; i < 1000; i++ {
		l.flush()
		c.Update()
		if len(l.calls) == 0 && c.Pending() == 0 {
			return
		}
	}
	Fail("layout never drained its queues")
}

const graph = `
descriptors:
  - id: a
  - id: b
  - id: a1
    parent: a
  - id: a2
    parent: a
  - id: a11
    parent: a1
  - id: s
    parent: a
    also: [b]
`

type harness struct {
	mem    *datasource.Memory
	loop   *loop
	front  *render.Recorder
	ctl    *layout.Controller
	errors []error
}

func newHarness(fixture string) *harness {
	h := &harness{mem: datasource.NewMemory(), loop: &loop{}, front: render.NewRecorder()}
	if fixture != "" {
		f, err := datasource.ParseFixture([]byte(fixture), "yaml")
		Expect(err).NotTo(HaveOccurred())
		Expect(h.mem.Load(f)).To(Succeed())
	}
	h.ctl = layout.New(h.mem, h.loop, h.front, render.NewRecorder(),
		layout.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		layout.WithOnError(func(err error) { h.errors = append(h.errors, err) }),
	)
	return h
}

func (h *harness) start() {
	h.ctl.Start(context.Background())
	h.loop.settle(h.ctl)
}

func (h *harness) model() *physics.Model { return h.ctl.Active().Model }

func (h *harness) has(id dynamo.ID) bool {
	_, ok := h.model().Get(id)
	return ok
}

func (h *harness) particle(id dynamo.ID) *dynamo.Particle {
	p, ok := h.model().Get(id)
	ExpectWithOffset(1, ok).To(BeTrue(), "particle %q", id)
	return p
}

func (h *harness) instance(parent, child dynamo.ID) (layout.Instance, bool) {
	for _, in := range h.ctl.Active().Instances() {
		if in.Parent == parent && in.Child == child {
			return in, true
		}
	}
	return layout.Instance{}, false
}

var _ = Describe("Controller", func() {
	const root = dynamo.ID(datasource.RootID)

	Describe("receiving a root and a child", func() {
		var h *harness

		BeforeEach(func() {
			h = newHarness("descriptors:\n  - id: c\n")
			h.start()
		})

		It("fixes the root", func() {
			Expect(h.particle(root).Fixed).To(BeTrue())
		})

		It("springs the child to its parent with parent constants", func() {
			s := h.model().SpringBetween(root, "c")
			Expect(s).NotTo(BeNil())
			Expect(s.SpringParams).To(Equal(physics.DefaultParentSpring))
		})

		It("records exactly one instance through the relation particle", func() {
			ins := h.ctl.Active().Instances()
			Expect(ins).To(HaveLen(1))
			Expect(ins[0].Parent).To(Equal(root))
			Expect(ins[0].Child).To(Equal(dynamo.ID("c")))
			Expect(ins[0].Relations).To(HaveLen(1))

			rel := h.particle(ins[0].Relations[0])
			Expect(rel.Kind).To(Equal(dynamo.Relation))
			Expect(h.model().SpringBetween(root, rel.ID).SpringParams).To(Equal(physics.DefaultRelatedSpring))
			Expect(h.model().SpringBetween(rel.ID, "c")).NotTo(BeNil())
			Expect(h.particle("c").Parents).To(ConsistOf(root))
		})

		It("repels the child from every other particle", func() {
			h.model().Each(func(p *dynamo.Particle) bool {
				if p.ID != "c" {
					Expect(h.model().MagnetBetween("c", p.ID)).NotTo(BeNil(), "magnet c-%s", p.ID)
				}
				return true
			})
		})

		It("shows every particle and edge", func() {
			Expect(h.front.Nodes()).To(HaveLen(3))
			Expect(h.front.Edges()).To(HaveLen(2))
		})
	})

	Describe("admission", func() {
		var h *harness

		BeforeEach(func() {
			h = newHarness("")
		})

		It("holds an edge until both endpoints exist", func() {
			h.ctl.EnqueueEdge(layout.EdgeItem{Source: "x", Relation: "r1", Target: "y"})
			h.ctl.EnqueueEdge(layout.EdgeItem{Source: "x", Relation: "r2", Target: "y"})
			h.ctl.EnqueueNode(layout.NodeItem{ID: "x"})
			h.ctl.EnqueueNode(layout.NodeItem{ID: "y"})

			_, running := h.ctl.Update()
			Expect(running).To(BeTrue())
			Expect(h.has("x")).To(BeTrue())
			Expect(h.has("r1")).To(BeFalse())

			h.ctl.Update()
			Expect(h.has("r1")).To(BeTrue())
			Expect(h.has("r2")).To(BeFalse())

			h.ctl.Update()
			Expect(h.has("r2")).To(BeTrue())
			Expect(h.ctl.Pending()).To(BeZero())
		})

		It("blocks later edges behind a waiting head", func() {
			h.ctl.EnqueueNode(layout.NodeItem{ID: "x"})
			h.ctl.EnqueueNode(layout.NodeItem{ID: "y"})
			h.ctl.Update()
			h.ctl.Update()

			h.ctl.EnqueueEdge(layout.EdgeItem{Source: "x", Relation: "r1", Target: "z"})
			h.ctl.EnqueueEdge(layout.EdgeItem{Source: "x", Relation: "r2", Target: "y"})
			h.ctl.Update()
			_, ok := h.model().Get("r2")
			Expect(ok).To(BeFalse())

			h.ctl.EnqueueNode(layout.NodeItem{ID: "z"})
			h.ctl.Update()
			h.ctl.Update()
			_, ok1 := h.model().Get("r1")
			_, ok2 := h.model().Get("r2")
			Expect([]bool{ok1, ok2}).To(Equal([]bool{true, true}))
		})

		It("waits for every relation of an instance", func() {
			h.ctl.EnqueueNode(layout.NodeItem{ID: "p"})
			h.ctl.EnqueueNode(layout.NodeItem{ID: "q"})
			h.ctl.EnqueueInstance(layout.Instance{Parent: "p", Child: "q", Relations: []dynamo.ID{"r"}})
			for range 3 {
				h.ctl.Update()
			}
			Expect(h.ctl.Active().Instances()).To(BeEmpty())

			h.ctl.EnqueueEdge(layout.EdgeItem{Source: "p", Relation: "r", Target: "q"})
			h.ctl.Update()
			h.ctl.Update()
			Expect(h.ctl.Active().Instances()).To(HaveLen(1))
			Expect(h.particle("q").Parents).To(ConsistOf(dynamo.ID("p")))
		})

		It("keeps the scheduler running while anything is queued", func() {
			h.ctl.EnqueueEdge(layout.EdgeItem{Source: "x", Relation: "r", Target: "y"})
			_, running := h.ctl.Update()
			Expect(running).To(BeTrue())
			Expect(h.loop.wakes).To(BeNumerically(">", 0))
		})
	})

	Describe("a loaded graph", func() {
		var h *harness

		BeforeEach(func() {
			h = newHarness(graph)
			h.start()
		})

		It("relates a shared child from both parents", func() {
			Expect(h.particle("s").Parents).To(ConsistOf(dynamo.ID("a"), dynamo.ID("b")))
			_, ok := h.instance("b", "s")
			Expect(ok).To(BeTrue())
		})

		Describe("drilling", func() {
			It("isolates the closure and restores it exactly", func() {
				before := map[dynamo.ID]r2.Vec{}
				h.model().Each(func(p *dynamo.Particle) bool {
					before[p.ID] = p.Pos
					return true
				})
				springs := len(h.model().Springs())
				magnets := len(h.model().Magnets())
				instances := len(h.ctl.Active().Instances())
				main := h.ctl.Active()

				Expect(h.ctl.DrillDown("a")).To(Succeed())
				drilled := h.ctl.Active()
				Expect(drilled).NotTo(BeIdenticalTo(main))
				for _, id := range []dynamo.ID{"a", "a1", "a2", "a11", "s"} {
					_, ok := drilled.Model.Get(id)
					Expect(ok).To(BeTrue(), "%s drilled", id)
					_, ok = main.Model.Get(id)
					Expect(ok).To(BeFalse(), "%s left behind", id)
				}
				_, ok := drilled.Model.Get("b")
				Expect(ok).To(BeFalse())
				a := h.particle("a")
				Expect(a.Pos).To(Equal(r2.Vec{}))
				Expect(a.Fixed).To(BeTrue())
				_, ok = h.ctl.Drilled()
				Expect(ok).To(BeTrue())

				Expect(h.ctl.DrillDown("a1")).To(MatchError(layout.ErrAlreadyDrilled))

				Expect(h.ctl.DrillUp()).To(Succeed())
				Expect(h.ctl.Active()).To(BeIdenticalTo(main))
				h.model().Each(func(p *dynamo.Particle) bool {
					Expect(p.Pos).To(Equal(before[p.ID]), "position of %s", p.ID)
					return true
				})
				Expect(h.particle("a").Fixed).To(BeFalse())
				Expect(h.model().Springs()).To(HaveLen(springs))
				Expect(h.model().Magnets()).To(HaveLen(magnets))
				Expect(h.ctl.Active().Instances()).To(HaveLen(instances))
				Expect(h.ctl.Background().Model.Live()).To(BeZero())
			})

			It("restores particles clamped by the viewport while drilled", func() {
				h.ctl.Resize(100, 100)
				Expect(h.model().Move("a", r2.Vec{X: 40})).To(Succeed())
				Expect(h.model().Move("a1", r2.Vec{X: -40})).To(Succeed())
				before := map[dynamo.ID]r2.Vec{}
				h.model().Each(func(p *dynamo.Particle) bool {
					before[p.ID] = p.Pos
					return true
				})

				Expect(h.ctl.DrillDown("a")).To(Succeed())
				Expect(h.particle("a1").Pos.X).To(BeNumerically(">", -80))

				Expect(h.ctl.DrillUp()).To(Succeed())
				h.model().Each(func(p *dynamo.Particle) bool {
					Expect(p.Pos).To(Equal(before[p.ID]), "position of %s", p.ID)
					return true
				})
				Expect(h.particle("a1").Pos).To(Equal(r2.Vec{X: -40}))
			})

			It("parks links that cross the boundary", func() {
				Expect(h.ctl.DrillDown("a")).To(Succeed())
				_, ok := h.instance("b", "s")
				Expect(ok).To(BeFalse())
				Expect(h.ctl.DrillUp()).To(Succeed())
				_, ok = h.instance("b", "s")
				Expect(ok).To(BeTrue())
			})

			It("toggles", func() {
				Expect(h.ctl.Toggle("a1")).To(Succeed())
				Expect(h.ctl.Toggle("a")).To(MatchError(layout.ErrAlreadyDrilled))
				Expect(h.ctl.Toggle("a1")).To(Succeed())
				Expect(h.ctl.DrillUp()).To(MatchError(layout.ErrNotDrilled))
			})

			It("refuses relations", func() {
				in, _ := h.instance("a", "a1")
				Expect(h.ctl.DrillDown(in.Relations[0])).To(MatchError(layout.ErrNotDescriptor))
			})

			It("drops parked links to particles deleted while drilled", func() {
				Expect(h.ctl.DrillDown("a")).To(Succeed())
				Expect(h.ctl.Delete("s")).To(Succeed())
				Expect(h.ctl.DrillUp()).To(Succeed())
				_, ok := h.instance("b", "s")
				Expect(ok).To(BeFalse())
				for _, p := range h.model().Particles() {
					Expect(p.ID).NotTo(Equal(dynamo.ID("s")))
				}
				Expect(h.particle("b")).NotTo(BeNil())
			})
		})

		Describe("deleting", func() {
			It("keeps a child another parent still holds", func() {
				Expect(h.ctl.Delete("a")).To(Succeed())
				h.loop.flush()

				for _, id := range []dynamo.ID{"a", "a1", "a2", "a11"} {
					_, ok := h.model().Get(id)
					Expect(ok).To(BeFalse(), "%s deleted", id)
					Expect(h.mem.Has(string(id))).To(BeFalse())
				}
				Expect(h.particle("s").Parents).To(ConsistOf(dynamo.ID("b")))
				_, ok := h.instance("a", "s")
				Expect(ok).To(BeFalse())

				Expect(h.ctl.Delete("b")).To(Succeed())
				_, ok = h.model().Get("s")
				Expect(ok).To(BeFalse())
			})

			It("leaves no force touching a deleted particle", func() {
				a1 := h.particle("a1")
				Expect(h.ctl.Delete("a1")).To(Succeed())
				for _, s := range h.model().Springs() {
					Expect(s.Touches(a1)).To(BeFalse())
				}
				for _, g := range h.model().Magnets() {
					Expect(g.Touches(a1)).To(BeFalse())
				}
			})

			It("refuses the last relation of an instance", func() {
				in, _ := h.instance("a", "a1")
				Expect(h.ctl.Delete(in.Relations[0])).To(MatchError(layout.ErrLastRelation))
			})

			It("refuses the root", func() {
				Expect(h.ctl.Delete(root)).To(MatchError(layout.ErrRoot))
			})

			It("never re-admits a deleted descriptor", func() {
				Expect(h.ctl.Delete("a2")).To(Succeed())
				h.ctl.Receive(&datasource.Node{ID: "a2", ParentID: "a"})
				h.loop.settle(h.ctl)
				_, ok := h.model().Get("a2")
				Expect(ok).To(BeFalse())
			})

			It("discards a queued node for a deleted id", func() {
				Expect(h.ctl.Delete("a2")).To(Succeed())
				h.ctl.EnqueueNode(layout.NodeItem{ID: "a2", ParentID: "a", Name: "a2"})
				h.loop.settle(h.ctl)
				_, ok := h.model().Get("a2")
				Expect(ok).To(BeFalse())
				Expect(h.ctl.Pending()).To(BeZero())
			})
		})

		Describe("drag to relate", func() {
			BeforeEach(func() {
				Expect(h.ctl.BeginDrag("a1")).To(Succeed())
			})

			It("stages a draggable node and relation", func() {
				node := h.particle(dynamo.TempNode)
				Expect(node.Draggable).To(BeTrue())
				Expect(node.Selected).To(BeTrue())
				Expect(node.TargetID).To(Equal(dynamo.ID("a1")))
				h.particle(dynamo.TempRelation)
				Expect(h.model().Dragging()).To(BeTrue())
				Expect(h.model().MagnetBetween(dynamo.TempNode, "a")).To(BeNil())

				Expect(h.ctl.DragTo(r2.Vec{X: 40, Y: 5})).To(Succeed())
				Expect(node.Pos).To(Equal(r2.Vec{X: 40, Y: 5}))
				Expect(h.ctl.BeginDrag("b")).To(MatchError(layout.ErrDragInProgress))
				Expect(h.ctl.DrillDown("a")).To(MatchError(layout.ErrDragInProgress))
			})

			It("commits and rekeys once the data source answers", func() {
				staged := h.particle(dynamo.TempRelation)
				Expect(h.ctl.Drop("b")).To(Succeed())
				_, ok := h.model().Get(dynamo.TempNode)
				Expect(ok).To(BeFalse())
				Expect(h.model().SpringBetween("b", dynamo.TempRelation)).NotTo(BeNil())
				Expect(h.ctl.CancelDrag()).To(MatchError(layout.ErrDragInProgress))
				_, ok = h.instance("b", "a1")
				Expect(ok).To(BeFalse())

				h.loop.flush()

				Expect(h.ctl.Dragging()).To(BeFalse())
				Expect(h.model().Dragging()).To(BeFalse())
				_, ok = h.model().Get(dynamo.TempRelation)
				Expect(ok).To(BeFalse())

				assoc, ok := h.mem.Association("b", "a1")
				Expect(ok).To(BeTrue())
				Expect(assoc.Relations).To(HaveLen(1))
				id := dynamo.ID(assoc.Relations[0].ID)
				Expect(staged.ID).To(Equal(id))
				Expect(h.particle(id)).To(BeIdenticalTo(staged))

				in, ok := h.instance("b", "a1")
				Expect(ok).To(BeTrue())
				Expect(in.Relations).To(ConsistOf(id))
				Expect(in.AssociationID).To(Equal(assoc.ID))
				Expect(h.particle("a1").Parents).To(ContainElement(dynamo.ID("b")))
				Expect(h.model().MagnetBetween("b", "a1")).NotTo(BeNil())

				var found bool
				for _, e := range h.front.Edges() {
					if e.Control == staged {
						found = true
						Expect(e.Source.ID).To(Equal(dynamo.ID("b")))
						Expect(e.Target.ID).To(Equal(dynamo.ID("a1")))
					}
				}
				Expect(found).To(BeTrue())
			})

			It("extends an existing instance", func() {
				Expect(h.ctl.CancelDrag()).To(Succeed())
				Expect(h.ctl.BeginDrag("s")).To(Succeed())
				Expect(h.ctl.Drop("b")).To(Succeed())
				h.loop.flush()

				in, ok := h.instance("b", "s")
				Expect(ok).To(BeTrue())
				Expect(in.Relations).To(HaveLen(2))
				Expect(h.mem.Calls("add association")).To(BeZero())
			})

			It("keeps the staged relation when the commit fails", func() {
				boom := errors.New("boom")
				h.mem.FailOn("add relation", boom)
				Expect(h.ctl.Drop("b")).To(Succeed())
				h.loop.flush()

				Expect(h.errors).To(HaveLen(1))
				Expect(h.errors[0]).To(MatchError(boom))
				var ce *layout.CommitError
				Expect(errors.As(h.errors[0], &ce)).To(BeTrue())
				Expect(ce.Op).To(Equal("add relation"))
				Expect(ce.ID).To(Equal(dynamo.TempRelation))

				h.particle(dynamo.TempRelation)
				Expect(h.ctl.Stats().Failures).To(Equal(1))
				Expect(h.ctl.Dragging()).To(BeTrue())
				_, ok := h.instance("b", "a1")
				Expect(ok).To(BeFalse())

				Expect(h.ctl.CancelDrag()).To(Succeed())
				_, ok = h.model().Get(dynamo.TempRelation)
				Expect(ok).To(BeFalse())
				Expect(h.ctl.Dragging()).To(BeFalse())
			})

			It("cancels before dropping", func() {
				Expect(h.ctl.CancelDrag()).To(Succeed())
				for _, id := range []dynamo.ID{dynamo.TempNode, dynamo.TempRelation} {
					_, ok := h.model().Get(id)
					Expect(ok).To(BeFalse())
				}
				Expect(h.ctl.CancelDrag()).To(MatchError(layout.ErrNoDrag))
			})

			It("refuses to relate a node to itself", func() {
				Expect(h.ctl.Drop("a1")).To(MatchError(dynamo.ErrSelfPair))
			})
		})

		It("adds a child through the data source", func() {
			n := h.mem.Len()
			Expect(h.ctl.AddChild("b")).To(Succeed())
			h.loop.settle(h.ctl)
			Expect(h.mem.Len()).To(Equal(n + 1))

			var children int
			for _, in := range h.ctl.Active().Instances() {
				if in.Parent == "b" {
					children++
				}
			}
			Expect(children).To(Equal(2))
		})

		It("reasons over a closure", func() {
			Expect(h.ctl.Reason("a1")).To(Succeed())
			h.loop.flush()
			Expect(h.mem.Reasoned("a1")).To(Equal(1))
			Expect(h.mem.Reasoned("a11")).To(Equal(1))
			Expect(h.mem.Reasoned("a")).To(BeZero())
		})

		It("snapshots the active context", func() {
			snap := h.ctl.Snapshot()
			Expect(snap.Context).To(Equal("graph"))
			Expect(snap.Particles).To(HaveLen(h.model().Live()))
			Expect(snap.Edges).To(HaveLen(len(h.front.Edges())))
			for _, p := range h.model().Particles() {
				Expect(p.IsValid()).To(BeTrue(), "%s is finite", p.ID)
			}
		})

		It("replays a snapshot into a renderer", func() {
			snap := h.ctl.Snapshot()
			rec := render.NewRecorder()
			Expect(snap.Draw(rec)).To(BeZero())
			Expect(rec.Nodes()).To(HaveLen(len(snap.Particles)))
			Expect(rec.Edges()).To(HaveLen(len(snap.Edges)))

			snap.Edges = append(snap.Edges, layout.EdgeState{Source: "a", Target: "gone"})
			Expect(snap.Draw(render.NewRecorder())).To(Equal(1))
		})

		It("reports failed lookups", func() {
			h.mem.FailOn("add descriptor", errors.New("offline"))
			Expect(h.ctl.AddChild("a")).To(Succeed())
			h.loop.flush()
			Expect(h.errors).To(HaveLen(1))
			Expect(h.ctl.Stats().Failures).To(Equal(1))
		})
	})
})
