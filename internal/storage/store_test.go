package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/forcegraph/internal/dynamo"
	"github.com/san-kum/forcegraph/internal/layout"
	"gonum.org/v1/gonum/spatial/r2"
)

func testSnapshot() layout.Snapshot {
	return layout.Snapshot{
		Context: "graph",
		Particles: []layout.ParticleState{
			{ID: "metaroot", Kind: "descriptor", Name: "root", X: 0, Y: 0, Fixed: true},
			{ID: "a", Kind: "descriptor", Name: "A, the first", X: 12.5, Y: -3.25},
			{ID: "r", Kind: "relation", Name: "describes", X: 6.1, Y: -1.7},
		},
		Edges: []layout.EdgeState{
			{Source: "metaroot", Target: "a"},
			{Source: "metaroot", Control: "r", Target: "a"},
		},
		Instances: []layout.Instance{
			{AssociationID: "x", Parent: "metaroot", Child: "a", Relations: []dynamo.ID{"r"}},
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta := RunMetadata{
		Data:       "testdata/graph.yaml",
		Preset:     "default",
		Seed:       42,
		Dt:         1,
		Integrator: "rk4",
		Ticks:      120,
		Settled:    true,
		Metrics:    map[string]float64{"energy": 1.5},
	}
	runID, err := st.Save(meta, testSnapshot())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	got, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Data != "testdata/graph.yaml" {
		t.Errorf("expected data 'testdata/graph.yaml', got '%s'", got.Data)
	}
	if got.Particles != 3 {
		t.Errorf("expected 3 particles, got %d", got.Particles)
	}
	if got.Metrics["energy"] != 1.5 {
		t.Errorf("expected energy 1.5, got %f", got.Metrics["energy"])
	}
	if len(got.Instances) != 1 || got.Instances[0].Relations[0] != "r" {
		t.Errorf("instances not preserved: %+v", got.Instances)
	}
}

func TestLoadPositions(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(RunMetadata{}, testSnapshot())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	pos, err := st.LoadPositions(runID)
	if err != nil {
		t.Fatalf("load positions failed: %v", err)
	}
	if want := (r2.Vec{X: 12.5, Y: -3.25}); pos["a"] != want {
		t.Errorf("expected %v, got %v", want, pos["a"])
	}
	if len(pos) != 3 {
		t.Errorf("expected 3 positions, got %d", len(pos))
	}
}

func TestLoadSnapshotRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	want := testSnapshot()
	runID, err := st.Save(RunMetadata{Data: "g.yaml"}, want)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := st.LoadSnapshot(runID)
	if err != nil {
		t.Fatalf("load snapshot failed: %v", err)
	}
	if len(got.Particles) != len(want.Particles) {
		t.Fatalf("expected %d particles, got %d", len(want.Particles), len(got.Particles))
	}
	for i := range want.Particles {
		if got.Particles[i] != want.Particles[i] {
			t.Errorf("particle %d: got %+v, want %+v", i, got.Particles[i], want.Particles[i])
		}
	}
	if len(got.Edges) != 2 || got.Edges[1].Control != "r" {
		t.Errorf("edges not preserved: %+v", got.Edges)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if _, err := st.Save(RunMetadata{Data: "one.yaml"}, testSnapshot()); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Save(RunMetadata{Data: "two.yaml"}, testSnapshot()); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Data != "one.yaml" {
		t.Errorf("expected oldest first, got %s", runs[0].Data)
	}
}

func TestLoadParticlesRejectsBadRows(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	runDir := filepath.Join(tmpDir, "broken")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatal(err)
	}
	csv := "id,kind,name,x,y,fixed\na,descriptor,A,nope,1,false\n"
	if err := os.WriteFile(filepath.Join(runDir, "positions.csv"), []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := st.LoadParticles("broken"); err == nil {
		t.Error("expected error for bad coordinates")
	}
}
