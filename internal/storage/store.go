package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/san-kum/forcegraph/internal/dynamo"
	"github.com/san-kum/forcegraph/internal/layout"
	"gonum.org/v1/gonum/spatial/r2"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one saved layout. Particle positions live next to
// it in positions.csv.
type RunMetadata struct {
	ID         string             `json:"id"`
	Data       string             `json:"data"`
	Preset     string             `json:"preset"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       uint64             `json:"seed"`
	Dt         float64            `json:"dt"`
	Integrator string             `json:"integrator"`
	Ticks      int                `json:"ticks"`
	Settled    bool               `json:"settled"`
	Context    string             `json:"context"`
	Drilled    dynamo.ID          `json:"drilled,omitempty"`
	Particles  int                `json:"particles"`
	Edges      []layout.EdgeState `json:"edges"`
	Instances  []layout.Instance  `json:"instances"`
	Metrics    map[string]float64 `json:"metrics"`
}

var positionsHeader = []string{"id", "kind", "name", "x", "y", "fixed"}

// Save writes meta and snap under a new run id, which it returns. Fields of
// meta taken from the snapshot are overwritten.
func (s *Store) Save(meta RunMetadata, snap layout.Snapshot) (string, error) {
	name := filepath.Base(meta.Data)
	if name == "." || name == "" || name == string(filepath.Separator) {
		name = "layout"
	}
	meta.Timestamp = time.Now()
	meta.ID = fmt.Sprintf("%s_%d", name, meta.Timestamp.UnixNano())
	meta.Context = snap.Context
	meta.Drilled = snap.Drilled
	meta.Particles = len(snap.Particles)
	meta.Edges = snap.Edges
	meta.Instances = snap.Instances

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "positions.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(positionsHeader); err != nil {
		return "", err
	}
	for _, p := range snap.Particles {
		row := []string{
			string(p.ID),
			p.Kind,
			p.Name,
			strconv.FormatFloat(p.X, 'g', -1, 64),
			strconv.FormatFloat(p.Y, 'g', -1, 64),
			strconv.FormatBool(p.Fixed),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	slices.SortFunc(runs, func(a, b RunMetadata) int { return a.Timestamp.Compare(b.Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadParticles(runID string) ([]layout.ParticleState, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "positions.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(positionsHeader)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []layout.ParticleState{}, nil
	}

	out := make([]layout.ParticleState, 0, len(records)-1)
	for i, rec := range records[1:] {
		x, errX := strconv.ParseFloat(rec[3], 64)
		y, errY := strconv.ParseFloat(rec[4], 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("positions.csv row %d: bad coordinates", i+2)
		}
		fixed, _ := strconv.ParseBool(rec[5])
		out = append(out, layout.ParticleState{
			ID:    dynamo.ID(rec[0]),
			Kind:  rec[1],
			Name:  rec[2],
			X:     x,
			Y:     y,
			Fixed: fixed,
		})
	}
	return out, nil
}

// LoadPositions returns the saved position of every particle of a run.
func (s *Store) LoadPositions(runID string) (map[dynamo.ID]r2.Vec, error) {
	ps, err := s.LoadParticles(runID)
	if err != nil {
		return nil, err
	}
	pos := make(map[dynamo.ID]r2.Vec, len(ps))
	for _, p := range ps {
		pos[p.ID] = r2.Vec{X: p.X, Y: p.Y}
	}
	return pos, nil
}

// LoadSnapshot reassembles the snapshot a run was saved from.
func (s *Store) LoadSnapshot(runID string) (*layout.Snapshot, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	ps, err := s.LoadParticles(runID)
	if err != nil {
		return nil, err
	}
	return &layout.Snapshot{
		Context:   meta.Context,
		Drilled:   meta.Drilled,
		Particles: ps,
		Edges:     meta.Edges,
		Instances: meta.Instances,
	}, nil
}
