package layout

import (
	"log/slog"

	"github.com/san-kum/forcegraph/internal/dynamo"
	"github.com/san-kum/forcegraph/internal/integrators"
	"github.com/san-kum/forcegraph/internal/physics"
	"gonum.org/v1/gonum/spatial/r2"
)

// Settings holds the force constants and particle defaults used when
// materializing graph items.
type Settings struct {
	ParentSpring  physics.SpringParams `yaml:"parent_spring" toml:"parent_spring" json:"parent_spring"`
	RelatedSpring physics.SpringParams `yaml:"related_spring" toml:"related_spring" json:"related_spring"`
	Magnet        physics.MagnetParams `yaml:"magnet" toml:"magnet" json:"magnet"`

	DescriptorMass float64 `yaml:"descriptor_mass" toml:"descriptor_mass" json:"descriptor_mass"`
	RelationMass   float64 `yaml:"relation_mass" toml:"relation_mass" json:"relation_mass"`
	DragMass       float64 `yaml:"drag_mass" toml:"drag_mass" json:"drag_mass"`

	// Footprint of a descriptor, used for bounds clamping.
	NodeWidth  float64 `yaml:"node_width" toml:"node_width" json:"node_width"`
	NodeHeight float64 `yaml:"node_height" toml:"node_height" json:"node_height"`

	// New particles land within Jitter of their anchor on each axis.
	Jitter float64 `yaml:"jitter" toml:"jitter" json:"jitter"`
	Seed   uint64  `yaml:"seed" toml:"seed" json:"seed"`
}

func DefaultSettings() Settings {
	return Settings{
		ParentSpring:   physics.DefaultParentSpring,
		RelatedSpring:  physics.DefaultRelatedSpring,
		Magnet:         physics.DefaultMagnet,
		DescriptorMass: 1,
		RelationMass:   1,
		DragMass:       1,
		NodeWidth:      4,
		NodeHeight:     2,
		Jitter:         1,
		Seed:           1,
	}
}

// Observer is told about admissions, queue depths and failed commits.
type Observer interface {
	Admitted(kind string)
	Queued(kind string, depth int)
	Failed(op string)
}

type Option func(*Controller)

func WithSettings(s Settings) Option   { return func(c *Controller) { c.settings = s } }
func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.logger = l } }
func WithObserver(o Observer) Option   { return func(c *Controller) { c.observer = o } }

// WithOnError installs a hook called with every CommitError.
func WithOnError(fn func(error)) Option { return func(c *Controller) { c.onError = fn } }

// WithIntegrator sets the factory for each context's integrator.
func WithIntegrator(fn func() dynamo.Integrator) Option {
	return func(c *Controller) { c.newIntegrator = fn }
}

// WithModelOptions passes options to both contexts' particle models.
func WithModelOptions(opts ...physics.Option) Option {
	return func(c *Controller) { c.modelOpts = append(c.modelOpts, opts...) }
}

// WithPositions places descriptors at known positions when they are
// admitted instead of jittering them around their parent.
func WithPositions(pos map[dynamo.ID]r2.Vec) Option {
	return func(c *Controller) { c.positions = pos }
}

func defaultIntegrator() dynamo.Integrator {
	return integrators.NewRK4()
}
