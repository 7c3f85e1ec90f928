package transpile

// Default resource bounds. All of them convert potential runaway inputs
// into a reported OUTPUT_SIZE_ERROR instead of unbounded work.
const (
	// DefaultExplosionFactor caps how many nodes a single choose
	// explosion may produce, as a multiple of its branch count
	// (options plus default). The same factor bounds the size of a
	// nested condition group relative to its direct child count.
	DefaultExplosionFactor = 16

	// DefaultMaxDepth bounds recursion during choose explosion and
	// native structural descent.
	DefaultMaxDepth = 64

	// DefaultIterationCeiling bounds the state-machine dispatch loop.
	// The emitted automation stops safely when it is reached.
	DefaultIterationCeiling = 200

	// DefaultMaxNodes bounds the total node count of a graph accepted
	// for parsing or generation.
	DefaultMaxNodes = 2000
)

// Limits holds the configurable resource bounds. The zero value of any
// field means "use the default".
type Limits struct {
	ExplosionFactor  int `toml:"explosion_factor"`
	MaxDepth         int `toml:"max_depth"`
	IterationCeiling int `toml:"iteration_ceiling"`
	MaxNodes         int `toml:"max_nodes"`
}

// DefaultLimits returns the default resource bounds.
func DefaultLimits() Limits {
	return Limits{
		ExplosionFactor:  DefaultExplosionFactor,
		MaxDepth:         DefaultMaxDepth,
		IterationCeiling: DefaultIterationCeiling,
		MaxNodes:         DefaultMaxNodes,
	}
}

func (l Limits) withDefaults() Limits {
	if l.ExplosionFactor <= 0 {
		l.ExplosionFactor = DefaultExplosionFactor
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	if l.IterationCeiling <= 0 {
		l.IterationCeiling = DefaultIterationCeiling
	}
	if l.MaxNodes <= 0 {
		l.MaxNodes = DefaultMaxNodes
	}
	return l
}
