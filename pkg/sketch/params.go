package sketch

import (
	"fmt"
	"math"

	"github.com/Borislavv/count-min-sketch/pkg/config"
	"github.com/Borislavv/count-min-sketch/pkg/hash"
)

const (
	DefaultEpsilon        = config.DefaultEpsilon
	DefaultDelta          = config.DefaultDelta
	RecommendedDecayRatio = config.RecommendedDecayRatio
	DefaultMaxCounters    = config.DefaultMaxCounters
)

// Params holds the sketch dimensions and accuracy settings. Immutable after construction.
type Params struct {
	depth        uint32
	width        uint32
	epsilon      float64
	delta        float64
	decayEnabled bool
	decayWeight  float64
}

// Depth is the number of counter rows, derived from delta.
func (p Params) Depth() uint32 { return p.depth }

// Width is the number of counters per row, derived from epsilon.
func (p Params) Width() uint32 { return p.width }

func (p Params) Epsilon() float64 { return p.epsilon }

func (p Params) Delta() float64 { return p.delta }

// DecayEnabled reports whether every call scales all counters by DecayWeight.
func (p Params) DecayEnabled() bool { return p.decayEnabled }

// DecayWeight is exp(-decayRatio), or 0 when decay is disabled.
func (p Params) DecayWeight() float64 { return p.decayWeight }

// Counters is depth*width.
func (p Params) Counters() int { return int(p.depth) * int(p.width) }

// Mem is the size of the counter matrix in bytes.
func (p Params) Mem() int64 { return int64(p.Counters()) * 8 }

// newParams computes width = ceil(2/epsilon) and depth = ceil(ln(1-delta)/ln(0.5)).
func newParams(epsilon, delta, decayRatio float64) (Params, error) {
	if !(epsilon > 0) || !(delta > 0) {
		return Params{}, fmt.Errorf("%w: epsilon and delta must be > 0.0, got epsilon=%v delta=%v",
			ErrInvalidParameter, epsilon, delta)
	}

	width := math.Ceil(2 / epsilon)
	depth := math.Ceil(math.Log(1-delta) / math.Log(0.5))
	// NaN fails both comparisons; delta >= 1 yields an infinite or NaN depth.
	if !(width >= 1) || !(depth >= 1) || math.IsInf(depth, 1) {
		return Params{}, fmt.Errorf("%w: epsilon=%v delta=%v give depth=%v width=%v",
			ErrInvalidParameter, epsilon, delta, depth, width)
	}
	if width > math.MaxUint32 || depth > math.MaxUint32 {
		return Params{}, fmt.Errorf("%w: epsilon=%v delta=%v give depth=%v width=%v",
			ErrResourceExhausted, epsilon, delta, depth, width)
	}

	p := Params{
		depth:   uint32(depth),
		width:   uint32(width),
		epsilon: epsilon,
		delta:   delta,
	}
	if decayRatio > 0 {
		p.decayEnabled = true
		p.decayWeight = math.Exp(-decayRatio)
	}
	return p, nil
}

// Overflow selects what happens when an increment would push a counter past math.MaxUint64.
type Overflow uint8

const (
	// OverflowSaturate clamps the counter at math.MaxUint64.
	OverflowSaturate Overflow = iota
	// OverflowFail rejects the whole call with ErrOverflow before anything is mutated.
	OverflowFail
)

func (o Overflow) String() string {
	if o == OverflowFail {
		return config.OverflowFail
	}
	return config.OverflowSaturate
}

func ParseOverflow(s string) (Overflow, error) {
	switch s {
	case config.OverflowSaturate, "":
		return OverflowSaturate, nil
	case config.OverflowFail:
		return OverflowFail, nil
	}
	return OverflowSaturate, fmt.Errorf("%w: unknown overflow policy %q", ErrInvalidParameter, s)
}

type settings struct {
	hash        hash.Func
	seed        uint64
	overflow    Overflow
	maxCounters int
}

type Option func(*settings)

// WithHash sets the row hash function. Default is hash.XXH3.
func WithHash(fn hash.Func) Option {
	return func(s *settings) {
		if fn != nil {
			s.hash = fn
		}
	}
}

// WithSeed sets the initial value handed to the hash function.
func WithSeed(seed uint64) Option { return func(s *settings) { s.seed = seed } }

func WithOverflow(o Overflow) Option { return func(s *settings) { s.overflow = o } }

// WithMaxCounters caps depth*width. Non-positive values keep DefaultMaxCounters.
func WithMaxCounters(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxCounters = n
		}
	}
}
