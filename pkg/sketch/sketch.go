// Package sketch implements a Count-Min Sketch with optional exponential decay.
//
// Estimates never under-count the true frequency of an element and over-count by at most
// epsilon*total with the probability implied by delta. When decay is enabled, every call
// (update or estimate) first scales all counters by exp(-decayRatio), so recent activity
// outweighs older activity in proportion to how often the sketch is called.
//
// A Sketch is not safe for concurrent use; wrap it with NewLocked when it is shared.
package sketch

import (
	"fmt"
	"math"

	"github.com/Borislavv/count-min-sketch/pkg/config"
	"github.com/Borislavv/count-min-sketch/pkg/hash"
	"github.com/Borislavv/count-min-sketch/pkg/utils"
	"github.com/rs/zerolog/log"
)

// Counter is the frequency-estimation surface shared by Sketch and Locked.
type Counter interface {
	// Update adds increment to the element's counters and returns the new estimate.
	Update(element []byte, increment uint64) (uint64, error)
	// Estimate returns the current estimate for the element without incrementing it.
	Estimate(element []byte) (uint64, error)
	Params() Params
	Destroy()
}

var (
	_ Counter = (*Sketch)(nil)
	_ Counter = (*Locked)(nil)
)

type Sketch struct {
	params   Params
	matrix   *matrix
	hash     hash.Func
	seed     uint64
	overflow Overflow
}

// New constructs a sketch with width = ceil(2/epsilon) and depth = ceil(ln(1-delta)/ln(0.5)).
// A positive decayRatio enables decay with weight exp(-decayRatio).
func New(epsilon, delta, decayRatio float64, opts ...Option) (*Sketch, error) {
	s := settings{
		hash:        hash.XXH3,
		overflow:    OverflowSaturate,
		maxCounters: DefaultMaxCounters,
	}
	for _, opt := range opts {
		opt(&s)
	}

	params, err := newParams(epsilon, delta, decayRatio)
	if err != nil {
		return nil, err
	}

	counters := uint64(params.depth) * uint64(params.width)
	if counters > uint64(s.maxCounters) || counters > math.MaxInt/8 {
		return nil, fmt.Errorf("%w: %d rows x %d counters exceeds the limit of %d counters",
			ErrResourceExhausted, params.depth, params.width, s.maxCounters)
	}

	sketch := &Sketch{
		params:   params,
		matrix:   newMatrix(params.depth, params.width),
		hash:     s.hash,
		seed:     s.seed,
		overflow: s.overflow,
	}

	log.Debug().Msgf("[sketch] constructed depth=%d width=%d mem=%s decay=%t weight=%v overflow=%s",
		params.depth, params.width, utils.FmtMem(params.Mem()), params.decayEnabled, params.decayWeight, s.overflow)

	return sketch, nil
}

// NewFromConfig builds a sketch from the sketch section of the YAML config.
func NewFromConfig(cfg config.Sketch) (*Sketch, error) {
	fn, err := hash.ByName(cfg.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	overflow, err := ParseOverflow(cfg.Overflow)
	if err != nil {
		return nil, err
	}
	return New(cfg.Epsilon, cfg.Delta, cfg.DecayRatio,
		WithHash(fn),
		WithSeed(cfg.Seed),
		WithOverflow(overflow),
		WithMaxCounters(cfg.MaxCounters),
	)
}

// Destroy releases the counter matrix. Safe on nil and on an already destroyed sketch;
// any later call returns ErrUninitialized.
func (s *Sketch) Destroy() {
	if s == nil {
		return
	}
	s.matrix = nil
	s.params = Params{}
}

// Params returns the zero value for a nil or destroyed sketch.
func (s *Sketch) Params() Params {
	if s == nil {
		return Params{}
	}
	return s.params
}

func (s *Sketch) Update(element []byte, increment uint64) (uint64, error) {
	return s.traverse(element, increment)
}

// Estimate still applies decay when it is enabled.
func (s *Sketch) Estimate(element []byte) (uint64, error) {
	return s.traverse(element, 0)
}

func (s *Sketch) UpdateString(element string, increment uint64) (uint64, error) {
	return s.Update([]byte(element), increment)
}

func (s *Sketch) EstimateString(element string) (uint64, error) {
	return s.Estimate([]byte(element))
}

// traverse decays the matrix if enabled, then walks one counter per row, adding increment
// when it is non-zero, and returns the smallest counter seen.
func (s *Sketch) traverse(element []byte, increment uint64) (uint64, error) {
	if s == nil || s.matrix == nil {
		return 0, ErrUninitialized
	}

	a, b := s.baseHashes(element)

	if increment != 0 && s.overflow == OverflowFail {
		if err := s.checkOverflow(a, b, increment); err != nil {
			return 0, err
		}
	}

	if s.params.decayEnabled {
		s.matrix.scale(s.params.decayWeight)
	}

	minimum := uint64(math.MaxUint64)
	for row := uint64(0); row < uint64(s.params.depth); row++ {
		col := s.column(a, b, row)

		var v uint64
		if increment != 0 {
			v = s.matrix.add(row, col, increment)
		} else {
			v = s.matrix.get(row, col)
		}

		if v < minimum {
			minimum = v
		}
	}

	return minimum, nil
}

// baseHashes splits one 64-bit hash into its low and high halves.
func (s *Sketch) baseHashes(element []byte) (a, b uint64) {
	h := s.hash(element, s.seed)
	return uint64(uint32(h)), uint64(uint32(h >> 32))
}

// column derives the row's counter index by double hashing: (a + b*row) mod width.
// The sum is taken in 64 bits so it cannot wrap for any uint32 depth.
func (s *Sketch) column(a, b, row uint64) uint64 {
	return (a + b*row) % s.matrix.width
}

// checkOverflow reports ErrOverflow if any counter the element maps to would overflow,
// taking the pending decay into account. Nothing is mutated.
func (s *Sketch) checkOverflow(a, b, increment uint64) error {
	for row := uint64(0); row < uint64(s.params.depth); row++ {
		v := s.matrix.get(row, s.column(a, b, row))
		if s.params.decayEnabled {
			v = scaleCounter(v, s.params.decayWeight)
		}
		if _, overflow := utils.AddSaturating(v, increment); overflow {
			return fmt.Errorf("%w: row %d holds %d, increment %d", ErrOverflow, row, v, increment)
		}
	}
	return nil
}
