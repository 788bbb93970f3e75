package sketch

import (
	"math"

	"github.com/Borislavv/count-min-sketch/pkg/utils"
)

// matrix is a dense depth x width block of counters stored row after row.
type matrix struct {
	counters []uint64
	width    uint64
}

func newMatrix(depth, width uint32) *matrix {
	return &matrix{
		counters: make([]uint64, int(depth)*int(width)),
		width:    uint64(width),
	}
}

// index maps (row, col) to the flat offset; the stride is always width.
func (m *matrix) index(row, col uint64) uint64 {
	return row*m.width + col
}

func (m *matrix) get(row, col uint64) uint64 {
	return m.counters[m.index(row, col)]
}

func (m *matrix) set(row, col, v uint64) {
	m.counters[m.index(row, col)] = v
}

// add increments a counter saturating at math.MaxUint64 and returns the new value.
func (m *matrix) add(row, col, delta uint64) uint64 {
	i := m.index(row, col)
	v, _ := utils.AddSaturating(m.counters[i], delta)
	m.counters[i] = v
	return v
}

// scale multiplies every counter by weight, flooring the result.
func (m *matrix) scale(weight float64) {
	for i, v := range m.counters {
		if v != 0 {
			m.counters[i] = scaleCounter(v, weight)
		}
	}
}

// scaleCounter returns floor(v*weight) for weight in (0,1]. The result never exceeds v,
// so precision lost converting large counters to float64 cannot grow a counter.
func scaleCounter(v uint64, weight float64) uint64 {
	scaled := math.Floor(float64(v) * weight)
	if scaled >= float64(v) {
		return v
	}
	return uint64(scaled)
}
