package sketch

import "sync"

// Locked serializes every call into a Sketch behind one mutex. Estimate takes the same
// exclusive lock as Update because decay mutates the whole matrix.
type Locked struct {
	mu     sync.Mutex
	sketch *Sketch
}

func NewLocked(s *Sketch) *Locked {
	return &Locked{sketch: s}
}

func (l *Locked) Update(element []byte, increment uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sketch.Update(element, increment)
}

func (l *Locked) Estimate(element []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sketch.Estimate(element)
}

func (l *Locked) Params() Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sketch.Params()
}

func (l *Locked) Destroy() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sketch.Destroy()
}
