package engine

import (
	"math/rand/v2"
	"sync"
)

// Roller is the randomness source for die draws.
//
// Implementations must be safe for concurrent use: one Engine serves every room.
type Roller interface {
	// Intn returns a value in [0, n).
	Intn(n int) int
}

type globalRoller struct{}

func (globalRoller) Intn(n int) int {
	return rand.IntN(n)
}

// DefaultRoller returns a Roller backed by the runtime's global generator.
func DefaultRoller() Roller {
	return globalRoller{}
}

// SeededRoller is a reproducible Roller.
type SeededRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededRoller creates a Roller whose sequence depends only on seed.
func NewSeededRoller(seed uint64) *SeededRoller {
	return &SeededRoller{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Intn implements Roller.
func (r *SeededRoller) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

// FixedRoller replays a fixed sequence of die faces (1-6), wrapping around at the end.
type FixedRoller struct {
	mu    sync.Mutex
	faces []int
	next  int
}

// NewFixedRoller creates a FixedRoller. It panics when no face is given.
func NewFixedRoller(faces ...int) *FixedRoller {
	if len(faces) == 0 {
		panic("engine: NewFixedRoller needs at least one face")
	}
	return &FixedRoller{faces: faces}
}

// Intn implements Roller. The face is converted to a zero-based draw and clamped to n.
func (r *FixedRoller) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	face := r.faces[r.next%len(r.faces)]
	r.next++
	v := face - 1
	if v < 0 {
		v = 0
	}
	if v >= n {
		v = n - 1
	}
	return v
}

// Push appends faces to the sequence.
func (r *FixedRoller) Push(faces ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faces = append(r.faces, faces...)
}

// Drawn reports how many faces have been consumed.
func (r *FixedRoller) Drawn() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next
}
