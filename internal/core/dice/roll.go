package dice

import (
	"math/rand"
	"sync"

	"github.com/louisbranch/turnkeeper/internal/random"
)

// Roller rolls single dice from a shared generator. It is safe for concurrent
// use; math/rand generators are not.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller returns a Roller seeded with seed. Equal seeds roll equal
// sequences.
func NewRoller(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// NewRandomRoller returns a Roller seeded from crypto/rand.
func NewRandomRoller() (*Roller, error) {
	seed, err := random.NewSeed()
	if err != nil {
		return nil, err
	}
	return NewRoller(seed), nil
}

// Roll rolls one die with the given number of sides.
func (r *Roller) Roll(sides int) (int, error) {
	if sides <= 0 {
		return 0, ErrInvalidDiceSpec
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(sides) + 1, nil
}
