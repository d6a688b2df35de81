package puzzle

import "math/rand"

// HandSize is the number of shapes dealt at once.
const HandSize = 3

// Hand is the ordered set of shapes a player may place next.
type Hand []Shape

// Deal draws HandSize shapes uniformly from the catalog, with replacement.
func Deal(rng *rand.Rand) Hand {
	h := make(Hand, HandSize)
	for i := range h {
		h[i] = RandomShape(rng)
	}
	return h
}

// Without returns a new hand with the shape at index i removed.
func (h Hand) Without(i int) Hand {
	out := make(Hand, 0, len(h)-1)
	out = append(out, h[:i]...)
	return append(out, h[i+1:]...)
}

// Clone returns a copy that shares no backing array with h.
func (h Hand) Clone() Hand {
	out := make(Hand, len(h))
	copy(out, h)
	return out
}
