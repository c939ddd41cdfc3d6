package broker

import "math/bits"

// bitset is a fixed-size bit vector used to track which task indices of a
// Job have been completed. No example in the reference pack imports a
// bitset library directly (the one pack transitive dependency that ships
// one is pulled in by an unrelated crypto library), so this narrow piece of
// bit math is implemented directly against math/bits rather than adding a
// dependency nothing else in the tree would use.
type bitset struct {
	words []uint64
	n     int
}

func newBitset(n int) bitset {
	return bitset{words: make([]uint64, (n+63)/64), n: n}
}

func (b *bitset) set(i int) { b.words[i/64] |= 1 << uint(i%64) }

func (b *bitset) get(i int) bool { return b.words[i/64]&(1<<uint(i%64)) != 0 }

func (b *bitset) popcount() int {
	c := 0
	for _, w := range b.words {
		c += bits.OnesCount64(w)
	}
	return c
}
