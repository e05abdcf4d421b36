/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: bitmap.go
Description: Compact bitmap used for covered-PC and nondeterministic-PC tracking.
Word-aligned storage with popcount-based set-bit counting.
*/

package trace

import "math/bits"

// BitMap is a fixed-size bitmap over PC indices.
type BitMap struct {
	words []uint64
	size  int
}

// NewBitMap creates a zeroed bitmap holding size bits.
func NewBitMap(size int) *BitMap {
	return &BitMap{
		words: make([]uint64, (size+63)/64),
		size:  size,
	}
}

// Set sets the bit at idx.
func (b *BitMap) Set(idx int) {
	if idx < 0 || idx >= b.size {
		return
	}
	b.words[idx/64] |= 1 << uint(idx%64)
}

// IsSet reports whether the bit at idx is set.
func (b *BitMap) IsSet(idx int) bool {
	if idx < 0 || idx >= b.size {
		return false
	}
	return b.words[idx/64]&(1<<uint(idx%64)) != 0
}

// Size returns the bitmap capacity in bits.
func (b *BitMap) Size() int { return b.size }

// NumSetBits counts the set bits.
func (b *BitMap) NumSetBits() int {
	total := 0
	for _, w := range b.words {
		total += bits.OnesCount64(w)
	}
	return total
}
