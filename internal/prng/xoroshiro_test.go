package prng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func Test_NextF64InUnitInterval(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		draws := rapid.IntRange(1, 64).Draw(t, "draws")

		g := New(seed)
		for i := 0; i < draws; i++ {
			v := g.NextF64()
			assert.GreaterOrEqualf(t, v, 0.0, "NextF64 below 0")
			assert.Lessf(t, v, 1.0, "NextF64 at or above 1")
		}
	})
}

func Test_NextI64RangeStaysInBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		lo := rapid.Int64Range(-1_000_000, 1_000_000).Draw(t, "lo")
		width := rapid.Int64Range(1, 1_000_000).Draw(t, "width")
		hi := lo + width

		g := New(seed)
		for i := 0; i < 32; i++ {
			v := g.NextI64Range(lo, hi)
			assert.GreaterOrEqualf(t, v, lo, "below lower bound")
			assert.Lessf(t, v, hi, "at or above upper bound")
		}
	})
}

func Test_SameSeedReproducesSequence(t *testing.T) {
	a := New(12345)
	b := New(12345)
	for i := 0; i < 16; i++ {
		assert.Equal(t, a.NextU64(), b.NextU64())
	}
}

func Test_FastSeededGeneratorsDiverge(t *testing.T) {
	a := NewFastSeeded()
	b := NewFastSeeded()
	assert.NotEqual(t, a.NextU64(), b.NextU64())
}
