package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoardGenerator_NoRuns(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		gen := NewBoardGenerator(ColorCount, NewSeededRandomGenerator(seed))
		g := gen.Generate(8, 8)

		assert.Len(t, g.Tokens(), 64)
		assert.False(t, HasRun(g), "seed %d 生成了三连", seed)
	}
}

func TestBoardGenerator_FewColors(t *testing.T) {
	gen := NewBoardGenerator(1, NewSeededRandomGenerator(9))
	assert.Equal(t, 3, gen.Colors())

	g := gen.Generate(10, 6)
	assert.False(t, HasRun(g))
	for _, tok := range g.Tokens() {
		assert.Less(t, int(tok.Color), 3)
		assert.Equal(t, VariantPlain, tok.Variant)
	}
}

func TestHasRun(t *testing.T) {
	assert.True(t, HasRun(GridFromColors([][]int{{1, 1, 1}})))
	assert.True(t, HasRun(GridFromColors([][]int{{2}, {2}, {2}})))
	assert.False(t, HasRun(GridFromColors([][]int{{1, 1, 2, 1}})))
	assert.False(t, HasRun(GridFromColors([][]int{{1, -1, 1, 1}})))
}

func TestRandomGenerators(t *testing.T) {
	for _, rng := range []RandomGenerator{NewCryptoRandomGenerator(), NewSeededRandomGenerator(1)} {
		for i := 0; i < 100; i++ {
			v := rng.Next()
			assert.True(t, v >= 0 && v < 1)

			n := rng.NextInt(10, 20)
			assert.True(t, n >= 10 && n < 20)
		}
		assert.Equal(t, 5, rng.NextInt(5, 5))
	}

	a, b := NewSeededRandomGenerator(11), NewSeededRandomGenerator(11)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.NextInt(0, 1000), b.NextInt(0, 1000))
	}
}
