package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid_OutOfRangeFailsSoft(t *testing.T) {
	g := NewGrid(4, 3)

	_, ok := g.Get(-1, 0)
	assert.False(t, ok)
	_, ok = g.Get(4, 0)
	assert.False(t, ok)
	assert.False(t, g.IsEmpty(0, 3), "越界格子不算空")
	assert.True(t, g.IsEmpty(0, 0))

	before := g.Clone()
	g.Set(10, 10, NewToken(0, 0, 1, VariantPlain))
	g.Clear(-1, -1)
	g.Swap(Pos(0, 0), Pos(9, 9))
	assert.True(t, g.Equal(before))
}

func TestGrid_SetStampsPosition(t *testing.T) {
	g := NewGrid(3, 3)
	g.Set(2, 1, NewToken(0, 0, 4, VariantBeam))

	tok, ok := g.Get(2, 1)
	require.True(t, ok)
	assert.Equal(t, Pos(2, 1), tok.Pos)
	assert.Equal(t, Color(4), tok.Color)
	assert.Equal(t, VariantBeam, tok.Variant)

	g.Clear(2, 1)
	assert.True(t, g.IsEmpty(2, 1))
}

func TestGrid_Equal(t *testing.T) {
	a := GridFromColors([][]int{{0, 1}, {2, -1}})
	b := GridFromColors([][]int{{0, 1}, {2, -1}})
	assert.True(t, a.Equal(b), "两个空格相等")

	b.Set(1, 1, NewToken(1, 1, 3, VariantPlain))
	assert.False(t, a.Equal(b), "空格与非空格不等")

	assert.False(t, a.Equal(NewGrid(3, 2)))
	assert.False(t, a.Equal(nil))

	var nilGrid *Grid
	assert.True(t, nilGrid.Equal(nil))
}

func TestGrid_SwapRelocatesTokens(t *testing.T) {
	g := GridFromColors([][]int{{0, 1, 2}})
	g.Swap(Pos(0, 0), Pos(2, 0))

	left, _ := g.Get(0, 0)
	right, _ := g.Get(2, 0)
	assert.Equal(t, Color(2), left.Color)
	assert.Equal(t, Pos(0, 0), left.Pos)
	assert.Equal(t, Color(0), right.Color)
	assert.Equal(t, Pos(2, 0), right.Pos)
}

func TestGrid_CloneIsIndependent(t *testing.T) {
	g := GridFromColors(backgroundColors(5, 5))
	c := g.Clone()
	c.Clear(2, 2)

	assert.False(t, g.IsEmpty(2, 2))
	assert.False(t, g.Equal(c))
}

func TestGrid_Matrices(t *testing.T) {
	g := GridFromColors([][]int{{3, -1}, {0, 5}})
	setSpecial(g, Pos(1, 1), VariantRainbow)

	assert.Equal(t, [][]int{{3, -1}, {0, 5}}, g.ColorMatrix())
	assert.Equal(t, [][]int{{0, -1}, {0, int(VariantRainbow)}}, g.VariantMatrix())
	assert.Len(t, g.Tokens(), 3)
}
