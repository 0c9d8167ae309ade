package match

// BoardGenerator 随机棋盘生成
type BoardGenerator struct {
	colors int
	rng    RandomGenerator
}

// NewBoardGenerator 创建生成器，颜色数不足3时取3
func NewBoardGenerator(colors int, rng RandomGenerator) *BoardGenerator {
	if colors < 3 {
		colors = 3
	}
	if colors > ColorCount {
		colors = ColorCount
	}
	if rng == nil {
		rng = NewCryptoRandomGenerator()
	}
	return &BoardGenerator{colors: colors, rng: rng}
}

// Colors 颜色数量
func (g *BoardGenerator) Colors() int {
	return g.colors
}

// RandomColor 随机颜色
func (g *BoardGenerator) RandomColor() Color {
	return Color(g.rng.NextInt(0, g.colors))
}

// RandomToken 随机普通宝石
func (g *BoardGenerator) RandomToken(col, row int) Token {
	return NewToken(col, row, g.RandomColor(), VariantPlain)
}

// Generate 生成不含任何三连的满棋盘
//
// 逐格选色时排除会与左侧两格或上方两格组成三连的颜色，颜色数不少于3时总有可选项。
func (g *BoardGenerator) Generate(width, height int) *Grid {
	grid := NewGrid(width, height)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			grid.Set(col, row, NewToken(col, row, g.pickColor(grid, col, row), VariantPlain))
		}
	}
	return grid
}

func (g *BoardGenerator) pickColor(grid *Grid, col, row int) Color {
	banned := make(map[Color]bool, 2)
	if c, ok := runColor(grid, Pos(col-1, row), Pos(col-2, row)); ok {
		banned[c] = true
	}
	if c, ok := runColor(grid, Pos(col, row-1), Pos(col, row-2)); ok {
		banned[c] = true
	}

	allowed := make([]Color, 0, g.colors)
	for c := 0; c < g.colors; c++ {
		if !banned[Color(c)] {
			allowed = append(allowed, Color(c))
		}
	}
	return allowed[g.rng.NextInt(0, len(allowed))]
}

// runColor 两个格子同色时返回该颜色
func runColor(grid *Grid, a, b Position) (Color, bool) {
	ta, okA := grid.At(a)
	tb, okB := grid.At(b)
	if !okA || !okB || ta.Color != tb.Color {
		return 0, false
	}
	return ta.Color, true
}

// HasRun 棋盘上是否存在横向或纵向三连
func HasRun(grid *Grid) bool {
	for _, t := range grid.Tokens() {
		for _, d := range []Position{{Col: 1}, {Row: 1}} {
			if c, ok := runColor(grid, t.Pos.Add(d.Col, d.Row), t.Pos.Add(2*d.Col, 2*d.Row)); ok && c == t.Color {
				return true
			}
		}
	}
	return false
}
