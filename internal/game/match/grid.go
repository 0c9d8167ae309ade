package match

// Cell 棋盘格子，空格是显式状态而不是空指针
type Cell struct {
	token  Token
	filled bool
}

// EmptyCell 空格
func EmptyCell() Cell {
	return Cell{}
}

// FilledCell 有宝石的格子
func FilledCell(t Token) Cell {
	return Cell{token: t, filled: true}
}

// IsEmpty 是否为空
func (c Cell) IsEmpty() bool {
	return !c.filled
}

// Token 取出宝石
func (c Cell) Token() (Token, bool) {
	return c.token, c.filled
}

// Grid 固定大小的棋盘，cells[row][col]
//
// 越界访问不会报错：读取返回空，写入无效果。
type Grid struct {
	width  int
	height int
	cells  [][]Cell
}

// NewGrid 创建空棋盘
func NewGrid(width, height int) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	cells := make([][]Cell, height)
	for row := range cells {
		cells[row] = make([]Cell, width)
	}
	return &Grid{width: width, height: height, cells: cells}
}

// GridFromColors 由颜色矩阵（[row][col]）构建普通宝石棋盘，负数表示空格
func GridFromColors(colors [][]int) *Grid {
	height := len(colors)
	width := 0
	if height > 0 {
		width = len(colors[0])
	}
	g := NewGrid(width, height)
	for row := 0; row < height; row++ {
		for col := 0; col < width && col < len(colors[row]); col++ {
			if colors[row][col] >= 0 {
				g.Set(col, row, NewToken(col, row, Color(colors[row][col]), VariantPlain))
			}
		}
	}
	return g
}

// Width 列数
func (g *Grid) Width() int {
	return g.width
}

// Height 行数
func (g *Grid) Height() int {
	return g.height
}

// InBounds 坐标是否在棋盘内
func (g *Grid) InBounds(col, row int) bool {
	return col >= 0 && col < g.width && row >= 0 && row < g.height
}

// Get 读取宝石，越界或空格返回 false
func (g *Grid) Get(col, row int) (Token, bool) {
	if !g.InBounds(col, row) {
		return Token{}, false
	}
	return g.cells[row][col].Token()
}

// At 按坐标读取
func (g *Grid) At(p Position) (Token, bool) {
	return g.Get(p.Col, p.Row)
}

// Set 放置宝石，宝石位置被改写为目标格
func (g *Grid) Set(col, row int, t Token) {
	if !g.InBounds(col, row) {
		return
	}
	t.Pos = Pos(col, row)
	g.cells[row][col] = FilledCell(t)
}

// Clear 清空格子
func (g *Grid) Clear(col, row int) {
	if !g.InBounds(col, row) {
		return
	}
	g.cells[row][col] = EmptyCell()
}

// IsEmpty 格子是否为空，越界返回 false
func (g *Grid) IsEmpty(col, row int) bool {
	if !g.InBounds(col, row) {
		return false
	}
	return g.cells[row][col].IsEmpty()
}

// Swap 交换两个格子的内容
func (g *Grid) Swap(a, b Position) {
	if !g.InBounds(a.Col, a.Row) || !g.InBounds(b.Col, b.Row) {
		return
	}
	ca, cb := g.cells[a.Row][a.Col], g.cells[b.Row][b.Col]
	g.cells[a.Row][a.Col] = relocate(cb, a)
	g.cells[b.Row][b.Col] = relocate(ca, b)
}

func relocate(c Cell, p Position) Cell {
	if c.filled {
		c.token.Pos = p
	}
	return c
}

// Equal 结构相等：尺寸一致且每格相等（两个空格相等，空与非空不等）
func (g *Grid) Equal(o *Grid) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.width != o.width || g.height != o.height {
		return false
	}
	for row := 0; row < g.height; row++ {
		for col := 0; col < g.width; col++ {
			if g.cells[row][col] != o.cells[row][col] {
				return false
			}
		}
	}
	return true
}

// Clone 深拷贝
func (g *Grid) Clone() *Grid {
	c := NewGrid(g.width, g.height)
	for row := 0; row < g.height; row++ {
		copy(c.cells[row], g.cells[row])
	}
	return c
}

// Tokens 行优先遍历所有宝石
func (g *Grid) Tokens() []Token {
	out := make([]Token, 0, g.width*g.height)
	for row := 0; row < g.height; row++ {
		for col := 0; col < g.width; col++ {
			if t, ok := g.cells[row][col].Token(); ok {
				out = append(out, t)
			}
		}
	}
	return out
}

// ColorMatrix 颜色矩阵（[row][col]），空格为 -1
func (g *Grid) ColorMatrix() [][]int {
	out := make([][]int, g.height)
	for row := 0; row < g.height; row++ {
		out[row] = make([]int, g.width)
		for col := 0; col < g.width; col++ {
			if t, ok := g.cells[row][col].Token(); ok {
				out[row][col] = int(t.Color)
			} else {
				out[row][col] = -1
			}
		}
	}
	return out
}

// VariantMatrix 种类矩阵（[row][col]），空格为 -1
func (g *Grid) VariantMatrix() [][]int {
	out := make([][]int, g.height)
	for row := 0; row < g.height; row++ {
		out[row] = make([]int, g.width)
		for col := 0; col < g.width; col++ {
			if t, ok := g.cells[row][col].Token(); ok {
				out[row][col] = int(t.Variant)
			} else {
				out[row][col] = -1
			}
		}
	}
	return out
}
