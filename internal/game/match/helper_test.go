package match

// backgroundColors 互不相连的背景：横向相邻差1，纵向相邻差3，只使用颜色1~6
func backgroundColors(width, height int) [][]int {
	colors := make([][]int, height)
	for row := range colors {
		colors[row] = make([]int, width)
		for col := range colors[row] {
			colors[row][col] = (col+3*row)%6 + 1
		}
	}
	return colors
}

// boardWith 在背景上放置指定颜色
func boardWith(width, height int, planted map[Position]int) *Grid {
	colors := backgroundColors(width, height)
	for p, c := range planted {
		colors[p.Row][p.Col] = c
	}
	return GridFromColors(colors)
}

// setSpecial 把格子改成特殊宝石，颜色不变
func setSpecial(g *Grid, p Position, v Variant) {
	t, _ := g.At(p)
	t.Variant = v
	g.Set(p.Col, p.Row, t)
}

// clusterOf 由坐标构造同色区域
func clusterOf(g *Grid, positions ...Position) Cluster {
	var c Cluster
	for i, p := range positions {
		t, _ := g.At(p)
		if i == 0 {
			c.Color = t.Color
		}
		c.Tokens = append(c.Tokens, t)
	}
	return c
}
