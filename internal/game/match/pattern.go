package match

// Template 形状模板：相对锚点的偏移集合
type Template struct {
	Name    string
	Offsets []Position
}

func offsets(pairs ...[2]int) []Position {
	out := make([]Position, len(pairs))
	for i, p := range pairs {
		out[i] = Position{Col: p[0], Row: p[1]}
	}
	return out
}

// defaultTemplates 按注册顺序排列，越靠后越优先
var defaultTemplates = []Template{
	// 三连
	{Name: "line3_vertical", Offsets: offsets([2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2})},
	{Name: "line3_horizontal", Offsets: offsets([2]int{0, 0}, [2]int{1, 0}, [2]int{2, 0})},

	// 四连
	{Name: "line4_vertical", Offsets: offsets([2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2}, [2]int{0, 3})},
	{Name: "line4_horizontal", Offsets: offsets([2]int{0, 0}, [2]int{1, 0}, [2]int{2, 0}, [2]int{3, 0})},

	// L形
	{Name: "l_down_right", Offsets: offsets([2]int{0, 0}, [2]int{1, 0}, [2]int{2, 0}, [2]int{2, 1}, [2]int{2, 2})},
	{Name: "l_right_down", Offsets: offsets([2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2}, [2]int{1, 2}, [2]int{2, 2})},
	{Name: "l_down_left", Offsets: offsets([2]int{0, 0}, [2]int{1, 0}, [2]int{2, 0}, [2]int{0, 1}, [2]int{0, 2})},
	{Name: "l_up_right", Offsets: offsets([2]int{0, 0}, [2]int{1, 0}, [2]int{2, 0}, [2]int{2, -1}, [2]int{2, -2})},

	// T形
	{Name: "t_right", Offsets: offsets([2]int{0, 0}, [2]int{1, 0}, [2]int{2, 0}, [2]int{2, 1}, [2]int{2, -1})},
	{Name: "t_down", Offsets: offsets([2]int{0, 0}, [2]int{1, 0}, [2]int{2, 0}, [2]int{1, 1}, [2]int{1, 2})},
	{Name: "t_up", Offsets: offsets([2]int{0, 0}, [2]int{1, 0}, [2]int{2, 0}, [2]int{1, -1}, [2]int{1, -2})},
	{Name: "t_left", Offsets: offsets([2]int{0, 0}, [2]int{1, 0}, [2]int{2, 0}, [2]int{0, -1}, [2]int{0, 1})},

	// 五连
	{Name: "line5_vertical", Offsets: offsets([2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2}, [2]int{0, 3}, [2]int{0, 4})},
	{Name: "line5_horizontal", Offsets: offsets([2]int{0, 0}, [2]int{1, 0}, [2]int{2, 0}, [2]int{3, 0}, [2]int{4, 0})},
}

// DefaultTemplates 返回默认模板库的副本
func DefaultTemplates() []Template {
	out := make([]Template, len(defaultTemplates))
	copy(out, defaultTemplates)
	return out
}

// combinationTypeForIndex 模板下标到组合类型的映射
func combinationTypeForIndex(index int) CombinationType {
	switch {
	case index <= 1:
		return CombinationPlain
	case index <= 3:
		return CombinationBlast
	case index <= 11:
		return CombinationBeam
	default:
		return CombinationRainbow
	}
}

// ShapeClassifier 形状分类器
type ShapeClassifier struct {
	templates []Template
}

// NewShapeClassifier 使用默认模板库创建分类器
func NewShapeClassifier() *ShapeClassifier {
	return &ShapeClassifier{templates: defaultTemplates}
}

// Classify 对区域分类
//
// 模板按注册顺序倒序尝试，区域内每个宝石依次作为锚点，第一个完全命中的
// 模板/锚点组合即为结果。大小不超过2的区域不会被分类。
func (c *ShapeClassifier) Classify(cluster Cluster) (*Combination, bool) {
	if cluster.Size() <= 2 {
		return nil, false
	}

	index := make(map[Position]Token, cluster.Size())
	for _, t := range cluster.Tokens {
		index[t.Pos] = t
	}

	for i := len(c.templates) - 1; i >= 0; i-- {
		template := c.templates[i]
		for _, anchor := range cluster.Tokens {
			matched := make([]Token, 0, len(template.Offsets))
			for _, off := range template.Offsets {
				t, ok := index[anchor.Pos.Add(off.Col, off.Row)]
				if !ok {
					break
				}
				matched = append(matched, t)
			}
			if len(matched) == len(template.Offsets) {
				return &Combination{
					Type:     combinationTypeForIndex(i),
					Color:    cluster.Color,
					Tokens:   matched,
					Anchor:   anchor.Pos,
					Embedded: cluster.Specials(),
				}, true
			}
		}
	}

	return nil, false
}
