package match

import (
	"fmt"
	"sort"
)

// Color 宝石颜色（0 ~ ColorCount-1）
type Color int

// ColorCount 默认颜色数量
const ColorCount = 7

// Variant 宝石种类
type Variant int

const (
	VariantPlain   Variant = iota // 普通
	VariantBlast                  // 爆炸（周围8格）
	VariantBeam                   // 十字（整行+整列）
	VariantRainbow                // 彩虹（同色全清）
)

var variantNames = map[Variant]string{
	VariantPlain:   "plain",
	VariantBlast:   "blast",
	VariantBeam:    "beam",
	VariantRainbow: "rainbow",
}

// String 实现Stringer
func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// IsSpecial 是否为特殊宝石
func (v Variant) IsSpecial() bool {
	return v != VariantPlain
}

// Position 棋盘坐标（Col 列，Row 行，Row 0 为顶部）
type Position struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Pos 构造坐标
func Pos(col, row int) Position {
	return Position{Col: col, Row: row}
}

// Add 平移
func (p Position) Add(dc, dr int) Position {
	return Position{Col: p.Col + dc, Row: p.Row + dr}
}

// IsAdjacent 四邻接（曼哈顿距离恰好为1）
func (p Position) IsAdjacent(o Position) bool {
	dc, dr := p.Col-o.Col, p.Row-o.Row
	if dc < 0 {
		dc = -dc
	}
	if dr < 0 {
		dr = -dr
	}
	return dc+dr == 1
}

// String 实现Stringer
func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Col, p.Row)
}

// Token 棋盘上的宝石，身份由位置、颜色、种类共同决定
type Token struct {
	Pos     Position `json:"pos"`
	Color   Color    `json:"color"`
	Variant Variant  `json:"variant"`
}

// NewToken 创建宝石
func NewToken(col, row int, color Color, variant Variant) Token {
	return Token{Pos: Pos(col, row), Color: color, Variant: variant}
}

// IsSpecial 是否为特殊宝石
func (t Token) IsSpecial() bool {
	return t.Variant.IsSpecial()
}

// String 实现Stringer
func (t Token) String() string {
	return fmt.Sprintf("%s:%d:%s", t.Pos, t.Color, t.Variant)
}

// PositionSet 坐标集合
type PositionSet map[Position]struct{}

// NewPositionSet 创建坐标集合
func NewPositionSet(positions ...Position) PositionSet {
	s := make(PositionSet, len(positions))
	for _, p := range positions {
		s[p] = struct{}{}
	}
	return s
}

// Add 添加坐标，返回是否为新增
func (s PositionSet) Add(p Position) bool {
	if _, ok := s[p]; ok {
		return false
	}
	s[p] = struct{}{}
	return true
}

// Has 是否包含
func (s PositionSet) Has(p Position) bool {
	_, ok := s[p]
	return ok
}

// Merge 并入另一个集合，返回新增数量
func (s PositionSet) Merge(o PositionSet) int {
	added := 0
	for p := range o {
		if s.Add(p) {
			added++
		}
	}
	return added
}

// Sorted 按行优先排序输出
func (s PositionSet) Sorted() []Position {
	out := make([]Position, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sortPositions(out)
	return out
}

func sortPositions(ps []Position) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Row != ps[j].Row {
			return ps[i].Row < ps[j].Row
		}
		return ps[i].Col < ps[j].Col
	})
}

// CombinationType 组合类型
type CombinationType int

const (
	CombinationPlain   CombinationType = iota // 三连
	CombinationBlast                          // 四连
	CombinationBeam                           // L/T 形
	CombinationRainbow                        // 五连
)

var combinationNames = map[CombinationType]string{
	CombinationPlain:   "plain",
	CombinationBlast:   "blast",
	CombinationBeam:    "beam",
	CombinationRainbow: "rainbow",
}

// String 实现Stringer
func (c CombinationType) String() string {
	if name, ok := combinationNames[c]; ok {
		return name
	}
	return fmt.Sprintf("combination(%d)", int(c))
}

// IsSpecial 是否会生成特殊宝石
func (c CombinationType) IsSpecial() bool {
	return c != CombinationPlain
}

// Variant 组合对应生成的宝石种类
func (c CombinationType) Variant() Variant {
	switch c {
	case CombinationBlast:
		return VariantBlast
	case CombinationBeam:
		return VariantBeam
	case CombinationRainbow:
		return VariantRainbow
	default:
		return VariantPlain
	}
}

// Cluster 同色四连通区域，每次消除轮重建
type Cluster struct {
	Color  Color
	Tokens []Token
}

// Size 区域大小
func (c Cluster) Size() int {
	return len(c.Tokens)
}

// Specials 区域内已有的特殊宝石
func (c Cluster) Specials() []Token {
	var out []Token
	for _, t := range c.Tokens {
		if t.IsSpecial() {
			out = append(out, t)
		}
	}
	return out
}

// Combination 已分类的组合
type Combination struct {
	Type     CombinationType `json:"type"`
	Color    Color           `json:"color"`
	Tokens   []Token         `json:"tokens"`   // 模板命中的宝石（不一定是整个区域）
	Anchor   Position        `json:"anchor"`   // 分类锚点
	Embedded []Token         `json:"embedded"` // 区域内原有的特殊宝石
}

// Positions 组合内的坐标
func (c *Combination) Positions() []Position {
	out := make([]Position, len(c.Tokens))
	for i, t := range c.Tokens {
		out[i] = t.Pos
	}
	return out
}

// Contains 是否包含坐标
func (c *Combination) Contains(p Position) bool {
	for _, t := range c.Tokens {
		if t.Pos == p {
			return true
		}
	}
	return false
}

// IsSpecial 是否为特殊组合
func (c *Combination) IsSpecial() bool {
	return c.Type.IsSpecial()
}

// ScoreEvent 每个组合结算时发出的计分事件
type ScoreEvent struct {
	Type      CombinationType `json:"type"`
	TileCount int             `json:"tile_count"`
	Special   bool            `json:"special"`
}

// SpawnRequest 特殊宝石生成请求
type SpawnRequest struct {
	Pos     Position `json:"pos"`
	Color   Color    `json:"color"`
	Variant Variant  `json:"variant"`
}

// Fall 单个宝石的下落
type Fall struct {
	From     Position `json:"from"`
	To       Position `json:"to"`
	Distance int      `json:"distance"`
}

// CascadeStep 单轮消除的结果，供表现层回放
type CascadeStep struct {
	Pass         int           `json:"pass"`
	Combinations []Combination `json:"combinations"`
	Removed      []Position    `json:"removed"`
	Spawned      []Token       `json:"spawned"`
	Falls        []Fall        `json:"falls"`
	Refilled     []Token       `json:"refilled"`
	Events       []ScoreEvent  `json:"events"`
}

// RejectReason 交换被拒绝的原因
type RejectReason string

const (
	RejectNone          RejectReason = ""
	RejectOutOfBounds   RejectReason = "out_of_bounds"
	RejectEmptyCell     RejectReason = "empty_cell"
	RejectNotAdjacent   RejectReason = "not_adjacent"
	RejectNoCombination RejectReason = "no_combination"
)

// SwapResult 交换请求的结果
type SwapResult struct {
	From     Position      `json:"from"`
	To       Position      `json:"to"`
	Accepted bool          `json:"accepted"`
	Reason   RejectReason  `json:"reason,omitempty"`
	Steps    []CascadeStep `json:"steps,omitempty"`
	Events   []ScoreEvent  `json:"events,omitempty"`
	Stable   bool          `json:"stable"`
	Capped   bool          `json:"capped"`
}

// Passes 消除轮数
func (r *SwapResult) Passes() int {
	return len(r.Steps)
}

// RemovedCount 总消除数
func (r *SwapResult) RemovedCount() int {
	total := 0
	for _, s := range r.Steps {
		total += len(s.Removed)
	}
	return total
}

// Swap 一次候选交换
type Swap struct {
	From Position `json:"from"`
	To   Position `json:"to"`
}
