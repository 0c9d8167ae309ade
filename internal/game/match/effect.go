package match

// blastOffsets 爆炸宝石影响的8个方向
var blastOffsets = []Position{
	{Col: 1, Row: 0}, {Col: 1, Row: 1}, {Col: 0, Row: 1}, {Col: -1, Row: 1},
	{Col: -1, Row: 0}, {Col: -1, Row: -1}, {Col: 0, Row: -1}, {Col: 1, Row: -1},
}

// Resolution 单个组合的消除结果
type Resolution struct {
	Deleted PositionSet
	Spawn   *SpawnRequest
	Event   ScoreEvent
}

// EffectResolver 计算组合的完整消除集合，包括特殊宝石的连锁引爆
type EffectResolver struct {
	grid *Grid
}

// NewEffectResolver 创建效果解析器
func NewEffectResolver(grid *Grid) *EffectResolver {
	return &EffectResolver{grid: grid}
}

// Resolve 计算组合的消除集合与生成请求
//
// detonated 记录本轮已引爆的宝石，由调用方在每轮开始时新建，同一轮内的所有组合共享。
// swapped 为最近一次交换的两个位置，用于确定特殊宝石的生成点。
func (r *EffectResolver) Resolve(comb *Combination, detonated PositionSet, swapped []Position) Resolution {
	deleted := NewPositionSet(comb.Positions()...)

	for _, special := range comb.Embedded {
		if detonated.Has(special.Pos) {
			continue
		}
		deleted.Merge(r.Detonate(special, comb.Color, detonated))
	}

	res := Resolution{Deleted: deleted}
	if comb.IsSpecial() {
		res.Spawn = &SpawnRequest{
			Pos:     spawnAnchor(comb, swapped),
			Color:   comb.Color,
			Variant: comb.Type.Variant(),
		}
	}
	res.Event = ScoreEvent{
		Type:      comb.Type,
		TileCount: len(deleted),
		Special:   comb.IsSpecial(),
	}
	return res
}

// spawnAnchor 优先使用组合内最近交换的位置，否则使用分类锚点
func spawnAnchor(comb *Combination, swapped []Position) Position {
	for _, p := range swapped {
		if comb.Contains(p) {
			return p
		}
	}
	return comb.Anchor
}

// Detonate 引爆单个特殊宝石，返回连锁后的全部消除位置
//
// trigger 为触发颜色：彩虹宝石会清除该颜色的所有宝石。已在 detonated 中的宝石不会再次展开。
func (r *EffectResolver) Detonate(token Token, trigger Color, detonated PositionSet) PositionSet {
	out := NewPositionSet()
	r.expand(token, trigger, detonated, out)
	return out
}

func (r *EffectResolver) expand(token Token, trigger Color, detonated, out PositionSet) {
	if !detonated.Add(token.Pos) {
		return
	}

	area := r.area(token, trigger)
	for _, p := range area {
		out.Add(p)
	}

	for _, p := range area {
		if detonated.Has(p) {
			continue
		}
		next, ok := r.grid.At(p)
		if !ok || !next.IsSpecial() {
			continue
		}
		r.expand(next, token.Color, detonated, out)
	}
}

// area 单个宝石的直接影响范围（含自身）
func (r *EffectResolver) area(token Token, trigger Color) []Position {
	switch token.Variant {
	case VariantBlast:
		return r.blastArea(token.Pos)
	case VariantBeam:
		return r.beamArea(token.Pos)
	case VariantRainbow:
		return r.rainbowArea(token.Pos, trigger)
	default:
		return []Position{token.Pos}
	}
}

func (r *EffectResolver) blastArea(center Position) []Position {
	out := []Position{center}
	for _, d := range blastOffsets {
		p := center.Add(d.Col, d.Row)
		if _, ok := r.grid.At(p); ok {
			out = append(out, p)
		}
	}
	return out
}

func (r *EffectResolver) beamArea(center Position) []Position {
	out := []Position{center}
	for col := 0; col < r.grid.Width(); col++ {
		if col == center.Col {
			continue
		}
		if _, ok := r.grid.Get(col, center.Row); ok {
			out = append(out, Pos(col, center.Row))
		}
	}
	for row := 0; row < r.grid.Height(); row++ {
		if row == center.Row {
			continue
		}
		if _, ok := r.grid.Get(center.Col, row); ok {
			out = append(out, Pos(center.Col, row))
		}
	}
	return out
}

func (r *EffectResolver) rainbowArea(self Position, trigger Color) []Position {
	out := []Position{self}
	for _, t := range r.grid.Tokens() {
		if t.Pos != self && t.Color == trigger {
			out = append(out, t.Pos)
		}
	}
	return out
}
