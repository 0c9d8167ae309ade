package match

// Hints 列出所有会被接受的相邻交换，不修改棋盘
func (e *CascadeEngine) Hints() []Swap {
	probe := e.grid.Clone()
	finder := NewClusterFinder(probe)

	var swaps []Swap
	for _, t := range probe.Tokens() {
		for _, d := range []Position{{Col: 1}, {Row: 1}} {
			other := t.Pos.Add(d.Col, d.Row)
			partner, ok := probe.At(other)
			if !ok {
				continue
			}
			if t.Variant == VariantRainbow || partner.Variant == VariantRainbow {
				swaps = append(swaps, Swap{From: t.Pos, To: other})
				continue
			}
			if t.Color == partner.Color {
				continue
			}

			probe.Swap(t.Pos, other)
			if e.matchesAt(finder, t.Pos, other) {
				swaps = append(swaps, Swap{From: t.Pos, To: other})
			}
			probe.Swap(t.Pos, other)
		}
	}
	return swaps
}

func (e *CascadeEngine) matchesAt(finder *ClusterFinder, positions ...Position) bool {
	for _, p := range positions {
		cluster, ok := finder.ClusterAt(p)
		if !ok {
			continue
		}
		if _, ok := e.classifier.Classify(cluster); ok {
			return true
		}
	}
	return false
}

// Hint 在所有可行交换中均匀随机选一个
func (e *CascadeEngine) Hint() (Swap, bool) {
	swaps := e.Hints()
	if len(swaps) == 0 {
		return Swap{}, false
	}
	return swaps[e.generator.rng.NextInt(0, len(swaps))], true
}

// HasPossibleMove 是否还有可行交换
func (e *CascadeEngine) HasPossibleMove() bool {
	return len(e.Hints()) > 0
}
