package match

// neighborOffsets 四邻接方向
var neighborOffsets = []Position{{Col: 1, Row: 0}, {Col: -1, Row: 0}, {Col: 0, Row: 1}, {Col: 0, Row: -1}}

// VisitSet 一次全盘扫描内共享的已访问标记
type VisitSet struct {
	width   int
	visited []bool
}

// NewVisitSet 创建访问标记
func NewVisitSet(width, height int) *VisitSet {
	return &VisitSet{width: width, visited: make([]bool, width*height)}
}

// Mark 标记已访问
func (v *VisitSet) Mark(p Position) {
	v.visited[p.Row*v.width+p.Col] = true
}

// Visited 是否已访问
func (v *VisitSet) Visited(p Position) bool {
	return v.visited[p.Row*v.width+p.Col]
}

// ClusterFinder 同色连通区域查找（广度优先洪泛）
type ClusterFinder struct {
	grid *Grid
}

// NewClusterFinder 创建区域查找器
func NewClusterFinder(grid *Grid) *ClusterFinder {
	return &ClusterFinder{grid: grid}
}

// FindCluster 从 start 出发查找同色区域，访问过的格子写入 visited
func (f *ClusterFinder) FindCluster(start Position, visited *VisitSet) (Cluster, bool) {
	first, ok := f.grid.At(start)
	if !ok || visited.Visited(start) {
		return Cluster{}, false
	}

	cluster := Cluster{Color: first.Color}
	queue := []Position{start}
	visited.Mark(start)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		token, _ := f.grid.At(current)
		cluster.Tokens = append(cluster.Tokens, token)

		for _, d := range neighborOffsets {
			next := current.Add(d.Col, d.Row)
			if !f.grid.InBounds(next.Col, next.Row) || visited.Visited(next) {
				continue
			}
			neighbor, ok := f.grid.At(next)
			if !ok || neighbor.Color != first.Color {
				continue
			}
			visited.Mark(next)
			queue = append(queue, next)
		}
	}

	return cluster, true
}

// ClusterAt 以单个格子为起点查找区域（独立的访问标记）
func (f *ClusterFinder) ClusterAt(p Position) (Cluster, bool) {
	if !f.grid.InBounds(p.Col, p.Row) {
		return Cluster{}, false
	}
	return f.FindCluster(p, NewVisitSet(f.grid.Width(), f.grid.Height()))
}

// FindAll 行优先扫描全盘，返回互不重叠的区域，其并集恰好覆盖所有非空格
func (f *ClusterFinder) FindAll() []Cluster {
	visited := NewVisitSet(f.grid.Width(), f.grid.Height())
	var clusters []Cluster
	for row := 0; row < f.grid.Height(); row++ {
		for col := 0; col < f.grid.Width(); col++ {
			if cluster, ok := f.FindCluster(Pos(col, row), visited); ok {
				clusters = append(clusters, cluster)
			}
		}
	}
	return clusters
}
