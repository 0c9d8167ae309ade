package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplates_IndexMapping(t *testing.T) {
	templates := DefaultTemplates()
	require.Len(t, templates, 14)

	expected := []CombinationType{
		CombinationPlain, CombinationPlain,
		CombinationBlast, CombinationBlast,
		CombinationBeam, CombinationBeam, CombinationBeam, CombinationBeam,
		CombinationBeam, CombinationBeam, CombinationBeam, CombinationBeam,
		CombinationRainbow, CombinationRainbow,
	}
	for i, tpl := range templates {
		assert.Equal(t, expected[i], combinationTypeForIndex(i), tpl.Name)
	}
}

func TestShapeClassifier_SmallClustersNeverClassify(t *testing.T) {
	g := GridFromColors([][]int{{0, 0, 1}})
	classifier := NewShapeClassifier()

	_, ok := classifier.Classify(clusterOf(g, Pos(0, 0)))
	assert.False(t, ok)
	_, ok = classifier.Classify(clusterOf(g, Pos(0, 0), Pos(1, 0)))
	assert.False(t, ok)
	_, ok = classifier.Classify(Cluster{})
	assert.False(t, ok)
}

func TestShapeClassifier_Shapes(t *testing.T) {
	tests := []struct {
		name      string
		positions []Position
		want      CombinationType
		tokens    int
	}{
		{
			name:      "纵向三连",
			positions: []Position{Pos(1, 1), Pos(1, 2), Pos(1, 3)},
			want:      CombinationPlain,
			tokens:    3,
		},
		{
			name:      "横向三连",
			positions: []Position{Pos(2, 5), Pos(3, 5), Pos(4, 5)},
			want:      CombinationPlain,
			tokens:    3,
		},
		{
			name:      "四连优先于三连",
			positions: []Position{Pos(0, 4), Pos(1, 4), Pos(2, 4), Pos(3, 4)},
			want:      CombinationBlast,
			tokens:    4,
		},
		{
			name:      "纵向四连",
			positions: []Position{Pos(6, 0), Pos(6, 1), Pos(6, 2), Pos(6, 3)},
			want:      CombinationBlast,
			tokens:    4,
		},
		{
			name:      "L形",
			positions: []Position{Pos(1, 1), Pos(2, 1), Pos(3, 1), Pos(3, 2), Pos(3, 3)},
			want:      CombinationBeam,
			tokens:    5,
		},
		{
			name:      "T形",
			positions: []Position{Pos(2, 2), Pos(3, 2), Pos(4, 2), Pos(3, 3), Pos(3, 4)},
			want:      CombinationBeam,
			tokens:    5,
		},
		{
			name:      "五连",
			positions: []Position{Pos(0, 6), Pos(1, 6), Pos(2, 6), Pos(3, 6), Pos(4, 6)},
			want:      CombinationRainbow,
			tokens:    5,
		},
		{
			name:      "六连只取五个",
			positions: []Position{Pos(1, 7), Pos(2, 7), Pos(3, 7), Pos(4, 7), Pos(5, 7), Pos(6, 7)},
			want:      CombinationRainbow,
			tokens:    5,
		},
	}

	classifier := NewShapeClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planted := make(map[Position]int, len(tt.positions))
			for _, p := range tt.positions {
				planted[p] = 0
			}
			g := boardWith(8, 8, planted)

			cluster, ok := NewClusterFinder(g).ClusterAt(tt.positions[0])
			require.True(t, ok)
			require.Equal(t, len(tt.positions), cluster.Size())

			comb, ok := classifier.Classify(cluster)
			require.True(t, ok)
			assert.Equal(t, tt.want, comb.Type)
			assert.Len(t, comb.Tokens, tt.tokens)
			assert.Equal(t, Color(0), comb.Color)
			assert.True(t, comb.Contains(comb.Anchor))
			for _, tok := range comb.Tokens {
				assert.Contains(t, tt.positions, tok.Pos)
			}
		})
	}
}

func TestShapeClassifier_SquareDoesNotClassify(t *testing.T) {
	g := boardWith(8, 8, map[Position]int{
		Pos(2, 2): 0, Pos(3, 2): 0,
		Pos(2, 3): 0, Pos(3, 3): 0,
	})
	cluster, ok := NewClusterFinder(g).ClusterAt(Pos(2, 2))
	require.True(t, ok)
	require.Equal(t, 4, cluster.Size())

	_, ok = NewShapeClassifier().Classify(cluster)
	assert.False(t, ok)
}

func TestShapeClassifier_RecordsEmbeddedSpecials(t *testing.T) {
	g := boardWith(8, 8, map[Position]int{Pos(1, 1): 0, Pos(1, 2): 0, Pos(1, 3): 0})
	setSpecial(g, Pos(1, 2), VariantBeam)

	cluster, _ := NewClusterFinder(g).ClusterAt(Pos(1, 1))
	comb, ok := NewShapeClassifier().Classify(cluster)
	require.True(t, ok)
	assert.Equal(t, CombinationPlain, comb.Type)
	require.Len(t, comb.Embedded, 1)
	assert.Equal(t, Pos(1, 2), comb.Embedded[0].Pos)
}
