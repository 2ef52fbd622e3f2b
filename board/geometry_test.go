package board

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexagonVertices(t *testing.T) {
	vs := HexagonVertices(10)

	t.Run("six vertices on the circle", func(t *testing.T) {
		for _, v := range vs {
			assert.InDelta(t, 10, math.Hypot(v.X, v.Y), 1e-9)
		}
	})

	t.Run("vertex angles are 60i minus 30 degrees", func(t *testing.T) {
		for i, v := range vs {
			want := (60*float64(i) - 30) * math.Pi / 180
			assert.InDelta(t, want, math.Atan2(v.Y, v.X), 1e-9, "vertex %d", i)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, vs, HexagonVertices(10))
	})
}

func TestConnectionLines(t *testing.T) {
	hexes := []Hexagon{
		{ID: "a", Connections: []string{"b", "c"}},
		{ID: "b", Connections: []string{"a"}},
		{ID: "c", Connections: []string{"a", "ghost"}},
	}
	lines := ConnectionLines(hexes)

	t.Run("undirected edges deduplicated", func(t *testing.T) {
		require.Len(t, lines, 2)
		assert.Contains(t, lines, Line{From: "a", To: "b"})
		assert.Contains(t, lines, Line{From: "a", To: "c"})
	})

	t.Run("edges to missing hexagons dropped", func(t *testing.T) {
		for _, l := range lines {
			assert.NotEqual(t, "ghost", l.To)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, ConnectionLines(nil))
	})
}

func TestDistAngle(t *testing.T) {
	assert.InDelta(t, 5, Dist(0, 0, 3, 4), 1e-9)
	assert.InDelta(t, 25, DistSq(0, 0, 3, 4), 1e-9)
	assert.InDelta(t, math.Pi/2, Angle(0, 0, 0, 7), 1e-9)
	assert.InDelta(t, math.Pi, math.Abs(Angle(1, 0, 0, 0)), 1e-9)
}
