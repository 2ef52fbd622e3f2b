package board

import (
	"math"
	"sort"
)

// Vertex is a point of a hexagon outline.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Line is a deduplicated undirected connection for rendering.
type Line struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// HexagonVertices returns the six corners of a flat-top hexagon centered at
// the origin, vertex i at angle 60°·i − 30°.
func HexagonVertices(radius float64) [6]Vertex {
	var out [6]Vertex
	for i := 0; i < 6; i++ {
		a := (60*float64(i) - 30) * math.Pi / 180
		out[i] = Vertex{X: radius * math.Cos(a), Y: radius * math.Sin(a)}
	}
	return out
}

// ConnectionLines flattens the symmetric connection sets into one line per
// undirected edge. Each pair is canonicalized by id sort so A→B and B→A
// collapse; edges pointing at missing hexagons are dropped.
func ConnectionLines(hexagons []Hexagon) []Line {
	present := make(map[string]bool, len(hexagons))
	for i := range hexagons {
		present[hexagons[i].ID] = true
	}
	seen := map[[2]string]bool{}
	var out []Line
	for i := range hexagons {
		h := &hexagons[i]
		for _, peer := range h.Connections {
			if !present[peer] || peer == h.ID {
				continue
			}
			key := [2]string{h.ID, peer}
			if key[0] > key[1] {
				key[0], key[1] = key[1], key[0]
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Line{From: h.ID, To: peer})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Dist is the Euclidean distance between two points.
func Dist(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// DistSq avoids the square root for nearest-neighbor searches.
func DistSq(x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	return dx*dx + dy*dy
}

// Angle is the atan2 direction from (x1,y1) toward (x2,y2), in radians.
func Angle(x1, y1, x2, y2 float64) float64 {
	return math.Atan2(y2-y1, x2-x1)
}
