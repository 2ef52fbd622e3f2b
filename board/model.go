package board

import (
	"encoding/json"
	"time"
)

// Content attaches media or rich text to a hexagon. Type is one of
// image, video, audio, pdf, file, text, hypertext.
type Content struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
	Name string `json:"name,omitempty"`
	// Value carries inline text/hypertext payloads that have no URL.
	Value string `json:"value,omitempty"`
}

type Hexagon struct {
	ID        string   `json:"id"`
	Number    int      `json:"number"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Text      string   `json:"text"`
	FillColor string   `json:"fillColor,omitempty"`
	Content   *Content `json:"content,omitempty"`
	// Connections holds ids of connected hexagons. Kept symmetric:
	// if A lists B then B lists A. Never contains the hexagon's own id.
	Connections []string `json:"connections"`
}

// ViewportState is the persisted camera. Center and pan/zoom encode the
// same thing twice; center is authoritative on load when present so the
// view survives canvas resizes.
type ViewportState struct {
	CenterX *float64 `json:"centerX,omitempty"`
	CenterY *float64 `json:"centerY,omitempty"`
	PanX    float64  `json:"panX"`
	PanY    float64  `json:"panY"`
	Zoom    float64  `json:"zoom"`
}

type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Data is the board payload stored in the boards.data column. The store
// treats it as an opaque blob; only clients interpret it. Hexagon slice
// order is render z-order and carries no other meaning.
type Data struct {
	Hexagons []Hexagon      `json:"hexagons"`
	Viewport *ViewportState `json:"viewport,omitempty"`
	Comments []Comment      `json:"comments,omitempty"`
}

// Clone deep-copies the payload via reserialization, the same path used
// for storage and the wire, so a clone shares nothing with the original.
func (d Data) Clone() Data {
	b, err := json.Marshal(d)
	if err != nil {
		panic(err)
	}
	var out Data
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return out
}

// Hex returns the hexagon with the given id, or nil.
func (d *Data) Hex(id string) *Hexagon {
	for i := range d.Hexagons {
		if d.Hexagons[i].ID == id {
			return &d.Hexagons[i]
		}
	}
	return nil
}

// NextNumber returns the next free label number, minimum 1. Numbers grow
// monotonically and are never reused within a board.
func (d *Data) NextNumber() int {
	max := 0
	for i := range d.Hexagons {
		if d.Hexagons[i].Number > max {
			max = d.Hexagons[i].Number
		}
	}
	return max + 1
}

func (h *Hexagon) connected(id string) bool {
	for _, c := range h.Connections {
		if c == id {
			return true
		}
	}
	return false
}

// Connect adds a symmetric connection between a and b. Idempotent;
// self-loops are ignored.
func Connect(a, b *Hexagon) {
	if a == nil || b == nil || a.ID == b.ID {
		return
	}
	if !a.connected(b.ID) {
		a.Connections = append(a.Connections, b.ID)
	}
	if !b.connected(a.ID) {
		b.Connections = append(b.Connections, a.ID)
	}
}

// Disconnect removes the connection between a and b from both ends.
func Disconnect(a, b *Hexagon) {
	if a == nil || b == nil {
		return
	}
	a.Connections = remove(a.Connections, b.ID)
	b.Connections = remove(b.Connections, a.ID)
}

// ClearConnections detaches hex from every peer, removing the back edges.
func (d *Data) ClearConnections(id string) {
	h := d.Hex(id)
	if h == nil {
		return
	}
	for _, peer := range h.Connections {
		if p := d.Hex(peer); p != nil {
			p.Connections = remove(p.Connections, id)
		}
	}
	h.Connections = nil
}

// RepairConnections restores connection symmetry after structural edits:
// self-loops are dropped and missing back edges are added. Connections
// referencing absent hexagons are left alone; rendering skips them.
func (d *Data) RepairConnections() {
	for i := range d.Hexagons {
		h := &d.Hexagons[i]
		h.Connections = remove(h.Connections, h.ID)
		for _, peer := range h.Connections {
			if p := d.Hex(peer); p != nil && !p.connected(h.ID) {
				p.Connections = append(p.Connections, h.ID)
			}
		}
	}
}

// Component returns the ids of every hexagon reachable from start through
// connections, including start itself. Unknown ids yield nil.
func (d *Data) Component(start string) []string {
	if d.Hex(start) == nil {
		return nil
	}
	visited := map[string]bool{start: true}
	queue := []string{start}
	out := []string{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		h := d.Hex(id)
		if h == nil {
			continue
		}
		for _, peer := range h.Connections {
			if !visited[peer] && d.Hex(peer) != nil {
				visited[peer] = true
				queue = append(queue, peer)
				out = append(out, peer)
			}
		}
	}
	return out
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
