package canvas

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/deproudfoot/contextboard-server/board"
	"github.com/deproudfoot/contextboard-server/history"
)

// Settings tune the interaction engine. DisconnectVelocityThreshold is in
// world px/s and is the one knob users adjust (persisted client-side).
type Settings struct {
	HexRadius                   float64
	SnapRatio                   float64
	GridStep                    float64
	DisconnectVelocityThreshold float64
}

func DefaultSettings() Settings {
	return Settings{
		HexRadius:                   40,
		SnapRatio:                   1.2,
		GridStep:                    10,
		DisconnectVelocityThreshold: 60,
	}
}

// flickWindow bounds how long after pickup a fast move still counts as a
// deliberate detach gesture rather than an ordinary drag.
const flickWindow = 200 * time.Millisecond

// Editor is the pointer-driven state machine that mutates a board: select,
// drag, flick-detach, snap-to-neighbor, marquee. One Editor per open board
// per client; callers drive it from a single goroutine (the UI loop).
type Editor struct {
	Data     board.Data
	View     *Viewport
	History  *history.Stack
	Settings Settings

	// OnChange fires after every committed local mutation with the new
	// state; the realtime layer hangs its broadcast off this.
	OnChange func(board.Data)

	selection  map[string]bool
	nextNumber int

	// drag state, valid while dragging
	dragging   bool
	moved      bool
	broke      bool
	dragHex    string
	dragSet    []string
	startX     map[string]float64
	startY     map[string]float64
	originWX   float64
	originWY   float64
	preDrag    board.Data
	dragStart  time.Time
	lastWX     float64
	lastWY     float64
	lastSample time.Time

	// marquee rectangle in world space, valid while marqueeOn
	marqueeOn bool
	marqueeAX float64
	marqueeAY float64
	marqueeBX float64
	marqueeBY float64

	panning bool
	panSX   float64
	panSY   float64
}

func NewEditor(data board.Data, view *Viewport) *Editor {
	if view == nil {
		view = NewViewport()
	}
	e := &Editor{
		Data:      data,
		View:      view,
		History:   history.New(history.DefaultLimit),
		Settings:  DefaultSettings(),
		selection: map[string]bool{},
	}
	e.nextNumber = data.NextNumber()
	return e
}

func (e *Editor) changed() {
	if e.OnChange != nil {
		e.OnChange(e.Data)
	}
}

// Selection returns the selected hexagon ids in no particular order.
func (e *Editor) Selection() []string {
	out := make([]string, 0, len(e.selection))
	for id := range e.selection {
		out = append(out, id)
	}
	return out
}

func (e *Editor) Selected(id string) bool { return e.selection[id] }

func (e *Editor) ClearSelection() { e.selection = map[string]bool{} }

// snapDistance is the search radius for neighbor snapping and the exact
// spacing applied on a successful snap.
func (e *Editor) snapDistance() float64 {
	return 2 * e.Settings.HexRadius * e.Settings.SnapRatio
}

// PointerDown begins a hexagon interaction at a screen position. Shift
// toggles selection membership; a plain click replaces the selection
// unless the hexagon is already part of a multi-selection, in which case
// the whole selection becomes the drag set.
func (e *Editor) PointerDown(sx, sy float64, hexID string, shift bool, t time.Time) {
	h := e.Data.Hex(hexID)
	if h == nil {
		return
	}
	wx, wy := e.View.ScreenToWorld(sx, sy)

	if shift {
		if e.selection[hexID] {
			delete(e.selection, hexID)
		} else {
			e.selection[hexID] = true
		}
	} else if !e.selection[hexID] || len(e.selection) <= 1 {
		e.selection = map[string]bool{hexID: true}
	}
	if !e.selection[hexID] {
		// shift-click deselected it; nothing left to drag
		return
	}

	if len(e.selection) > 1 {
		e.dragSet = e.Selection()
	} else {
		e.dragSet = e.Data.Component(hexID)
	}

	e.dragging = true
	e.moved = false
	e.broke = false
	e.dragHex = hexID
	e.originWX, e.originWY = wx, wy
	e.preDrag = e.Data.Clone()
	e.dragStart = t
	e.lastWX, e.lastWY = wx, wy
	e.lastSample = t
	e.startX = map[string]float64{}
	e.startY = map[string]float64{}
	for _, id := range e.dragSet {
		if m := e.Data.Hex(id); m != nil {
			e.startX[id] = m.X
			e.startY[id] = m.Y
		}
	}
}

// PointerMove advances whichever interaction is live: marquee growth, pan,
// or drag. During a drag the instantaneous pointer speed is sampled; a
// flick above the threshold inside the first 200ms clears the dragged
// hexagon's connections once and restarts the drag as a single node.
func (e *Editor) PointerMove(sx, sy float64, t time.Time) {
	if e.marqueeOn {
		e.marqueeBX, e.marqueeBY = e.View.ScreenToWorld(sx, sy)
		e.selectMarquee()
		return
	}
	if e.panning {
		e.View.Pan(sx-e.panSX, sy-e.panSY)
		e.panSX, e.panSY = sx, sy
		return
	}
	if !e.dragging {
		return
	}

	wx, wy := e.View.ScreenToWorld(sx, sy)
	elapsed := t.Sub(e.lastSample)
	if !e.broke && t.Sub(e.dragStart) <= flickWindow && elapsed > 0 {
		speed := board.Dist(e.lastWX, e.lastWY, wx, wy) / elapsed.Seconds()
		if speed > e.Settings.DisconnectVelocityThreshold {
			e.Data.ClearConnections(e.dragHex)
			e.broke = true
			e.dragSet = []string{e.dragHex}
			e.originWX, e.originWY = wx, wy
			h := e.Data.Hex(e.dragHex)
			e.startX = map[string]float64{e.dragHex: h.X}
			e.startY = map[string]float64{e.dragHex: h.Y}
		}
	}

	// Rigid-body translation of the whole drag set by the cumulative
	// delta, stepped to the grid. Rounding the delta rather than the
	// absolute position keeps exact snap spacings intact.
	dx := e.snapGrid(wx - e.originWX)
	dy := e.snapGrid(wy - e.originWY)
	for _, id := range e.dragSet {
		if m := e.Data.Hex(id); m != nil {
			m.X = e.startX[id] + dx
			m.Y = e.startY[id] + dy
		}
	}
	e.moved = true
	e.lastWX, e.lastWY = wx, wy
	e.lastSample = t
}

func (e *Editor) snapGrid(v float64) float64 {
	step := e.Settings.GridStep
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}

// PointerUp ends the current interaction. A completed drag tries a
// neighbor snap (unless the flick already detached), repairs connection
// symmetry, and commits exactly one history entry.
func (e *Editor) PointerUp(t time.Time) {
	if e.marqueeOn {
		e.EndMarquee()
		return
	}
	if e.panning {
		e.panning = false
		return
	}
	if !e.dragging {
		return
	}
	e.dragging = false
	if !e.moved {
		// plain click: selection already handled on pointer-down
		return
	}
	if !e.broke {
		e.snapToNeighbor()
	}
	e.Data.RepairConnections()
	e.History.Commit(e.preDrag)
	e.changed()
}

// snapToNeighbor repositions the dragged hexagon exactly snapDistance from
// the nearest hexagon outside the drag set, if one is in range, and
// connects the two. Re-snapping with no further movement is a no-op
// because the spacing and the connection are already in place.
func (e *Editor) snapToNeighbor() {
	h := e.Data.Hex(e.dragHex)
	if h == nil {
		return
	}
	inSet := map[string]bool{}
	for _, id := range e.dragSet {
		inSet[id] = true
	}
	snap := e.snapDistance()
	bestSq := snap * snap
	var best *board.Hexagon
	for i := range e.Data.Hexagons {
		n := &e.Data.Hexagons[i]
		if inSet[n.ID] {
			continue
		}
		if dSq := board.DistSq(n.X, n.Y, h.X, h.Y); dSq <= bestSq {
			bestSq = dSq
			best = n
		}
	}
	if best == nil {
		return
	}
	a := board.Angle(best.X, best.Y, h.X, h.Y)
	h.X = best.X + math.Cos(a)*snap
	h.Y = best.Y + math.Sin(a)*snap
	board.Connect(h, best)
}

// BeginMarquee starts a rubber-band selection from an empty-canvas press
// with the marquee modifier held.
func (e *Editor) BeginMarquee(sx, sy float64) {
	wx, wy := e.View.ScreenToWorld(sx, sy)
	e.marqueeOn = true
	e.marqueeAX, e.marqueeAY = wx, wy
	e.marqueeBX, e.marqueeBY = wx, wy
	e.selection = map[string]bool{}
}

// UpdateMarquee grows the rectangle to a new corner and reselects; while
// the pointer is captured PointerMove does the same.
func (e *Editor) UpdateMarquee(sx, sy float64) {
	if !e.marqueeOn {
		return
	}
	e.marqueeBX, e.marqueeBY = e.View.ScreenToWorld(sx, sy)
	e.selectMarquee()
}

// EndMarquee finalizes the marquee selection and discards the rectangle.
func (e *Editor) EndMarquee() []string {
	if !e.marqueeOn {
		return nil
	}
	e.selectMarquee()
	e.marqueeOn = false
	return e.Selection()
}

func (e *Editor) selectMarquee() {
	minX := math.Min(e.marqueeAX, e.marqueeBX)
	maxX := math.Max(e.marqueeAX, e.marqueeBX)
	minY := math.Min(e.marqueeAY, e.marqueeBY)
	maxY := math.Max(e.marqueeAY, e.marqueeBY)
	e.selection = map[string]bool{}
	for i := range e.Data.Hexagons {
		h := &e.Data.Hexagons[i]
		if h.X >= minX && h.X <= maxX && h.Y >= minY && h.Y <= maxY {
			e.selection[h.ID] = true
		}
	}
}

// BeginPan starts click-drag panning from an empty-canvas press without
// the marquee modifier.
func (e *Editor) BeginPan(sx, sy float64) {
	e.panning = true
	e.panSX, e.panSY = sx, sy
}

// ZoomTo applies an anchored zoom: the last-selected hexagon stays fixed
// when there is a selection, otherwise the current screen center does.
func (e *Editor) ZoomTo(newZoom, width, height float64) {
	var ax, ay float64
	if len(e.selection) == 1 {
		for id := range e.selection {
			if h := e.Data.Hex(id); h != nil {
				ax, ay = h.X, h.Y
			}
		}
	} else {
		ax, ay = e.View.ScreenToWorld(width/2, height/2)
	}
	e.View.SetZoomAnchored(newZoom, ax, ay)
}

// AddHexagon creates a hexagon at a world position. Label numbers come
// from a session counter seeded past the loaded maximum, so a number is
// never reused even after deleting the highest.
func (e *Editor) AddHexagon(wx, wy float64) *board.Hexagon {
	prev := e.Data.Clone()
	if n := e.Data.NextNumber(); n > e.nextNumber {
		e.nextNumber = n
	}
	h := board.Hexagon{
		ID:     uuid.NewString(),
		Number: e.nextNumber,
		X:      e.snapGrid(wx),
		Y:      e.snapGrid(wy),
	}
	e.nextNumber++
	e.Data.Hexagons = append(e.Data.Hexagons, h)
	e.History.Commit(prev)
	e.changed()
	return e.Data.Hex(h.ID)
}

// DeleteSelection removes every selected hexagon and repairs the
// survivors' connection lists.
func (e *Editor) DeleteSelection() {
	if len(e.selection) == 0 {
		return
	}
	prev := e.Data.Clone()
	kept := e.Data.Hexagons[:0]
	for _, h := range e.Data.Hexagons {
		if !e.selection[h.ID] {
			kept = append(kept, h)
		}
	}
	e.Data.Hexagons = kept
	for i := range e.Data.Hexagons {
		h := &e.Data.Hexagons[i]
		trimmed := h.Connections[:0]
		for _, peer := range h.Connections {
			if !e.selection[peer] {
				trimmed = append(trimmed, peer)
			}
		}
		if len(trimmed) == 0 {
			h.Connections = nil
		} else {
			h.Connections = trimmed
		}
	}
	e.selection = map[string]bool{}
	e.Data.RepairConnections()
	e.History.Commit(prev)
	e.changed()
}

// SetText updates a hexagon's display text.
func (e *Editor) SetText(id, text string) {
	h := e.Data.Hex(id)
	if h == nil || h.Text == text {
		return
	}
	prev := e.Data.Clone()
	h.Text = text
	e.History.Commit(prev)
	e.changed()
}

// SetFillColor updates a hexagon's fill.
func (e *Editor) SetFillColor(id, color string) {
	h := e.Data.Hex(id)
	if h == nil || h.FillColor == color {
		return
	}
	prev := e.Data.Clone()
	h.FillColor = color
	e.History.Commit(prev)
	e.changed()
}

// SetContent replaces a hexagon's media/text attachment; nil clears it.
func (e *Editor) SetContent(id string, c *board.Content) {
	h := e.Data.Hex(id)
	if h == nil {
		return
	}
	prev := e.Data.Clone()
	h.Content = c
	e.History.Commit(prev)
	e.changed()
}

// Undo steps back one committed snapshot.
func (e *Editor) Undo() bool {
	d, ok := e.History.Undo(e.Data)
	if !ok {
		return false
	}
	e.Data = d
	e.changed()
	return true
}

// Redo reapplies the last undone snapshot.
func (e *Editor) Redo() bool {
	d, ok := e.History.Redo(e.Data)
	if !ok {
		return false
	}
	e.Data = d
	e.changed()
	return true
}

// ApplyRemote adopts a state received from another collaborator. It
// bypasses history and OnChange: remote edits are not undoable locally
// and must not echo back out.
func (e *Editor) ApplyRemote(data board.Data) {
	e.Data = data
	if n := data.NextNumber(); n > e.nextNumber {
		e.nextNumber = n
	}
	for id := range e.selection {
		if e.Data.Hex(id) == nil {
			delete(e.selection, id)
		}
	}
}
