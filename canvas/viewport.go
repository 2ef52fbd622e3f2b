package canvas

import "github.com/deproudfoot/contextboard-server/board"

// Zoom bounds match the UI's zoom slider range.
const (
	MinZoom = 0.2
	MaxZoom = 6.25
)

// Viewport maps between screen space and world space. Pan is the
// screen-space offset of the world origin.
type Viewport struct {
	Zoom float64
	PanX float64
	PanY float64
}

func NewViewport() *Viewport { return &Viewport{Zoom: 1} }

func clampZoom(z float64) float64 {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

func (v *Viewport) ScreenToWorld(sx, sy float64) (float64, float64) {
	return (sx - v.PanX) / v.Zoom, (sy - v.PanY) / v.Zoom
}

func (v *Viewport) WorldToScreen(wx, wy float64) (float64, float64) {
	return wx*v.Zoom + v.PanX, wy*v.Zoom + v.PanY
}

// SetZoomAnchored changes the zoom while keeping the given world point
// visually fixed: the pan is recomputed so the anchor maps to the same
// screen position under the new zoom.
func (v *Viewport) SetZoomAnchored(newZoom, anchorWX, anchorWY float64) {
	newZoom = clampZoom(newZoom)
	sx, sy := v.WorldToScreen(anchorWX, anchorWY)
	v.Zoom = newZoom
	v.PanX = sx - anchorWX*newZoom
	v.PanY = sy - anchorWY*newZoom
}

// Pan translates the view by a screen-space pointer delta.
func (v *Viewport) Pan(dx, dy float64) {
	v.PanX += dx
	v.PanY += dy
}

// Save encodes the camera for persistence: both the world-space center of
// a width×height canvas and the raw pan/zoom, so older readers keep
// working while newer ones can re-center after a resize.
func (v *Viewport) Save(width, height float64) board.ViewportState {
	cx := (width/2 - v.PanX) / v.Zoom
	cy := (height/2 - v.PanY) / v.Zoom
	return board.ViewportState{
		CenterX: &cx,
		CenterY: &cy,
		PanX:    v.PanX,
		PanY:    v.PanY,
		Zoom:    v.Zoom,
	}
}

// Restore applies a saved camera against the current canvas size. The
// saved center wins when present (keeps the same content centered even if
// the canvas pixel size changed), then the raw pan, then centering the
// world origin.
func (v *Viewport) Restore(st *board.ViewportState, width, height float64) {
	if st == nil {
		v.Zoom = 1
		v.PanX = width / 2
		v.PanY = height / 2
		return
	}
	zoom := st.Zoom
	if zoom == 0 {
		zoom = 1
	}
	v.Zoom = clampZoom(zoom)
	if st.CenterX != nil && st.CenterY != nil {
		v.PanX = width/2 - *st.CenterX*v.Zoom
		v.PanY = height/2 - *st.CenterY*v.Zoom
		return
	}
	v.PanX = st.PanX
	v.PanY = st.PanY
}
