package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deproudfoot/contextboard-server/board"
)

func TestScreenWorldRoundTrip(t *testing.T) {
	v := &Viewport{Zoom: 2, PanX: 100, PanY: -50}
	wx, wy := v.ScreenToWorld(300, 150)
	assert.InDelta(t, 100, wx, 1e-9)
	assert.InDelta(t, 100, wy, 1e-9)

	sx, sy := v.WorldToScreen(wx, wy)
	assert.InDelta(t, 300, sx, 1e-9)
	assert.InDelta(t, 150, sy, 1e-9)
}

func TestSetZoomAnchored(t *testing.T) {
	v := &Viewport{Zoom: 1, PanX: 20, PanY: 30}
	ax, ay := 50.0, 70.0
	beforeX, beforeY := v.WorldToScreen(ax, ay)

	v.SetZoomAnchored(2.5, ax, ay)

	afterX, afterY := v.WorldToScreen(ax, ay)
	assert.InDelta(t, beforeX, afterX, 1e-9)
	assert.InDelta(t, beforeY, afterY, 1e-9)
	assert.Equal(t, 2.5, v.Zoom)

	t.Run("zoom clamped to bounds", func(t *testing.T) {
		v.SetZoomAnchored(100, ax, ay)
		assert.Equal(t, MaxZoom, v.Zoom)
		v.SetZoomAnchored(0.01, ax, ay)
		assert.Equal(t, MinZoom, v.Zoom)
	})
}

func TestPan(t *testing.T) {
	v := NewViewport()
	v.Pan(15, -5)
	v.Pan(5, 5)
	assert.Equal(t, 20.0, v.PanX)
	assert.Equal(t, 0.0, v.PanY)
}

func TestSaveRestore(t *testing.T) {
	t.Run("center preferred over raw pan", func(t *testing.T) {
		v := &Viewport{Zoom: 2, PanX: 100, PanY: 40}
		st := v.Save(800, 600)
		require.NotNil(t, st.CenterX)

		// restore against a different canvas size: the world center must
		// stay at the new screen center
		r := NewViewport()
		r.Restore(&st, 1000, 500)
		wx, wy := r.ScreenToWorld(500, 250)
		assert.InDelta(t, *st.CenterX, wx, 1e-9)
		assert.InDelta(t, *st.CenterY, wy, 1e-9)
	})

	t.Run("falls back to raw pan without center", func(t *testing.T) {
		r := NewViewport()
		r.Restore(&board.ViewportState{PanX: 33, PanY: 44, Zoom: 1.5}, 800, 600)
		assert.Equal(t, 33.0, r.PanX)
		assert.Equal(t, 44.0, r.PanY)
		assert.Equal(t, 1.5, r.Zoom)
	})

	t.Run("centers origin with no saved state", func(t *testing.T) {
		r := NewViewport()
		r.Restore(nil, 800, 600)
		wx, wy := r.ScreenToWorld(400, 300)
		assert.InDelta(t, 0, wx, 1e-9)
		assert.InDelta(t, 0, wy, 1e-9)
	})

	t.Run("zero zoom treated as one", func(t *testing.T) {
		r := NewViewport()
		r.Restore(&board.ViewportState{PanX: 1, PanY: 2}, 800, 600)
		assert.Equal(t, 1.0, r.Zoom)
	})
}
