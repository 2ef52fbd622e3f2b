package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireSymmetric checks the structural invariant: B in A.connections
// iff A in B.connections.
func requireSymmetric(t *testing.T, d *Data) {
	t.Helper()
	for i := range d.Hexagons {
		h := &d.Hexagons[i]
		require.NotContains(t, h.Connections, h.ID, "self-loop on %s", h.ID)
		for _, peer := range h.Connections {
			p := d.Hex(peer)
			if p == nil {
				continue // dangling ids are tolerated, not symmetric
			}
			require.Contains(t, p.Connections, h.ID, "%s -> %s missing back edge", h.ID, peer)
		}
	}
}

func testData(ids ...string) Data {
	var d Data
	for i, id := range ids {
		d.Hexagons = append(d.Hexagons, Hexagon{ID: id, Number: i + 1})
	}
	return d
}

func TestConnect(t *testing.T) {
	d := testData("a", "b")

	Connect(d.Hex("a"), d.Hex("b"))
	requireSymmetric(t, &d)
	assert.Equal(t, []string{"b"}, d.Hex("a").Connections)

	t.Run("idempotent", func(t *testing.T) {
		Connect(d.Hex("a"), d.Hex("b"))
		assert.Len(t, d.Hex("a").Connections, 1)
		assert.Len(t, d.Hex("b").Connections, 1)
	})

	t.Run("no self-loops", func(t *testing.T) {
		Connect(d.Hex("a"), d.Hex("a"))
		assert.NotContains(t, d.Hex("a").Connections, "a")
	})

	t.Run("disconnect removes both ends", func(t *testing.T) {
		Disconnect(d.Hex("a"), d.Hex("b"))
		assert.Empty(t, d.Hex("a").Connections)
		assert.Empty(t, d.Hex("b").Connections)
	})
}

func TestClearConnections(t *testing.T) {
	d := testData("a", "b", "c")
	Connect(d.Hex("a"), d.Hex("b"))
	Connect(d.Hex("a"), d.Hex("c"))

	d.ClearConnections("a")

	assert.Empty(t, d.Hex("a").Connections)
	assert.Empty(t, d.Hex("b").Connections)
	assert.Empty(t, d.Hex("c").Connections)
	requireSymmetric(t, &d)
}

func TestRepairConnections(t *testing.T) {
	t.Run("adds missing back edges", func(t *testing.T) {
		d := testData("a", "b")
		d.Hex("a").Connections = []string{"b"}
		d.RepairConnections()
		requireSymmetric(t, &d)
	})

	t.Run("drops self-loops", func(t *testing.T) {
		d := testData("a")
		d.Hex("a").Connections = []string{"a"}
		d.RepairConnections()
		assert.Empty(t, d.Hex("a").Connections)
	})

	t.Run("leaves dangling ids alone", func(t *testing.T) {
		d := testData("a")
		d.Hex("a").Connections = []string{"gone"}
		d.RepairConnections()
		assert.Equal(t, []string{"gone"}, d.Hex("a").Connections)
	})
}

func TestComponent(t *testing.T) {
	d := testData("a", "b", "c", "d", "e")
	Connect(d.Hex("a"), d.Hex("b"))
	Connect(d.Hex("b"), d.Hex("c"))
	Connect(d.Hex("d"), d.Hex("e"))

	assert.ElementsMatch(t, []string{"a", "b", "c"}, d.Component("a"))
	assert.ElementsMatch(t, []string{"d", "e"}, d.Component("e"))
	assert.Nil(t, d.Component("missing"))

	t.Run("cycle terminates", func(t *testing.T) {
		Connect(d.Hex("c"), d.Hex("a"))
		assert.ElementsMatch(t, []string{"a", "b", "c"}, d.Component("b"))
	})
}

func TestNextNumber(t *testing.T) {
	var d Data
	assert.Equal(t, 1, d.NextNumber())
	d.Hexagons = append(d.Hexagons, Hexagon{ID: "a", Number: 7})
	assert.Equal(t, 8, d.NextNumber())
}

func TestClone(t *testing.T) {
	d := testData("a", "b")
	Connect(d.Hex("a"), d.Hex("b"))
	d.Hex("a").Content = &Content{Type: "text", Value: "note"}

	c := d.Clone()
	c.Hex("a").Text = "changed"
	c.Hex("a").Content.Value = "other"
	c.Hex("a").Connections[0] = "x"

	assert.Equal(t, "", d.Hex("a").Text)
	assert.Equal(t, "note", d.Hex("a").Content.Value)
	assert.Equal(t, []string{"b"}, d.Hex("a").Connections)
}
