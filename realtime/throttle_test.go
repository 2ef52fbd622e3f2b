package realtime

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottleCoalescesBurst(t *testing.T) {
	var fires atomic.Int32
	th := newThrottle(50*time.Millisecond, func() { fires.Add(1) })

	// leading edge: the first trigger after an idle period fires at once
	th.trigger()
	require.Equal(t, int32(1), fires.Load())

	// a burst inside the window collapses to one trailing fire
	for i := 0; i < 5; i++ {
		th.trigger()
	}
	assert.Equal(t, int32(1), fires.Load())
	require.Eventually(t, func() bool { return fires.Load() == 2 },
		time.Second, 5*time.Millisecond)

	// nothing queued beyond the single trailing call
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(2), fires.Load())
}

func TestThrottleLeadingEdgeAfterIdle(t *testing.T) {
	var fires atomic.Int32
	th := newThrottle(30*time.Millisecond, func() { fires.Add(1) })

	th.trigger()
	time.Sleep(60 * time.Millisecond)
	th.trigger()
	assert.Equal(t, int32(2), fires.Load(), "trigger after the window fires immediately")
}

func TestThrottleStop(t *testing.T) {
	var fires atomic.Int32
	th := newThrottle(30*time.Millisecond, func() { fires.Add(1) })

	th.trigger()
	th.trigger() // arms the trailing timer
	th.stop()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), fires.Load(), "stop cancels the pending trailing fire")

	th.trigger()
	assert.Equal(t, int32(1), fires.Load(), "stopped throttle never fires again")
}
