package eventstream

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReconnectBackoff(t *testing.T) {
	b := newReconnectBackoff(time.Second, 30*time.Second)

	var delays []time.Duration
	for i := 0; i < 8; i++ {
		delays = append(delays, b.next())
	}
	require.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second, 30 * time.Second,
	}, delays)

	b.reset()
	require.Equal(t, time.Second, b.peek())
	require.Equal(t, time.Second, b.next())
	require.Equal(t, 2*time.Second, b.peek())
}

func TestReconnectBackoff_FloorEqualsCeiling(t *testing.T) {
	b := newReconnectBackoff(5*time.Second, 5*time.Second)
	require.Equal(t, 5*time.Second, b.next())
	require.Equal(t, 5*time.Second, b.next())
}

func TestReconnectBackoff_HugeCeilingDoesNotOverflow(t *testing.T) {
	ceiling := time.Duration(math.MaxInt64)
	b := newReconnectBackoff(time.Second, ceiling)

	prev := time.Duration(0)
	for i := 0; i < 80; i++ {
		delay := b.next()
		require.Positive(t, delay)
		require.GreaterOrEqual(t, delay, prev)
		prev = delay
	}
	require.Equal(t, ceiling, b.peek())
}
