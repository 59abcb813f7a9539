package eventstream

import "time"

// reconnectBackoff doubles the reconnect delay on every scheduled attempt,
// capped at ceiling. Only a successful open resets it.
type reconnectBackoff struct {
	floor   time.Duration
	ceiling time.Duration
	current time.Duration
}

func newReconnectBackoff(floor, ceiling time.Duration) *reconnectBackoff {
	return &reconnectBackoff{floor: floor, ceiling: ceiling, current: floor}
}

// next returns the delay to use for the attempt being scheduled and advances
// the delay for the one after it.
func (b *reconnectBackoff) next() time.Duration {
	delay := b.current
	if b.current > b.ceiling/2 {
		b.current = b.ceiling
	} else {
		b.current *= 2
	}
	return delay
}

func (b *reconnectBackoff) peek() time.Duration {
	return b.current
}

func (b *reconnectBackoff) reset() {
	b.current = b.floor
}
