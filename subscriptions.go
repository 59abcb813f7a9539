package eventstream

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/devspaces/eventstream-go/api"
)

// Listener receives the raw payload of a matching event. eventType is the
// concrete type that was dispatched, which lets wildcard listeners tell
// events of the same namespace apart.
type Listener func(payload json.RawMessage, eventType string)

// UnsubscribeFunc removes exactly the registration that returned it. Calling
// it more than once is a no-op.
type UnsubscribeFunc func()

type subscription struct {
	id       uuid.UUID
	pattern  string
	prefix   string
	listener Listener
}

type subscriptionRegistry struct {
	mu sync.RWMutex
	// exact is keyed by event type, values in registration order.
	exact map[string][]*subscription
	// wildcards holds every "prefix:*" subscription in registration order.
	wildcards []*subscription
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{
		exact: make(map[string][]*subscription),
	}
}

func (r *subscriptionRegistry) add(pattern string, listener Listener) *subscription {
	sub := &subscription{
		id:       uuid.New(),
		pattern:  pattern,
		listener: listener,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if api.IsWildcardPattern(pattern) {
		sub.prefix = api.WildcardPrefix(pattern)
		r.wildcards = append(r.wildcards, sub)
	} else {
		r.exact[pattern] = append(r.exact[pattern], sub)
	}
	return sub
}

func (r *subscriptionRegistry) remove(sub *subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub.prefix != "" {
		var removed bool
		r.wildcards, removed = without(r.wildcards, sub.id)
		return removed
	}

	remaining, removed := without(r.exact[sub.pattern], sub.id)
	if len(remaining) == 0 {
		delete(r.exact, sub.pattern)
	} else {
		r.exact[sub.pattern] = remaining
	}
	return removed
}

// without returns a new slice so snapshots taken by an in-flight dispatch
// are never mutated.
func without(subs []*subscription, id uuid.UUID) ([]*subscription, bool) {
	for i, s := range subs {
		if s.id != id {
			continue
		}
		out := make([]*subscription, 0, len(subs)-1)
		out = append(out, subs[:i]...)
		return append(out, subs[i+1:]...), true
	}
	return subs, false
}

// match returns copies of the exact and wildcard subscriptions for eventType.
func (r *subscriptionRegistry) match(eventType string) (exact, wildcard []*subscription) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if subs := r.exact[eventType]; len(subs) > 0 {
		exact = make([]*subscription, len(subs))
		copy(exact, subs)
	}
	for _, s := range r.wildcards {
		if strings.HasPrefix(eventType, s.prefix) {
			wildcard = append(wildcard, s)
		}
	}
	return
}

func (r *subscriptionRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.wildcards)
	for _, subs := range r.exact {
		n += len(subs)
	}
	return n
}
