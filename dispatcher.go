package eventstream

import (
	"runtime/debug"

	"github.com/devspaces/eventstream-go/api"
	"github.com/devspaces/eventstream-go/util"
)

type dispatcher struct {
	registry       *subscriptionRegistry
	onAuthRequired func(event api.Event)
}

func (d *dispatcher) dispatch(event api.Event) {
	if event.Type_ == api.EventType_AuthRequired {
		d.onAuthRequired(event)
		return
	}

	exact, wildcard := d.registry.match(event.Type_)
	if len(exact) == 0 && len(wildcard) == 0 {
		util.Debugf("SSE - No listeners for %s", event.Type_)
		return
	}
	for _, sub := range exact {
		d.invoke(sub, event)
	}
	for _, sub := range wildcard {
		d.invoke(sub, event)
	}
}

func (d *dispatcher) invoke(sub *subscription, event api.Event) {
	defer func() {
		if r := recover(); r != nil {
			_ = util.Errorf("SSE - Listener for %q panicked on %s: %v\n%s", sub.pattern, event.Type_, r, debug.Stack())
		}
	}()
	sub.listener(event.Payload, event.Type_)
}
