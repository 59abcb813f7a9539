package eventstream

import (
	"fmt"

	"github.com/devspaces/eventstream-go/api"
	"github.com/devspaces/eventstream-go/util"
)

// Client keeps one live connection to the platform's event stream and
// delivers every pushed event to the listeners subscribed to it.
// In most cases there should be only one, shared, Client per session.
type Client struct {
	options    *Options
	cfg        *HTTPConfiguration
	registry   *subscriptionRegistry
	dispatcher *dispatcher
	sse        *SSEManager
}

// NewClient validates the options and returns a disconnected client. Call
// Connect to open the stream.
func NewClient(options *Options) (*Client, error) {
	if options == nil {
		return nil, fmt.Errorf("Missing options! Call NewClient with a BaseURL.")
	}
	options.CheckDefaults()
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if options.Logger != nil {
		util.SetLogger(options.Logger)
	}

	c := &Client{
		options:  options,
		cfg:      NewConfiguration(options),
		registry: newSubscriptionRegistry(),
	}
	c.dispatcher = &dispatcher{
		registry:       c.registry,
		onAuthRequired: c.handleAuthRequired,
	}

	sse, err := newSSEManager(options, c.cfg, c.dispatcher.dispatch)
	if err != nil {
		return nil, err
	}
	c.sse = sse
	return c, nil
}

// Connect opens the stream in the background. It is a no-op while a stream
// exists or a connection attempt is in flight.
func (c *Client) Connect() {
	c.sse.connect()
}

// Disconnect closes the stream and cancels any pending reconnect. No events
// are delivered until Connect is called again.
func (c *Client) Disconnect() {
	c.sse.disconnect()
}

// Close disconnects for good; Connect is a no-op afterwards.
func (c *Client) Close() {
	c.sse.Close()
}

func (c *Client) IsConnected() bool {
	return c.sse.Connected.Load()
}

func (c *Client) State() api.ConnectionState {
	return c.sse.connectionState()
}

// Subscribe registers fn for pattern, which is either an exact event type or
// "namespace:*" to receive every event of that namespace. Listeners for the
// same pattern run in registration order; exact listeners run before wildcard
// listeners. Patterns are not validated: one that matches nothing is never
// invoked.
func (c *Client) Subscribe(pattern string, fn Listener) UnsubscribeFunc {
	sub := c.registry.add(pattern, fn)
	return func() {
		if c.registry.remove(sub) {
			util.Debugf("SSE - Removed listener for %q", pattern)
		}
	}
}

func (c *Client) handleAuthRequired(event api.Event) {
	util.Warnf("SSE - Session expired, signing out")
	c.Disconnect()
	c.sse.emit(api.ClientEvent{
		EventType: api.ClientEventType_AuthRequired,
		EventData: c.cfg.SignOutURL,
		Status:    "failure",
	})
	if c.options.OnAuthRequired != nil {
		c.options.OnAuthRequired(c.cfg.SignOutURL)
	}
}
