package eventstream

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/launchdarkly/eventsource"

	"github.com/devspaces/eventstream-go/api"
	"github.com/devspaces/eventstream-go/util"
)

// eventStream is the part of *eventsource.Stream the manager depends on.
type eventStream interface {
	events() <-chan eventsource.Event
	Close()
}

type sourceStream struct {
	*eventsource.Stream
}

func (s sourceStream) events() <-chan eventsource.Event {
	return s.Events
}

type streamDialer func(req *http.Request, onError eventsource.StreamErrorHandler) (eventStream, error)

type stopper interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) stopper

func timeAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

// SSEManager owns the single stream to the events endpoint. It reconnects on
// any failure with a capped exponential backoff until Disconnect is called.
type SSEManager struct {
	options   *Options
	cfg       *HTTPConfiguration
	dial      streamDialer
	afterFunc afterFunc
	onEvent   func(event api.Event)

	// deliverMu serializes listener calls across transports.
	deliverMu sync.Mutex

	mu      sync.Mutex
	stream  eventStream
	state   api.ConnectionState
	backoff *reconnectBackoff
	// generation increments on every connection attempt and on Disconnect.
	// Callbacks from an older generation are ignored.
	generation   uint64
	reconnecting bool
	retryTimer   stopper
	hasOpened    bool
	closed       bool

	Connected atomic.Bool
}

func newSSEManager(options *Options, cfg *HTTPConfiguration, onEvent func(event api.Event)) (*SSEManager, error) {
	if options == nil {
		return nil, fmt.Errorf("SSE - Options cannot be nil")
	}
	m := &SSEManager{
		options:   options,
		cfg:       cfg,
		afterFunc: timeAfterFunc,
		onEvent:   onEvent,
		backoff:   newReconnectBackoff(options.MinReconnectDelay, options.MaxReconnectDelay),
		state:     api.ConnectionState_Idle,
	}
	m.dial = m.dialEventSource
	return m, nil
}

func (m *SSEManager) dialEventSource(req *http.Request, onError eventsource.StreamErrorHandler) (eventStream, error) {
	opts := []eventsource.StreamOption{
		eventsource.StreamOptionHTTPClient(m.cfg.HTTPClient),
		eventsource.StreamOptionErrorHandler(onError),
	}
	if m.options.ReadTimeout > 0 {
		opts = append(opts, eventsource.StreamOptionReadTimeout(m.options.ReadTimeout))
	}
	stream, err := eventsource.SubscribeWithRequestAndOptions(req, opts...)
	if err != nil {
		return nil, err
	}
	return sourceStream{stream}, nil
}

// connect starts a connection attempt unless a stream exists or an attempt is
// already in flight. The attempt runs in the background.
func (m *SSEManager) connect() {
	m.mu.Lock()
	if m.closed || m.stream != nil || m.state == api.ConnectionState_Connecting {
		m.mu.Unlock()
		return
	}
	m.stopRetryTimerLocked()
	gen := m.beginAttemptLocked()
	m.mu.Unlock()

	go m.open(gen)
}

func (m *SSEManager) beginAttemptLocked() uint64 {
	m.generation++
	m.state = api.ConnectionState_Connecting
	return m.generation
}

func (m *SSEManager) stopRetryTimerLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	m.reconnecting = false
}

func (m *SSEManager) open(gen uint64) {
	req, err := m.cfg.newStreamRequest()
	var stream eventStream
	if err == nil {
		util.Debugf("SSE - Connecting to %s", m.cfg.EventsURL)
		stream, err = m.dial(req, m.errorHandler(gen))
	}

	m.mu.Lock()
	if gen != m.generation {
		// Disconnected while dialing.
		m.mu.Unlock()
		if stream != nil {
			closeAndDrain(stream)
		}
		return
	}
	if err != nil {
		m.mu.Unlock()
		m.failed(gen, fmt.Errorf("error connecting to %s: %w", m.cfg.EventsURL, err))
		return
	}
	m.stream = stream
	m.state = api.ConnectionState_Open
	m.reconnecting = false
	m.backoff.reset()
	reconnected := m.hasOpened
	m.hasOpened = true
	m.Connected.Store(true)
	m.mu.Unlock()

	util.Infof("SSE - Connected to %s", m.cfg.EventsURL)
	m.emit(api.ClientEvent{
		EventType: api.ClientEventType_Connected,
		EventData: "Connected to SSE stream: " + m.cfg.EventsURL,
		Status:    "success",
	})
	go m.receiveSSEMessages(gen, stream, reconnected)
}

func (m *SSEManager) errorHandler(gen uint64) eventsource.StreamErrorHandler {
	return func(err error) eventsource.StreamErrorHandlerResult {
		m.failed(gen, err)
		// The manager owns reconnection, so the stream never retries on its own.
		return eventsource.StreamErrorHandlerResult{CloseNow: true}
	}
}

// failed moves the current attempt to Closed and schedules exactly one
// reconnect for it. Repeated failure signals for the same attempt are ignored.
func (m *SSEManager) failed(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.generation || m.reconnecting || m.closed {
		m.mu.Unlock()
		return
	}
	m.stream = nil
	m.state = api.ConnectionState_Closed
	m.Connected.Store(false)
	m.reconnecting = true
	delay := m.backoff.next()
	m.retryTimer = m.afterFunc(delay, func() { m.retry(gen) })
	m.mu.Unlock()

	util.Warnf("SSE - Stream error: %v. Reconnecting in %s", err, delay)
	m.emit(api.ClientEvent{
		EventType: api.ClientEventType_ReconnectScheduled,
		EventData: delay,
		Status:    "failure",
		Error:     err,
	})
}

func (m *SSEManager) retry(gen uint64) {
	m.mu.Lock()
	if gen != m.generation || !m.reconnecting {
		m.mu.Unlock()
		return
	}
	m.retryTimer = nil
	m.reconnecting = false
	next := m.beginAttemptLocked()
	m.mu.Unlock()

	m.open(next)
}

func (m *SSEManager) receiveSSEMessages(gen uint64, stream eventStream, reconnected bool) {
	if reconnected {
		m.deliver(gen, api.Event{Type_: api.EventType_Reconnected})
	}
	// A failed stream still hands over what it read before the failure, so
	// keep reading until it is closed. Events of a superseded stream are
	// discarded by deliver.
	for event := range stream.events() {
		message, err := m.parseMessage([]byte(event.Data()))
		if err != nil {
			if !m.isCurrent(gen) {
				continue
			}
			util.Debugf("SSE - Dropping malformed message: %v", err)
			m.emit(api.ClientEvent{
				EventType: api.ClientEventType_Error,
				EventData: event.Data(),
				Status:    "failure",
				Error:     err,
			})
			continue
		}
		m.deliver(gen, message)
	}
	m.failed(gen, fmt.Errorf("SSE stream closed"))
}

// deliver passes event to the listeners unless Disconnect or a newer
// connection attempt has superseded gen. Only one event is delivered at a
// time.
func (m *SSEManager) deliver(gen uint64, event api.Event) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()
	if !m.isCurrent(gen) {
		return
	}
	m.onEvent(event)
}

// isCurrent reports whether gen is still the latest attempt. A failed stream
// stays current until its reconnect starts.
func (m *SSEManager) isCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.generation
}

func (m *SSEManager) parseMessage(rawMessage []byte) (message api.Event, err error) {
	err = util.Decode(rawMessage, &message, util.DefaultConfig())
	if err != nil {
		return
	}
	if message.Type_ == "" {
		err = fmt.Errorf("message has no type")
	}
	return
}

// disconnect closes the stream from any state and cancels a pending
// reconnect. The backoff delay is kept.
func (m *SSEManager) disconnect() {
	m.mu.Lock()
	m.generation++
	stream := m.stream
	m.stream = nil
	m.stopRetryTimerLocked()
	wasIdle := m.state == api.ConnectionState_Idle
	m.state = api.ConnectionState_Idle
	m.Connected.Store(false)
	m.mu.Unlock()

	if stream != nil {
		stream.Close()
	}
	if !wasIdle {
		util.Infof("SSE - Disconnected from %s", m.cfg.EventsURL)
		m.emit(api.ClientEvent{
			EventType: api.ClientEventType_Disconnected,
			EventData: "SSE stream has been stopped",
			Status:    "success",
		})
	}
}

func (m *SSEManager) connectionState() api.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close disconnects and prevents any further connection attempts.
func (m *SSEManager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.disconnect()
}

func (m *SSEManager) emit(event api.ClientEvent) {
	if m.options.ClientEventHandler == nil {
		return
	}
	select {
	case m.options.ClientEventHandler <- event:
	default:
		util.Debugf("SSE - ClientEventHandler is full, dropping %s event", event.EventType)
	}
}

func closeAndDrain(stream eventStream) {
	stream.Close()
	go func() {
		for range stream.events() {
		}
	}()
}
