package eventstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/launchdarkly/eventsource"
	"github.com/stretchr/testify/require"
)

const (
	test_baseURL   = "https://spaces.test"
	test_eventsURL = test_baseURL + DefaultEventsPath
)

func TestMain(t *testing.M) {
	httpmock.Activate()
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	os.Exit(t.Run())
}

func testOptions() *Options {
	return &Options{BaseURL: test_baseURL}
}

type fakeEvent struct {
	id, event, data string
}

func (e fakeEvent) Id() string    { return e.id }
func (e fakeEvent) Event() string { return e.event }
func (e fakeEvent) Data() string  { return e.data }

type fakeStream struct {
	ch      chan eventsource.Event
	once    sync.Once
	closed  atomic.Bool
	onError eventsource.StreamErrorHandler
}

func (s *fakeStream) events() <-chan eventsource.Event {
	return s.ch
}

func (s *fakeStream) Close() {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
	})
}

func (s *fakeStream) send(data string) {
	s.ch <- fakeEvent{event: "message", data: data}
}

// fail reports err the way eventsource does when a read fails.
func (s *fakeStream) fail(err error) {
	if s.onError(err).CloseNow {
		s.Close()
	}
}

type fakeDialer struct {
	mu       sync.Mutex
	failures int
	hold     chan struct{}
	requests []*http.Request
	streams  []*fakeStream
}

func (d *fakeDialer) dial(req *http.Request, onError eventsource.StreamErrorHandler) (eventStream, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	hold := d.hold
	d.hold = nil
	d.mu.Unlock()

	if hold != nil {
		<-hold
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("connection refused")
	}
	s := &fakeStream{ch: make(chan eventsource.Event, 16), onError: onError}
	d.streams = append(d.streams, s)
	return s, nil
}

// holdNext blocks the next dial until release is closed.
func (d *fakeDialer) holdNext(release chan struct{}) {
	d.mu.Lock()
	d.hold = release
	d.mu.Unlock()
}

func (d *fakeDialer) failNext(n int) {
	d.mu.Lock()
	d.failures = n
	d.mu.Unlock()
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

func (d *fakeDialer) opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.streams)
}

func (d *fakeDialer) stream(i int) *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streams[i]
}

type fakeTimer struct {
	delay   time.Duration
	f       func()
	stopped atomic.Bool
	fired   atomic.Bool
}

func (t *fakeTimer) Stop() bool {
	return !t.fired.Load() && !t.stopped.Swap(true)
}

type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (ft *fakeTimers) afterFunc(d time.Duration, f func()) stopper {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{delay: d, f: f}
	ft.timers = append(ft.timers, t)
	return t
}

func (ft *fakeTimers) count() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return len(ft.timers)
}

func (ft *fakeTimers) delays() []time.Duration {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	out := make([]time.Duration, len(ft.timers))
	for i, t := range ft.timers {
		out[i] = t.delay
	}
	return out
}

func (ft *fakeTimers) last() *fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.timers[len(ft.timers)-1]
}

// fireLast runs the most recent timer's callback on the calling goroutine,
// unless it was stopped.
func (ft *fakeTimers) fireLast() {
	t := ft.last()
	if t.stopped.Load() {
		return
	}
	t.fired.Store(true)
	t.f()
}

// newTestClient returns a client whose transport and reconnect timer are fakes.
func newTestClient(t *testing.T, options *Options) (*Client, *fakeDialer, *fakeTimers) {
	t.Helper()
	if options == nil {
		options = testOptions()
	}
	c, err := NewClient(options)
	require.NoError(t, err)
	dialer, timers := &fakeDialer{}, &fakeTimers{}
	c.sse.dial = dialer.dial
	c.sse.afterFunc = timers.afterFunc
	t.Cleanup(c.Close)
	return c, dialer, timers
}

func connectAndWait(t *testing.T, c *Client, dialer *fakeDialer) *fakeStream {
	t.Helper()
	opened := dialer.opened()
	c.Connect()
	require.Eventually(t, func() bool {
		return dialer.opened() == opened+1 && c.IsConnected()
	}, time.Second, time.Millisecond)
	return dialer.stream(opened)
}

func sseBody(events ...string) string {
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "data: %s\n\n", e)
	}
	return b.String()
}

func httpSSEConnectionMock(respcode int, body string) {
	httpmock.RegisterResponder("GET", test_eventsURL,
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(respcode, body)
			resp.Header.Set("Content-Type", "text/event-stream")
			return resp, nil
		},
	)
}

// recorder collects listener invocations across goroutines.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *recorder) listener(name string) Listener {
	return func(payload json.RawMessage, eventType string) {
		r.add(name + " " + eventType + " " + string(payload))
	}
}

func fatalErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
