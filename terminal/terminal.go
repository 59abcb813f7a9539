// Package terminal attaches to the shell of a running space over a WebSocket.
// The server sends raw terminal output; the client sends keystrokes and
// window size changes as small JSON messages.
package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matryer/try"

	"github.com/devspaces/eventstream-go/util"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultDialAttempts = 3
)

type Options struct {
	// Header is sent with the handshake, typically Authorization or Cookie.
	Header http.Header
	Dialer *websocket.Dialer
	// DialAttempts bounds handshake retries while a space is still starting.
	// It is capped at try.MaxRetries.
	DialAttempts int
	WriteTimeout time.Duration
}

func (o *Options) checkDefaults() {
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	if o.DialAttempts <= 0 {
		o.DialAttempts = defaultDialAttempts
	} else if o.DialAttempts > try.MaxRetries {
		o.DialAttempts = try.MaxRetries
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
}

type clientMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	Cols int    `json:"cols,omitempty"`
	Rows int    `json:"rows,omitempty"`
}

// Session is one attached terminal. Writes are safe from multiple goroutines.
type Session struct {
	conn         *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
	closeOnce    sync.Once
}

// URL returns the terminal endpoint of spaceID on the platform at baseURL,
// with the scheme switched to ws or wss.
func URL(baseURL, spaceID string) (string, error) {
	if spaceID == "" {
		return "", errors.New("terminal: missing space id")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("terminal: invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("terminal: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/spaces/" + url.PathEscape(spaceID) + "/terminal"
	return u.String(), nil
}

// Dial opens a terminal session. Handshakes rejected with a 5xx status or a
// network error are retried; any other rejection is returned immediately.
func Dial(ctx context.Context, rawURL string, opts *Options) (*Session, error) {
	if opts == nil {
		opts = &Options{}
	}
	opts.checkDefaults()

	var conn *websocket.Conn
	err := try.Do(func(attempt int) (bool, error) {
		var resp *http.Response
		var err error
		conn, resp, err = opts.Dialer.DialContext(ctx, rawURL, opts.Header)
		if err == nil {
			return false, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if resp != nil {
			err = fmt.Errorf("terminal: handshake failed with status %d: %w", resp.StatusCode, err)
			if resp.StatusCode < 500 {
				return false, err
			}
		}
		if attempt >= opts.DialAttempts {
			return false, err
		}
		util.Debugf("Terminal - Dial attempt %d failed: %v", attempt, err)
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
		}
		return true, err
	})
	if err != nil {
		return nil, err
	}
	return &Session{conn: conn, writeTimeout: opts.WriteTimeout}, nil
}

func (s *Session) send(msg clientMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, raw)
}

// Write sends p as terminal input. It implements io.Writer so a session can
// be the target of io.Copy.
func (s *Session) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := s.send(clientMessage{Type: "input", Data: string(p)}); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *Session) Resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("terminal: invalid size %dx%d", cols, rows)
	}
	return s.send(clientMessage{Type: "resize", Cols: cols, Rows: rows})
}

// Pipe copies terminal output to stdout and stdin to the terminal until the
// server closes the session, ctx is done, reading stdin fails, or a socket
// error occurs. End of stdin does not end the session. A normal close by the
// server returns nil. After Pipe returns because ctx was done the session
// can no longer be read; after any other return Pipe may be called again.
func (s *Session) Pipe(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	done := make(chan struct{})
	defer close(done)
	interrupt := make(chan struct{})
	inputErr := make(chan error, 1)

	go func() {
		select {
		case <-ctx.Done():
		case <-interrupt:
		case <-done:
			return
		}
		// Unblocks ReadMessage below.
		_ = s.conn.SetReadDeadline(time.Now())
	}()

	if stdin != nil {
		go func() {
			if _, err := io.Copy(s, stdin); err != nil {
				util.Debugf("Terminal - Input closed: %v", err)
				inputErr <- err
				close(interrupt)
			}
		}()
	}

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			select {
			case inErr := <-inputErr:
				return fmt.Errorf("terminal: reading input: %w", inErr)
			default:
			}
			return err
		}
		if _, err = stdout.Write(data); err != nil {
			return err
		}
	}
}

// Close sends a close frame and releases the connection.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
