package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/flemzord/toolgate/internal/security"
)

// MessageType identifies a frame of the backend WebSocket protocol.
type MessageType string

// Frames exchanged with a WebSocket backend.
const (
	MsgToolCall   MessageType = "tool_call"
	MsgToolResult MessageType = "tool_result"
	MsgError      MessageType = "error"
)

// Envelope is the wire format of every frame. ID correlates a result with
// its call.
type Envelope struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ErrorPayload is the payload of an error frame.
type ErrorPayload struct {
	Message string `json:"message"`
}

const defaultDialTimeout = 10 * time.Second

// WebSocketConfig configures a WebSocket backend client.
type WebSocketConfig struct {
	URL         string
	Headers     map[string]string
	DialTimeout time.Duration
	Logger      *slog.Logger

	// Limits bound each result payload. MaxSize also caps the frame size.
	Limits security.PayloadLimits
}

type result struct {
	resp Response
	err  error
}

// WebSocket multiplexes calls over one persistent connection. The
// connection is dialed on first use and redialed after a failure; calls in
// flight when it drops fail with ErrTransport.
type WebSocket struct {
	url         string
	header      http.Header
	dialTimeout time.Duration
	logger      *slog.Logger
	limits      security.PayloadLimits

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan result
	closed  bool
}

var _ Backend = (*WebSocket)(nil)

// NewWebSocket creates a WebSocket backend client. No connection is made
// until the first Call.
func NewWebSocket(cfg WebSocketConfig) (*WebSocket, error) {
	if cfg.URL == "" {
		return nil, ErrNoURL
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Limits.MaxSize <= 0 {
		cfg.Limits.MaxSize = security.DefaultMaxPayloadSize
	}
	header := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}
	return &WebSocket{
		url:         cfg.URL,
		header:      header,
		dialTimeout: cfg.DialTimeout,
		logger:      cfg.Logger.With("component", "backend.websocket"),
		limits:      cfg.Limits,
		pending:     make(map[string]chan result),
	}, nil
}

func (w *WebSocket) connect(ctx context.Context) (*websocket.Conn, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	if w.conn != nil {
		return w.conn, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, w.dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, w.url, &websocket.DialOptions{HTTPHeader: w.header})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: dial %s: %w", ErrTransport, w.url, err)
	}
	// Room for the envelope around a maximal payload.
	conn.SetReadLimit(int64(w.limits.MaxSize) + 4096)

	w.conn = conn
	go w.readLoop(conn)
	w.logger.Info("backend connected", "url", w.url)
	return conn, nil
}

func (w *WebSocket) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			w.drop(conn, err)
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			w.logger.Warn("invalid frame from backend", "error", err)
			continue
		}
		w.deliver(env)
	}
}

func (w *WebSocket) deliver(env Envelope) {
	var res result
	switch env.Type {
	case MsgToolResult:
		if err := w.limits.Check(env.Payload); err != nil {
			res.err = fmt.Errorf("%w: result %s: %w", ErrTransport, env.ID, err)
		} else if resp, err := decodeResponse(env.Payload); err != nil {
			res.err = transportErr("result %s is not a JSON object: %v", env.ID, err)
		} else {
			res.resp = resp
		}
	case MsgError:
		// An error frame with a message is a failure the backend reported
		// for this call; anything else is a broken frame.
		var p ErrorPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			res.err = transportErr("error frame %s: %v", env.ID, err)
		} else if p.Message == "" {
			res.err = transportErr("error frame %s carries no message", env.ID)
		} else {
			res.resp = Response{"success": false, "message": p.Message}
		}
	default:
		w.logger.Debug("ignoring frame", "type", string(env.Type))
		return
	}

	w.mu.Lock()
	ch, ok := w.pending[env.ID]
	w.mu.Unlock()
	if !ok {
		w.logger.Debug("result for unknown call", "id", env.ID)
		return
	}
	select {
	case ch <- res:
	default:
	}
}

// drop forgets a dead connection and fails every call waiting on it.
func (w *WebSocket) drop(conn *websocket.Conn, cause error) {
	w.mu.Lock()
	if w.conn != conn {
		w.mu.Unlock()
		return
	}
	w.conn = nil
	waiting := w.pending
	w.pending = make(map[string]chan result)
	closed := w.closed
	w.mu.Unlock()

	if !closed {
		w.logger.Warn("backend connection lost", "error", cause)
	}
	for _, ch := range waiting {
		select {
		case ch <- result{err: fmt.Errorf("%w: connection lost: %w", ErrTransport, cause)}:
		default:
		}
	}
}

// Call implements Backend.
func (w *WebSocket) Call(ctx context.Context, req Request) (Response, error) {
	conn, err := w.connect(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("backend: encode request: %w", err)
	}

	id := uuid.NewString()
	ch := make(chan result, 1)

	w.mu.Lock()
	w.pending[id] = ch
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.pending, id)
		w.mu.Unlock()
	}()

	data, _ := json.Marshal(Envelope{
		Type:      MsgToolCall,
		ID:        id,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: write: %w", ErrTransport, err)
	}

	select {
	case res := <-ch:
		return res.resp, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements Backend.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	w.closed = true
	conn := w.conn
	w.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "client closing")
}
