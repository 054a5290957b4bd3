package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mmcdole/ebookctl/internal/domain"
)

const (
	handshakeTimeout = 10 * time.Second
	closeGracePeriod = time.Second
)

// Subscriber opens job progress streams over WebSocket.
// It implements domain.Subscriber.
type Subscriber struct {
	baseURL *url.URL
	dialer  *websocket.Dialer
	logger  *slog.Logger
}

// NewSubscriber derives the ws(s) endpoint from the API base URL
func NewSubscriber(baseURL string, logger *slog.Logger) (*Subscriber, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return &Subscriber{
		baseURL: u,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		logger: logger,
	}, nil
}

// StreamURL returns the WebSocket URL for a job
func (s *Subscriber) StreamURL(jobID string) string {
	u := *s.baseURL
	u.Path = "/ws/jobs/" + url.PathEscape(jobID)
	u.RawPath = ""
	u.RawQuery = ""
	return u.String()
}

// Subscribe connects to the progress stream of jobID
func (s *Subscriber) Subscribe(ctx context.Context, jobID string) (domain.Stream, error) {
	target := s.StreamURL(jobID)
	requestID := uuid.NewString()

	header := http.Header{}
	header.Set(requestIDHeader, requestID)

	conn, resp, err := s.dialer.DialContext(ctx, target, header)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Error("websocket dial failed", "url", target, "requestID", requestID, "error", err)
		if resp != nil {
			resp.Body.Close()
			return nil, domain.NewStatusError(resp.StatusCode)
		}
		return nil, &domain.RemoteError{Message: domain.ErrServerOffline.Error(), Err: domain.ErrServerOffline}
	}

	s.logger.Debug("websocket connected", "url", target, "requestID", requestID)
	return &wsStream{conn: conn, logger: s.logger, jobID: jobID}, nil
}

// wsStream adapts a gorilla connection to domain.Stream
type wsStream struct {
	conn   *websocket.Conn
	logger *slog.Logger
	jobID  string

	closeOnce sync.Once
	closeErr  error
}

// Next returns the next text frame. A normal close from the server is io.EOF.
func (w *wsStream) Next() ([]byte, error) {
	for {
		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				w.logger.Debug("websocket closed by server", "job", w.jobID, "code", closeErr.Code, "text", closeErr.Text)
			}
			return nil, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		return data, nil
	}
}

// Close sends a close frame and releases the connection. Safe to call repeatedly.
func (w *wsStream) Close() error {
	w.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}

var _ domain.Subscriber = (*Subscriber)(nil)
