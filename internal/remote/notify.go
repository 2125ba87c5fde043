package remote

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/tidwall/gjson"

	"github.com/skydrift/skydrift/internal/files"
)

const (
	notifyReconnectMin = 5 * time.Second
	notifyReconnectMax = 5 * time.Minute

	// notifyChanSize buffers change notices so a slow sync pass does not
	// stall the read loop.
	notifyChanSize = 64

	// notifyReadLimit caps a notification frame. Notices are tiny JSON
	// objects; anything larger is a protocol violation.
	notifyReadLimit = 1 * 1024 * 1024
)

// ChangeNotice is a server push telling the client something changed
// beneath a remote path. It carries no payload: the client reacts by
// scheduling a reconciliation of the named folder.
type ChangeNotice struct {
	RemotePath string
}

// Notifier maintains a WebSocket subscription to the server's change
// feed. Notices are delivered on C; the connection reconnects with
// exponential backoff until the context is cancelled.
type Notifier struct {
	C chan ChangeNotice

	wsURL    string
	username string
	password string
	logger   *slog.Logger

	// dial is swapped in tests.
	dial func(ctx context.Context) (notifyConn, error)
}

// notifyConn abstracts the WebSocket connection so the read loop can be
// tested without a server. *websocket.Conn satisfies it.
type notifyConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Close(code websocket.StatusCode, reason string) error
	SetReadLimit(n int64)
}

// NewNotifier creates a notifier for the server's change feed. wsURL is
// the full ws(s) endpoint, typically config.WebSocketURL().
func NewNotifier(wsURL, username, password string, logger *slog.Logger) *Notifier {
	n := &Notifier{
		C:        make(chan ChangeNotice, notifyChanSize),
		wsURL:    wsURL,
		username: username,
		password: password,
		logger:   logger,
	}
	n.dial = n.dialServer

	return n
}

func (n *Notifier) dialServer(ctx context.Context) (notifyConn, error) {
	req := &websocket.DialOptions{
		HTTPHeader: http.Header{},
	}
	req.HTTPHeader.Set("Authorization", basicAuth(n.username, n.password))

	conn, _, err := websocket.Dial(ctx, n.wsURL, req)
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// Run connects and pumps notices into C until ctx is cancelled. Dial and
// read failures back off exponentially with jitter and reconnect.
func (n *Notifier) Run(ctx context.Context) {
	backoff := notifyReconnectMin

	for ctx.Err() == nil {
		conn, err := n.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			n.logger.Warn("change feed dial failed",
				slog.String("error", err.Error()),
				slog.Duration("retry_in", backoff),
			)
			sleep(ctx, withJitter(backoff))
			backoff = nextBackoff(backoff)

			continue
		}

		conn.SetReadLimit(notifyReadLimit)
		n.logger.Info("change feed connected")
		backoff = notifyReconnectMin

		n.readLoop(ctx, conn)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

// readLoop drains one connection until it errors or ctx is cancelled.
func (n *Notifier) readLoop(ctx context.Context, conn notifyConn) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				n.logger.Warn("change feed read failed", slog.String("error", err.Error()))
			}

			return
		}

		if typ != websocket.MessageText {
			continue
		}

		event := gjson.GetBytes(data, "event").String()
		if event != "changed" {
			continue
		}

		path := gjson.GetBytes(data, "path").String()
		if path == "" {
			continue
		}

		notice := ChangeNotice{RemotePath: files.NormalizeRemotePath(path, true)}

		select {
		case n.C <- notice:
		default:
			// Slow consumer: drop the notice. The periodic pass picks
			// the change up anyway; notices only lower latency.
			n.logger.Debug("change notice dropped", slog.String("path", notice.RemotePath))
		}
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > notifyReconnectMax {
		return notifyReconnectMax
	}

	return next
}

func withJitter(d time.Duration) time.Duration {
	return d + time.Duration(rand.Int63n(int64(d/2)))
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func basicAuth(username, password string) string {
	req, _ := http.NewRequest(http.MethodGet, "http://placeholder", nil)
	req.SetBasicAuth(username, password)

	return req.Header.Get("Authorization")
}
