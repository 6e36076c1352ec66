package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sveitser/node-telemetry/pkg/chain"
	"github.com/sveitser/node-telemetry/pkg/transform"
)

// Config configures the WebSocket leaf listener.
type Config struct {
	URL            string        // Base WebSocket URL (e.g., "wss://node.example.com")
	MaxRetries     int           // Max reconnection attempts (default: 25)
	ReconnectDelay time.Duration // Base delay between reconnects (default: 1s)
}

// LeafHandler is called for each finalized leaf, in delivery order.
type LeafHandler func(leaf chain.Leaf)

// Listener subscribes to a consensus node via WebSocket for finalized-leaf
// notifications.
type Listener struct {
	config Config
	onLeaf LeafHandler
	conn   *websocket.Conn
	mu     sync.RWMutex

	// Stats (protected by mu)
	connectedAt   time.Time
	messageCount  uint64
	lastMessageAt time.Time
}

// New creates a new WebSocket leaf listener.
func New(config Config, onLeaf LeafHandler) *Listener {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 25
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = time.Second
	}
	return &Listener{
		config: config,
		onLeaf: onLeaf,
	}
}

// Run starts the listener. It blocks until the context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	wsURL, err := l.buildURL()
	if err != nil {
		return fmt.Errorf("build websocket url: %w", err)
	}

	for attempt := 0; attempt < l.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		slog.Info("connecting to consensus node",
			"attempt", attempt+1,
			"max_retries", l.config.MaxRetries,
			"url", wsURL,
		)

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err == nil {
			l.mu.Lock()
			l.conn = conn
			l.connectedAt = time.Now()
			l.messageCount = 0
			l.mu.Unlock()

			slog.Info("leaf websocket connected", "url", wsURL)

			// ReadMessage has no deadline, so close the connection when the
			// context is cancelled to unblock it.
			watcherDone := make(chan struct{})
			go func() {
				select {
				case <-ctx.Done():
					_ = l.Close()
				case <-watcherDone:
				}
			}()

			err = l.listen(ctx, conn)
			close(watcherDone)
			if ctx.Err() != nil {
				_ = l.Close()
				return ctx.Err()
			}

			l.mu.Lock()
			uptime := time.Since(l.connectedAt)
			msgCount := l.messageCount
			if l.conn != nil {
				_ = l.conn.Close()
				l.conn = nil
			}
			l.mu.Unlock()

			slog.Warn("leaf websocket disconnected",
				"err", err,
				"uptime", uptime.Round(time.Second),
				"messages_received", msgCount,
			)

			// Reset attempt counter on successful connection
			attempt = 0
			continue
		}

		slog.Warn("failed to connect to consensus node",
			"attempt", attempt+1,
			"err", err,
		)

		// Linear backoff
		delay := time.Duration(attempt+1) * l.config.ReconnectDelay
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("max retries (%d) reached", l.config.MaxRetries)
}

// buildURL constructs the WebSocket subscription URL.
func (l *Listener) buildURL() (string, error) {
	parsed, err := url.Parse(l.config.URL)
	if err != nil {
		return "", err
	}

	host := parsed.Host
	if host == "" {
		host = parsed.Path
	}

	wsScheme := "ws"
	if parsed.Scheme == "https" || parsed.Scheme == "wss" {
		wsScheme = "wss"
	}

	wsURL := url.URL{
		Scheme: wsScheme,
		Host:   host,
		Path:   parsed.Path + "/v1/subscribe-leaves",
	}

	return wsURL.String(), nil
}

// listen reads messages from the WebSocket connection.
func (l *Listener) listen(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		var leaf chain.Leaf
		if err := json.Unmarshal(data, &leaf); err != nil {
			preview := data
			if len(preview) > 32 {
				preview = preview[:32]
			}
			slog.Warn("leaf unmarshal failed",
				"err", err,
				"data_len", len(data),
				"prefix", transform.BytesToHex(preview),
			)
			continue
		}

		// Update stats
		l.mu.Lock()
		l.messageCount++
		l.lastMessageAt = time.Now()
		msgNum := l.messageCount
		l.mu.Unlock()

		slog.Info("leaf received",
			"height", leaf.Header.Height,
			"msg_num", msgNum,
		)

		l.onLeaf(leaf)
	}
}

// Close gracefully closes the WebSocket connection.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		err := l.conn.Close()
		l.conn = nil
		return err
	}
	return nil
}

// IsConnected returns whether the listener is currently connected.
func (l *Listener) IsConnected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.conn != nil
}

// Stats returns current connection statistics.
func (l *Listener) Stats() (connected bool, uptime time.Duration, messageCount uint64, lastMessage time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	connected = l.conn != nil
	if connected {
		uptime = time.Since(l.connectedAt)
	}
	messageCount = l.messageCount
	lastMessage = l.lastMessageAt
	return
}
