package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Listener holds the single realtime connection and fans change events
// out to attached stores. At most one connection exists per listener;
// attaching the same sink twice is a no-op.
type Listener struct {
	wsURL string
	token func() string

	mu     sync.Mutex
	sinks  map[string][]EventSink
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// NewListener creates a listener for the client's change feed. The API
// base URL is translated to its WebSocket endpoint.
func NewListener(c *Client) *Listener {
	wsURL := strings.Replace(c.baseURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	return &Listener{
		wsURL: wsURL + "/ws",
		token: c.Token,
		sinks: make(map[string][]EventSink),
	}
}

// Attach subscribes a store to its table's events
func (l *Listener) Attach(sink EventSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.sinks[sink.Table()] {
		if existing == sink {
			return
		}
	}
	l.sinks[sink.Table()] = append(l.sinks[sink.Table()], sink)
}

// Detach removes a store from the fan-out
func (l *Listener) Detach(sink EventSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sinks := l.sinks[sink.Table()]
	for i, existing := range sinks {
		if existing == sink {
			l.sinks[sink.Table()] = append(sinks[:i], sinks[i+1:]...)
			return
		}
	}
}

// Start dials the feed and pumps events until the context ends or Stop is
// called. Starting an already running listener is a no-op.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.conn != nil {
		l.mu.Unlock()
		return nil
	}

	token := l.token()
	if token == "" {
		l.mu.Unlock()
		return fmt.Errorf("no access token held")
	}

	dialURL := l.wsURL + "?token=" + url.QueryEscape(token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("failed to dial change feed: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.conn = conn
	l.cancel = cancel
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	go l.pump(runCtx, conn, done)
	return nil
}

// Stop tears the connection down. Events stop flowing; attached sinks
// stay registered for the next Start.
func (l *Listener) Stop() {
	l.mu.Lock()
	conn := l.conn
	cancel := l.cancel
	done := l.done
	l.conn = nil
	l.cancel = nil
	l.done = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
	}
}

type feedFrame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func (l *Listener) pump(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	defer conn.Close()

	// The server pings every 20s; any ping or data frame extends the
	// deadline.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	for {
		if ctx.Err() != nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame feedFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			continue
		}
		if frame.Type != "change" {
			continue
		}

		var event Event
		if err := json.Unmarshal(frame.Data, &event); err != nil {
			continue
		}

		l.dispatch(event)
	}
}

func (l *Listener) dispatch(event Event) {
	l.mu.Lock()
	sinks := append([]EventSink(nil), l.sinks[event.Table]...)
	l.mu.Unlock()

	for _, sink := range sinks {
		sink.ApplyEvent(event)
	}
}
