package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"volumetracker/internal/market"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	MaxFeedClients = 100

	feedWriteTimeout = 10 * time.Second
	feedPongTimeout  = 60 * time.Second
	feedPingInterval = 30 * time.Second
	feedSendBuffer   = 16
)

var ErrFeedClosed = errors.New("feed closed")

// FeedMessage is the envelope pushed to websocket subscribers.
type FeedMessage struct {
	Type string      `json:"type"`
	Data market.View `json:"data"`
	Time string      `json:"time"`
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// registration asks the hub to admit c; the hub answers on accepted.
type registration struct {
	c        *feedClient
	accepted chan bool
}

// Feed fans combined views out to websocket subscribers. It implements
// tracker.Publisher; new subscribers receive the latest view on connect.
type Feed struct {
	clients    map[*feedClient]struct{}
	broadcast  chan []byte
	register   chan registration
	unregister chan *feedClient
	done       chan struct{}
	closeOnce  sync.Once
	maxClients int

	mu     sync.RWMutex
	latest []byte

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewFeed(logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		clients:    make(map[*feedClient]struct{}),
		broadcast:  make(chan []byte, 8),
		register:   make(chan registration),
		unregister: make(chan *feedClient),
		done:       make(chan struct{}),
		maxClients: MaxFeedClients,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Run is the hub loop. It owns the client set and returns when ctx is done
// or Close is called, disconnecting every subscriber.
func (f *Feed) Run(ctx context.Context) {
	defer func() {
		for c := range f.clients {
			delete(f.clients, c)
			close(c.send)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			f.Close()
			return
		case <-f.done:
			return

		case reg := <-f.register:
			if len(f.clients) >= f.maxClients {
				reg.accepted <- false
				f.logger.Warn("feed client rejected", zap.Int("max", f.maxClients))
				continue
			}
			c := reg.c
			f.clients[c] = struct{}{}
			reg.accepted <- true
			if latest := f.latestMessage(); latest != nil {
				c.send <- latest
			}
			f.logger.Info("feed client connected", zap.Int("clients", len(f.clients)))

		case c := <-f.unregister:
			if _, ok := f.clients[c]; ok {
				delete(f.clients, c)
				close(c.send)
			}
			f.logger.Info("feed client disconnected", zap.Int("clients", len(f.clients)))

		case msg := <-f.broadcast:
			for c := range f.clients {
				select {
				case c.send <- msg:
				default:
					// slow consumer
					delete(f.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Close stops the hub loop. Safe to call more than once.
func (f *Feed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

// Publish queues view for every connected subscriber.
func (f *Feed) Publish(ctx context.Context, view market.View) error {
	msg, err := json.Marshal(FeedMessage{
		Type: "update",
		Data: view,
		Time: view.LastUpdate,
	})
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.latest = msg
	f.mu.Unlock()

	select {
	case f.broadcast <- msg:
		return nil
	case <-f.done:
		return ErrFeedClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Feed) latestMessage() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest
}

// ServeHTTP upgrades the request and attaches the connection to the hub.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-f.done:
		http.Error(w, ErrFeedClosed.Error(), http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &feedClient{conn: conn, send: make(chan []byte, feedSendBuffer)}
	reg := registration{c: c, accepted: make(chan bool, 1)}
	select {
	case f.register <- reg:
	case <-f.done:
		_ = conn.Close()
		return
	}
	if !<-reg.accepted {
		_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "feed at capacity"))
		_ = conn.Close()
		return
	}

	go f.writePump(c)
	go f.readPump(c)
}

func (f *Feed) writePump(c *feedClient) {
	ticker := time.NewTicker(feedPingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services control frames; subscribers never send data.
func (f *Feed) readPump(c *feedClient) {
	defer func() {
		select {
		case f.unregister <- c:
		case <-f.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(feedPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(feedPongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.Debug("feed read error", zap.Error(err))
			}
			return
		}
	}
}
