// Package ws streams the master server's registry to websocket subscribers.
package ws

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/benruijl/walledin/internal/master"
)

const (
	// TypeServers tags a full registry snapshot.
	TypeServers = "servers"

	defaultWriteTimeout = 5 * time.Second
	sendBuffer          = 8
)

// Message is the JSON frame sent to subscribers. Every frame carries the
// whole registry, so a subscriber that misses one loses nothing.
type Message struct {
	Type    string         `json:"type"`
	Seq     uint64         `json:"seq"`
	Servers []master.Entry `json:"servers"`
}

type FeedConfig struct {
	Logger       *log.Logger
	WriteTimeout time.Duration
}

// Feed implements master.Feed. Publish is called from the master tick and
// never blocks on a subscriber: a subscriber whose buffer is full is cut off.
type Feed struct {
	logger       *log.Logger
	upgrader     websocket.Upgrader
	writeTimeout time.Duration

	mu      sync.Mutex
	latest  []byte
	seq     uint64
	clients map[*subscriber]struct{}
	closed  bool
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.send)
	})
}

func NewFeed(cfg FeedConfig) *Feed {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	f := &Feed{
		logger:       logger,
		writeTimeout: timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
		clients: make(map[*subscriber]struct{}),
	}
	f.latest = f.encode(nil)
	return f
}

func (f *Feed) encode(entries []master.Entry) []byte {
	if entries == nil {
		entries = []master.Entry{}
	}
	data, err := json.Marshal(Message{Type: TypeServers, Seq: f.seq, Servers: entries})
	if err != nil {
		f.logger.Printf("[ws] failed to encode registry snapshot: %v", err)
		return nil
	}
	return data
}

func (f *Feed) Publish(entries []master.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.seq++
	data := f.encode(entries)
	if data == nil {
		return
	}
	f.latest = data
	for sub := range f.clients {
		select {
		case sub.send <- data:
		default:
			f.logger.Printf("[ws] subscriber %s too slow, disconnecting", sub.conn.RemoteAddr())
			delete(f.clients, sub)
			sub.close()
		}
	}
}

// Subscribers reports how many websocket clients are attached.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// ServeHTTP upgrades the request, sends the current snapshot and then keeps
// the connection until the peer goes away. Inbound frames are discarded.
func (f *Feed) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Printf("[ws] upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	sub.send <- f.latest
	f.clients[sub] = struct{}{}
	f.mu.Unlock()

	go f.writeLoop(sub)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	f.remove(sub)
}

func (f *Feed) remove(sub *subscriber) {
	f.mu.Lock()
	delete(f.clients, sub)
	f.mu.Unlock()
	sub.close()
}

func (f *Feed) writeLoop(sub *subscriber) {
	defer sub.conn.Close()
	for data := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
		if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			f.remove(sub)
			// Drain so a concurrent Publish never blocks on this subscriber.
			for range sub.send {
			}
			return
		}
	}
	sub.conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
	sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Close disconnects every subscriber and rejects new ones.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for sub := range f.clients {
		delete(f.clients, sub)
		sub.close()
	}
}
