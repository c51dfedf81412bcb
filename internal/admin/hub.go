package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/EgorLis/meshbot/internal/bot"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Hub раздаёт события бота всем подписчикам /events.
// Медленный подписчик теряет события, бот никогда не ждёт.
type Hub struct {
	log        *slog.Logger
	register   chan *subscriber
	unregister chan *subscriber
	broadcast  chan []byte
	count      atomic.Int32
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:        log,
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		broadcast:  make(chan []byte, 256),
	}
}

// Publish реализует bot.EventSink.
func (h *Hub) Publish(e bot.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.log.Error("marshal event", "err", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("event buffer full, dropping event", "kind", e.Kind)
	}
}

// Subscribers — число подключённых клиентов /events.
func (h *Hub) Subscribers() int { return int(h.count.Load()) }

func (h *Hub) Run(ctx context.Context) {
	subs := map[*subscriber]struct{}{}
	defer func() {
		for s := range subs {
			close(s.send)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-h.register:
			subs[s] = struct{}{}
			h.count.Store(int32(len(subs)))
			h.log.Info("events subscriber connected", "remote", s.conn.RemoteAddr().String())
		case s := <-h.unregister:
			if _, ok := subs[s]; ok {
				delete(subs, s)
				close(s.send)
				h.count.Store(int32(len(subs)))
				h.log.Info("events subscriber gone", "remote", s.conn.RemoteAddr().String())
			}
		case msg := <-h.broadcast:
			for s := range subs {
				select {
				case s.send <- msg:
				default:
					h.log.Warn("subscriber too slow, dropping event")
				}
			}
		}
	}
}

// readPump нужен только для ping/pong и обнаружения закрытия.
func (h *Hub) readPump(ctx context.Context, s *subscriber) {
	defer func() {
		select {
		case h.unregister <- s:
		case <-ctx.Done():
		}
		s.conn.Close()
	}()
	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Info("events subscriber disconnected", "err", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
