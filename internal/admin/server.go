// Package admin — операторский HTTP-эндпоинт: здоровье, снимок состояния,
// метрики Prometheus и поток событий по websocket. Только чтение.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EgorLis/meshbot/internal/bot"
)

// Source — то, что сервер читает у бота.
type Source interface {
	State() bot.Snapshot
	Cached() *bot.CachedData
}

type Server struct {
	Bot Source
	Hub *Hub
	// Connected сообщает, есть ли связь с радио; nil — не проверяется.
	Connected func() bool

	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewServer(src Source, hub *Hub, log *slog.Logger) *Server {
	return &Server{
		Bot: src,
		Hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/state", s.handleState)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		s.handleEvents(ctx, w, r)
	})
	return mux
}

// Run слушает addr, пока не отменят ctx.
func (s *Server) Run(ctx context.Context, addr string) error {
	go s.Hub.Run(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("admin server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.Connected != nil && !s.Connected() {
		status, code = "radio disconnected", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		State       bot.Snapshot    `json:"state"`
		Cache       *bot.CachedData `json:"cache"`
		Subscribers int             `json:"subscribers"`
	}{s.Bot.State(), s.Bot.Cached(), s.Hub.Subscribers()})
}

func (s *Server) handleEvents(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("upgrade failed", "err", err)
		return
	}
	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case s.Hub.register <- sub:
	case <-ctx.Done():
		conn.Close()
		return
	}
	go s.Hub.writePump(sub)
	go s.Hub.readPump(ctx, sub)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
