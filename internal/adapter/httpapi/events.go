package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/logger"
)

// EventCartUpdated — имя SSE-события, которое слушает значок корзины в браузере.
const EventCartUpdated = "cartUpdated"

// handleEvents держит SSE-поток и пересылает сигналы шины сессии в браузер.
// Сигнал без полезной нагрузки: клиент сам перечитывает корзину.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	log := logger.FromContext(r.Context())
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	// Буфер на один сигнал: подряд идущие публикации схлопываются.
	signals := make(chan struct{}, 1)
	unsubscribe := sess.Bus.Subscribe(func(context.Context) {
		select {
		case signals <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		log.Warn("streaming unsupported", zap.Error(err))
		return
	}
	log.Debug("event stream opened")

	ticker := time.NewTicker(s.opts.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug("event stream closed")
			return
		case <-signals:
			fmt.Fprintf(w, "event: %s\ndata: {}\n\n", EventCartUpdated)
		case <-ticker.C:
			// держим сессию живой, пока открыт поток
			s.Sessions.Get(sess.ID)
			fmt.Fprint(w, ": ping\n\n")
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
