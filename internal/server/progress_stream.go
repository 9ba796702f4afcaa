package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/fundscore/internal/events"
)

// ProgressStreamHandler pushes engine events (cycle and backtest progress,
// completions, errors) to websocket clients.
type ProgressStreamHandler struct {
	events *events.Manager
	log    zerolog.Logger
}

// NewProgressStreamHandler creates the websocket progress handler.
func NewProgressStreamHandler(eventManager *events.Manager, log zerolog.Logger) *ProgressStreamHandler {
	return &ProgressStreamHandler{
		events: eventManager,
		log:    log.With().Str("component", "progress_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/scoring/progress websocket upgrades. Each
// client gets its own event subscription; a slow client drops events
// rather than stalling the emitters.
func (h *ProgressStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Same-origin policy is handled by the CORS middleware upstream.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ch, unsubscribe := h.events.Subscribe()
	defer unsubscribe()

	h.log.Debug().Str("remote", r.RemoteAddr).Msg("Progress stream client connected")

	ctx := r.Context()
	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-pingTicker.C:
			if err := h.ping(ctx, conn); err != nil {
				h.log.Debug().Err(err).Msg("Progress stream ping failed, closing")
				return
			}
		case event, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Progress stream write failed, closing")
				return
			}
		}
	}
}

func (h *ProgressStreamHandler) ping(ctx context.Context, conn *websocket.Conn) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Ping(pingCtx)
}
