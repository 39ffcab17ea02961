package wsgate

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/daehyun-kim/chess-review/internal/session"
	"github.com/daehyun-kim/chess-review/pkg/reviewdto"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
	eventBuffer  = 32
)

// Gateway streams session events (index changes, preload notices) to
// dashboard clients over websocket. One write pump per connection; a
// slow client drops events rather than stalling the session loop.
type Gateway struct {
	sessions *session.Manager
	logger   *zap.Logger
	srv      *http.Server
}

func New(sessions *session.Manager, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{sessions: sessions, logger: logger}
}

// ListenAndServe blocks serving websocket upgrades on addr.
func (g *Gateway) ListenAndServe(addr string) error {
	g.srv = &http.Server{Addr: addr, Handler: g.handler()}
	return g.srv.ListenAndServe()
}

func (g *Gateway) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions/", g.handleEvents)
	return mux
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.srv == nil {
		return nil
	}
	return g.srv.Shutdown(ctx)
}

// handleEvents serves GET /api/sessions/{id}/events.
func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	id, ok := strings.CutSuffix(rest, "/events")
	if !ok || id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	// Resume so a client reconnecting after a restart does not depend on
	// some other request having revived the session first.
	sess, err := g.sessions.Resume(r.Context(), id)
	if err != nil {
		http.Error(w, "no such session", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		g.logger.Warn("ws_accept_failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	events := make(chan reviewdto.Event, eventBuffer)
	unsub := sess.Subscribe(func(ev session.Event) {
		select {
		case events <- toEvent(id, ev):
		default:
			// Slow consumer: the dashboard refetches state on reconnect.
		}
	})
	defer unsub()

	g.logger.Info("ws_client_connected", zap.String("session_id", id))
	// CloseRead surfaces client disconnects through ctx cancellation.
	ctx := conn.CloseRead(r.Context())
	g.pump(ctx, conn, events, id)
}

func (g *Gateway) pump(ctx context.Context, conn *websocket.Conn, events <-chan reviewdto.Event, id string) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			g.logger.Info("ws_client_disconnected", zap.String("session_id", id))
			return
		case ev := <-events:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, ev)
			cancel()
			if err != nil {
				g.logger.Debug("ws_write_failed", zap.String("session_id", id), zap.Error(err))
				return
			}
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func toEvent(sessionID string, ev session.Event) reviewdto.Event {
	out := reviewdto.Event{SessionID: sessionID}
	switch ev.Type {
	case session.EventIndexChange:
		out.Type = reviewdto.EventTypeIndexChange
		out.Index = ev.Index
	case session.EventPreload:
		out.Type = reviewdto.EventTypePreload
		for _, w := range ev.Warmed {
			out.Positions = append(out.Positions, reviewdto.PositionResponse{
				Index: w.Index,
				FEN:   w.Position.FEN(),
			})
		}
	}
	return out
}
