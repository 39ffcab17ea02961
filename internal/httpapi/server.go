package httpapi

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/daehyun-kim/chess-review/internal/gamestore"
	"github.com/daehyun-kim/chess-review/internal/keymap"
	"github.com/daehyun-kim/chess-review/internal/session"
	"github.com/daehyun-kim/chess-review/pkg/reviewdto"
)

// Server is the dashboard-facing REST surface. Navigation boundary
// conditions are ordinary 200 responses carrying unchanged state, never
// errors; only absent resources and malformed requests fail.
type Server struct {
	sessions    *session.Manager
	games       gamestore.Repository
	keys        *keymap.Keymap
	logger      *zap.Logger
	maxSessions int
}

func NewServer(sessions *session.Manager, games gamestore.Repository, keys *keymap.Keymap, maxSessions int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		sessions:    sessions,
		games:       games,
		keys:        keys,
		logger:      logger,
		maxSessions: maxSessions,
	}
}

// ListenAndServe blocks serving the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	srv := &fasthttp.Server{
		Handler: s.Handler,
		Name:    "reviewd",
	}
	return srv.ListenAndServe(addr)
}

// Handler routes one request. Exposed for in-memory tests.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	switch {
	case path == "/api/sessions" && method == fasthttp.MethodPost:
		s.createSession(ctx)
	case strings.HasPrefix(path, "/api/sessions/"):
		s.routeSession(ctx, strings.TrimPrefix(path, "/api/sessions/"), method)
	case path == "/api/games" && method == fasthttp.MethodGet:
		s.listGames(ctx)
	case strings.HasPrefix(path, "/api/games/") && method == fasthttp.MethodGet:
		s.getGame(ctx, strings.TrimPrefix(path, "/api/games/"))
	case path == "/api/keymap" && method == fasthttp.MethodGet:
		s.getKeymap(ctx)
	default:
		s.writeError(ctx, fasthttp.StatusNotFound, "not_found", "unknown route")
	}
}

func (s *Server) routeSession(ctx *fasthttp.RequestCtx, rest, method string) {
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		s.writeError(ctx, fasthttp.StatusNotFound, "not_found", "missing session id")
		return
	}
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch {
	case sub == "" && method == fasthttp.MethodGet:
		s.getSession(ctx, id)
	case sub == "" && method == fasthttp.MethodDelete:
		s.deleteSession(ctx, id)
	case sub == "nav" && method == fasthttp.MethodPost:
		s.navSession(ctx, id)
	case sub == "position" && method == fasthttp.MethodGet:
		s.getPosition(ctx, id)
	default:
		s.writeError(ctx, fasthttp.StatusNotFound, "not_found", "unknown route")
	}
}

func (s *Server) createSession(ctx *fasthttp.RequestCtx) {
	var req reviewdto.CreateSessionRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if s.maxSessions > 0 && s.sessions.Count() >= s.maxSessions {
		s.writeError(ctx, fasthttp.StatusTooManyRequests, "too_many_sessions", "session limit reached")
		return
	}
	sess, err := s.sessions.Create(ctx, req.GameID)
	if errors.Is(err, gamestore.ErrGameNotFound) {
		s.writeError(ctx, fasthttp.StatusNotFound, "game_not_found", "no such game")
		return
	}
	if err != nil {
		s.internalError(ctx, "session_create_failed", err)
		return
	}
	snap, err := sess.State()
	if err != nil {
		s.internalError(ctx, "session_state_failed", err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusCreated, toSessionState(snap))
}

func (s *Server) getSession(ctx *fasthttp.RequestCtx, id string) {
	// Resume revives a snapshotted session after a restart; for live
	// sessions it is a plain lookup.
	sess, err := s.sessions.Resume(ctx, id)
	if err != nil {
		s.sessionError(ctx, err)
		return
	}
	snap, err := sess.State()
	if err != nil {
		s.sessionError(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, toSessionState(snap))
}

func (s *Server) deleteSession(ctx *fasthttp.RequestCtx, id string) {
	if err := s.sessions.Destroy(ctx, id); err != nil {
		s.sessionError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) navSession(ctx *fasthttp.RequestCtx, id string) {
	var req reviewdto.NavRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.sessionError(ctx, err)
		return
	}
	arg := req.Index
	if session.NavOp(req.Op) == session.NavSetSpeed {
		arg = req.SpeedMs
	}
	snap, err := sess.Nav(session.NavOp(req.Op), arg)
	if errors.Is(err, session.ErrUnknownNavOp) {
		s.writeError(ctx, fasthttp.StatusBadRequest, "unknown_op", "unknown navigation op: "+req.Op)
		return
	}
	if err != nil {
		s.sessionError(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, toSessionState(snap))
}

func (s *Server) getPosition(ctx *fasthttp.RequestCtx, id string) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.sessionError(ctx, err)
		return
	}
	index, err := strconv.Atoi(string(ctx.QueryArgs().Peek("index")))
	if err != nil {
		s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "index query parameter required")
		return
	}
	pos, err := sess.PositionAt(index)
	if err != nil {
		s.sessionError(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, reviewdto.PositionResponse{Index: index, FEN: pos.FEN()})
}

func (s *Server) listGames(ctx *fasthttp.RequestCtx) {
	limit, _ := strconv.Atoi(string(ctx.QueryArgs().Peek("limit")))
	games, err := s.games.ListRecent(ctx, limit)
	if err != nil {
		s.internalError(ctx, "game_list_failed", err)
		return
	}
	out := make([]reviewdto.GameSummary, 0, len(games))
	for _, g := range games {
		out = append(out, toGameSummary(g))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) getGame(ctx *fasthttp.RequestCtx, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "invalid game id")
		return
	}
	game, err := s.games.GetGame(ctx, id)
	if errors.Is(err, gamestore.ErrGameNotFound) {
		s.writeError(ctx, fasthttp.StatusNotFound, "game_not_found", "no such game")
		return
	}
	if err != nil {
		s.internalError(ctx, "game_get_failed", err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, toGameDetail(game))
}

func (s *Server) getKeymap(ctx *fasthttp.RequestCtx) {
	s.writeJSON(ctx, fasthttp.StatusOK, s.keys.Bindings())
}

func (s *Server) sessionError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionClosed):
		s.writeError(ctx, fasthttp.StatusNotFound, "session_not_found", "no such session")
	case errors.Is(err, gamestore.ErrGameNotFound):
		s.writeError(ctx, fasthttp.StatusNotFound, "game_not_found", "game for session is gone")
	default:
		s.internalError(ctx, "session_op_failed", err)
	}
}

func (s *Server) internalError(ctx *fasthttp.RequestCtx, code string, err error) {
	s.logger.Error("http_"+code, zap.Error(err), zap.ByteString("path", ctx.Path()))
	s.writeError(ctx, fasthttp.StatusInternalServerError, code, "internal error")
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, status int, code, message string) {
	s.writeJSON(ctx, status, reviewdto.APIError{Code: code, Message: message})
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
