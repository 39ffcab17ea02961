package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/daehyun-kim/chess-review/internal/domain"
	"github.com/daehyun-kim/chess-review/internal/gamestore"
	"github.com/daehyun-kim/chess-review/internal/keymap"
	"github.com/daehyun-kim/chess-review/internal/session"
)

func newTestServer(t *testing.T) (*Server, int64) {
	t.Helper()
	repo := gamestore.NewMemoryRepository()
	gameID, err := repo.InsertGame(context.Background(), &domain.GameRecord{
		White:  "alice",
		Black:  "bob",
		Result: "1-0",
		Moves: []domain.MoveRecord{
			{Notation: "e4"}, {Notation: "e5"}, {Notation: "Nf3"},
		},
		PlayedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("InsertGame: %v", err)
	}

	mgr := session.NewManager(repo, nil, session.Config{}, nil)
	t.Cleanup(mgr.Close)
	keys, err := keymap.Load("")
	if err != nil {
		t.Fatalf("keymap.Load: %v", err)
	}
	return NewServer(mgr, repo, keys, 10, nil), gameID
}

func doRequest(t *testing.T, s *Server, method, uri string, body string) *fasthttp.RequestCtx {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	s.Handler(&ctx)
	return &ctx
}

func decodeBody(t *testing.T, ctx *fasthttp.RequestCtx, out any) {
	t.Helper()
	if err := json.Unmarshal(ctx.Response.Body(), out); err != nil {
		t.Fatalf("decode response %q: %v", ctx.Response.Body(), err)
	}
}

func createSession(t *testing.T, s *Server, gameID int64) string {
	t.Helper()
	ctx := doRequest(t, s, fasthttp.MethodPost, "/api/sessions", fmt.Sprintf(`{"game_id":%d}`, gameID))
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusCreated {
		t.Fatalf("create session status %d: %s", got, ctx.Response.Body())
	}
	var state struct {
		SessionID string `json:"session_id"`
	}
	decodeBody(t, ctx, &state)
	if state.SessionID == "" {
		t.Fatalf("empty session id")
	}
	return state.SessionID
}

func TestCreateSessionAndNavigate(t *testing.T) {
	s, gameID := newTestServer(t)
	id := createSession(t, s, gameID)

	ctx := doRequest(t, s, fasthttp.MethodPost, "/api/sessions/"+id+"/nav", `{"op":"next"}`)
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusOK {
		t.Fatalf("nav status %d: %s", got, ctx.Response.Body())
	}
	var state struct {
		CurrentIndex int    `json:"current_index"`
		TotalMoves   int    `json:"total_moves"`
		FEN          string `json:"fen"`
	}
	decodeBody(t, ctx, &state)
	if state.CurrentIndex != 0 || state.TotalMoves != 3 || state.FEN == "" {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestNavBoundaryReturnsOKUnchanged(t *testing.T) {
	s, gameID := newTestServer(t)
	id := createSession(t, s, gameID)

	doRequest(t, s, fasthttp.MethodPost, "/api/sessions/"+id+"/nav", `{"op":"last"}`)
	ctx := doRequest(t, s, fasthttp.MethodPost, "/api/sessions/"+id+"/nav", `{"op":"next"}`)
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusOK {
		t.Fatalf("boundary nav status %d", got)
	}
	var state struct {
		CurrentIndex int `json:"current_index"`
	}
	decodeBody(t, ctx, &state)
	if state.CurrentIndex != 2 {
		t.Fatalf("boundary next moved index: %d", state.CurrentIndex)
	}
}

func TestNavUnknownOpRejected(t *testing.T) {
	s, gameID := newTestServer(t)
	id := createSession(t, s, gameID)
	ctx := doRequest(t, s, fasthttp.MethodPost, "/api/sessions/"+id+"/nav", `{"op":"rewind"}`)
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusBadRequest {
		t.Fatalf("unknown op status %d", got)
	}
}

func TestGetPosition(t *testing.T) {
	s, gameID := newTestServer(t)
	id := createSession(t, s, gameID)
	ctx := doRequest(t, s, fasthttp.MethodGet, "/api/sessions/"+id+"/position?index=1", "")
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusOK {
		t.Fatalf("position status %d: %s", got, ctx.Response.Body())
	}
	var pos struct {
		Index int    `json:"index"`
		FEN   string `json:"fen"`
	}
	decodeBody(t, ctx, &pos)
	if pos.Index != 1 || pos.FEN == "" {
		t.Fatalf("unexpected position: %+v", pos)
	}
}

func TestCreateSessionUnknownGame(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := doRequest(t, s, fasthttp.MethodPost, "/api/sessions", `{"game_id":999}`)
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusNotFound {
		t.Fatalf("status %d", got)
	}
}

func TestDeleteSession(t *testing.T) {
	s, gameID := newTestServer(t)
	id := createSession(t, s, gameID)

	ctx := doRequest(t, s, fasthttp.MethodDelete, "/api/sessions/"+id, "")
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusNoContent {
		t.Fatalf("delete status %d", got)
	}
	ctx = doRequest(t, s, fasthttp.MethodGet, "/api/sessions/"+id, "")
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusNotFound {
		t.Fatalf("status after delete %d", got)
	}
}

func TestListAndGetGames(t *testing.T) {
	s, gameID := newTestServer(t)

	ctx := doRequest(t, s, fasthttp.MethodGet, "/api/games", "")
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusOK {
		t.Fatalf("list status %d", got)
	}
	var list []struct {
		ID        int64 `json:"id"`
		MoveCount int   `json:"move_count"`
	}
	decodeBody(t, ctx, &list)
	if len(list) != 1 || list[0].ID != gameID || list[0].MoveCount != 3 {
		t.Fatalf("unexpected list: %+v", list)
	}

	ctx = doRequest(t, s, fasthttp.MethodGet, fmt.Sprintf("/api/games/%d", gameID), "")
	var detail struct {
		Moves []string `json:"moves"`
	}
	decodeBody(t, ctx, &detail)
	if len(detail.Moves) != 3 || detail.Moves[0] != "e4" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
}

func TestGetKeymap(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := doRequest(t, s, fasthttp.MethodGet, "/api/keymap", "")
	var bindings map[string]string
	decodeBody(t, ctx, &bindings)
	if bindings["ArrowRight"] != "next" {
		t.Fatalf("unexpected keymap: %+v", bindings)
	}
}

func TestSessionLimit(t *testing.T) {
	s, gameID := newTestServer(t)
	s.maxSessions = 1
	createSession(t, s, gameID)
	ctx := doRequest(t, s, fasthttp.MethodPost, "/api/sessions", fmt.Sprintf(`{"game_id":%d}`, gameID))
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusTooManyRequests {
		t.Fatalf("limit status %d", got)
	}
}
