// Package httpapi implements the HTTP boundary (spec §6 "HTTP boundary
// (external)"): a thin REST mirror of the socket services, plus
// authentication callbacks and ws-ticket issuance. No new semantics live
// here — every handler delegates straight into the same pkg/board,
// pkg/objectsvc, and pkg/boardstore calls the dispatcher uses.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/collabboard/server/pkg/board"
	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/boardstore"
	"github.com/collabboard/server/pkg/config"
	"github.com/collabboard/server/pkg/objectsvc"
)

const sessionCookieName = "collabboard_session"

// maxPreviewBody caps the raw upload read before pkg/board ever tries to
// decode it.
const maxPreviewBody = 8 << 20 // 8 MiB, matches board.maxPreviewUploadBytes

// Server wires the REST mirror onto a *http.ServeMux using Go 1.22's
// method-and-path routing patterns (this dependency family carries no
// third-party HTTP router — the stdlib mux is the non-deviation choice
// here, documented in DESIGN.md).
type Server struct {
	Boards  *board.Service
	Store   *boardstore.Store
	Tickets *TicketIssuer
	Cfg     *config.Config
	Log     zerolog.Logger
}

// New builds an httpapi.Server.
func New(boards *board.Service, store *boardstore.Store, tickets *TicketIssuer, cfg *config.Config, log zerolog.Logger) *Server {
	return &Server{
		Boards:  boards,
		Store:   store,
		Tickets: tickets,
		Cfg:     cfg,
		Log:     log.With().Str("component", "httpapi").Logger(),
	}
}

// Handler builds the routed http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/dev-login", s.handleDevLogin)
	mux.HandleFunc("POST /auth/ws-ticket", s.handleIssueTicket)

	mux.HandleFunc("GET /boards", s.handleListBoards)
	mux.HandleFunc("POST /boards", s.handleCreateBoard)
	mux.HandleFunc("DELETE /boards/{id}", s.handleDeleteBoard)
	mux.HandleFunc("GET /boards/{id}/members", s.handleListMembers)
	mux.HandleFunc("GET /boards/{id}/export", s.handleExportJSONL)
	mux.HandleFunc("PUT /boards/{id}/preview", s.handleSetPreview)
	mux.HandleFunc("GET /boards/{id}/preview", s.handleGetPreview)

	mux.HandleFunc("POST /boards/{id}/objects", s.handleCreateObject)
	mux.HandleFunc("PATCH /boards/{id}/objects/{objectId}", s.handleUpdateObject)
	mux.HandleFunc("DELETE /boards/{id}/objects/{objectId}", s.handleDeleteObject)

	return mux
}

// handleDevLogin is a dev-only authentication callback stand-in for a real
// identity provider: it accepts a caller-asserted user id and mints a
// session cookie. It is gated behind PERF_TEST_AUTH_BYPASS, same as the
// wire protocol's own dev bypass (spec §6 "PERF_TEST_AUTH_BYPASS — bool,
// dev-only").
func (s *Server) handleDevLogin(w http.ResponseWriter, r *http.Request) {
	if !s.Cfg.PerfTestAuthBypass {
		http.Error(w, "dev login is disabled", http.StatusForbidden)
		return
	}
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.UserID) == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    body.UserID,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Cfg.CookieSecure,
		Path:     "/",
	})
	writeJSON(w, http.StatusOK, map[string]string{"user_id": body.UserID})
}

// handleIssueTicket mints a short-lived socket connect ticket for the
// caller's authenticated session (spec §6 "issuance of short-lived socket
// connect tickets").
func (s *Server) handleIssueTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromSession(r)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ticket": s.Tickets.Issue(userID)})
}

func (s *Server) userFromSession(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", false
	}
	return cookie.Value, true
}

func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromSession(r)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	boards, err := s.Boards.List(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

func (s *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromSession(r)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	b, err := s.Boards.Create(body.Name, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromSession(r)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	boardID := r.PathValue("id")
	if err := s.Boards.Delete(boardID, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	boardID := r.PathValue("id")
	members, err := s.Boards.Members(boardID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleExportJSONL(w http.ResponseWriter, r *http.Request) {
	boardID := r.PathValue("id")
	data, err := s.Boards.ExportJSONL(boardID)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleSetPreview accepts a client-submitted board preview image, which
// pkg/board downsamples and stores (spec §4.H "board preview snapshot").
func (s *Server) handleSetPreview(w http.ResponseWriter, r *http.Request) {
	boardID := r.PathValue("id")
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPreviewBody))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if err := s.Boards.SetPreviewSnapshot(boardID, raw); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetPreview serves a board's stored preview PNG.
func (s *Server) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	boardID := r.PathValue("id")
	data, err := s.Boards.PreviewSnapshot(boardID)
	if err != nil {
		writeError(w, err)
		return
	}
	if data == nil {
		http.Error(w, "board has no preview snapshot", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleCreateObject mirrors the socket's object:create (spec §6 "object
// CRUD mirroring the socket ops, same invariants"): it hydrates the board
// if needed and goes through the same objectsvc.Create call the dispatcher
// uses.
func (s *Server) handleCreateObject(w http.ResponseWriter, r *http.Request) {
	boardID := r.PathValue("id")
	bs, err := s.Boards.Hydrate(boardID)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Kind     string         `json:"kind"`
		X        float64        `json:"x"`
		Y        float64        `json:"y"`
		Width    *float64       `json:"width,omitempty"`
		Height   *float64       `json:"height,omitempty"`
		Rotation float64        `json:"rotation_deg"`
		ZIndex   int            `json:"z_index"`
		Props    map[string]any `json:"props"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	userID, _ := s.userFromSession(r)
	obj, err := objectsvc.Create(bs, boardID, objectsvc.CreateInput{
		Kind: boardmodel.ObjectKind(body.Kind), X: body.X, Y: body.Y,
		Width: body.Width, Height: body.Height, Rotation: body.Rotation,
		ZIndex: body.ZIndex, Props: body.Props, CreatedBy: &userID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, obj)
}

func (s *Server) handleUpdateObject(w http.ResponseWriter, r *http.Request) {
	boardID := r.PathValue("id")
	objectID := r.PathValue("objectId")
	bs, ok := s.Store.Get(boardID)
	if !ok {
		http.Error(w, "board is not resident: "+boardID, http.StatusNotFound)
		return
	}
	var body struct {
		Version  int64          `json:"version"`
		X        *float64       `json:"x,omitempty"`
		Y        *float64       `json:"y,omitempty"`
		Width    *float64       `json:"width,omitempty"`
		Height   *float64       `json:"height,omitempty"`
		Rotation *float64       `json:"rotation_deg,omitempty"`
		ZIndex   *int           `json:"z_index,omitempty"`
		Props    map[string]any `json:"props,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	obj, err := objectsvc.Update(bs, objectID, boardstore.Patch{
		X: body.X, Y: body.Y, Width: body.Width, Height: body.Height,
		Rotation: body.Rotation, ZIndex: body.ZIndex, Props: body.Props,
	}, body.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	boardID := r.PathValue("id")
	objectID := r.PathValue("objectId")
	bs, ok := s.Store.Get(boardID)
	if !ok {
		http.Error(w, "board is not resident: "+boardID, http.StatusNotFound)
		return
	}
	if err := objectsvc.Delete(bs, objectID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the wire error taxonomy (spec §6) onto the nearest HTTP
// status, the same codes the socket transport would have surfaced in an
// error frame's data.code.
func writeError(w http.ResponseWriter, err error) {
	code := boarderrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case boarderrors.CodeBadFrame, boarderrors.CodeValidation:
		status = http.StatusBadRequest
	case boarderrors.CodeForbidden:
		status = http.StatusForbidden
	case boarderrors.CodeBoardNotFound, boarderrors.CodeObjectNotFound:
		status = http.StatusNotFound
	case boarderrors.CodeStaleUpdate:
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"code": string(code), "message": err.Error()})
}
