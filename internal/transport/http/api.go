package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"phish-party-service/internal/app"
	"phish-party-service/internal/domain"
)

var (
	errInvalidPayload  = errors.New("invalid payload")
	errUnsupportedType = errors.New("unsupported message type")
)

// APIHandler serves the REST endpoints for rooms and training content.
type APIHandler struct {
	rooms   *app.RoomService
	content *app.ContentService
}

func NewAPIHandler(rooms *app.RoomService, content *app.ContentService) *APIHandler {
	return &APIHandler{rooms: rooms, content: content}
}

// Register mounts the REST routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rooms", h.createRoom)
	mux.HandleFunc("GET /api/rooms/{code}", h.getRoom)
	mux.HandleFunc("GET /api/modules", h.listModules)
	mux.HandleFunc("GET /api/challenges", h.listChallenges)
	mux.HandleFunc("POST /api/challenges/{id}/solve", h.solveChallenge)
}

func (h *APIHandler) createRoom(w http.ResponseWriter, r *http.Request) {
	var req app.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errInvalidPayload)
		return
	}
	if req.HostID == "" {
		req.HostID = uuid.NewString()
	}
	room, err := h.rooms.CreateRoom(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRoomView(room, h.rooms.Now()))
}

func (h *APIHandler) getRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.Room(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoomView(room, h.rooms.Now()))
}

func (h *APIHandler) listModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.content.Modules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modules)
}

func (h *APIHandler) listChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.content.Challenges(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, challenges)
}

type solveRequest struct {
	Flag      string `json:"flag"`
	HintsUsed int    `json:"hintsUsed"`
}

func (h *APIHandler) solveChallenge(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errInvalidPayload)
		return
	}
	res, err := h.content.Solve(r.Context(), r.PathValue("id"), req.Flag, req.HintsUsed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write json response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrQuestionSetNotFound),
		errors.Is(err, domain.ErrChallengeNotFound),
		errors.Is(err, domain.ErrPlayerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotHost):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrRoomExists), errors.Is(err, domain.ErrInvalidStatus):
		status = http.StatusConflict
	case errors.Is(err, errInvalidPayload),
		errors.Is(err, domain.ErrInvalidRound),
		errors.Is(err, domain.ErrEmptyQuestionSet):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
