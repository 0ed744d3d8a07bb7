package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quizhost-session-service/internal/domain"
	"quizhost-session-service/internal/engine"
)

// Handler exposes the session engine over a polling REST API. Transport stays
// thin: parse, call the engine, map the error kind to a status code.
type Handler struct {
	engine *engine.Engine
}

func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// Register mounts all admin and player routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/games/{gameID}/sessions", h.startSession)
	mux.HandleFunc("POST /admin/sessions/{sessionID}/advance", h.advanceSession)
	mux.HandleFunc("POST /admin/sessions/{sessionID}/end", h.endSession)
	mux.HandleFunc("GET /admin/sessions/{sessionID}/status", h.sessionStatus)
	mux.HandleFunc("GET /admin/sessions/{sessionID}/results", h.sessionResults)
	mux.HandleFunc("POST /play/sessions/{sessionID}/join", h.joinSession)
	mux.HandleFunc("GET /play/players/{playerID}/question", h.currentQuestion)
	mux.HandleFunc("PUT /play/players/{playerID}/answer", h.submitAnswer)
	mux.HandleFunc("GET /play/players/{playerID}/answer", h.revealAnswers)
	mux.HandleFunc("GET /play/players/{playerID}/results", h.playerResults)
}

// requesterID identifies the admin caller. Authentication itself happens
// upstream; this service only needs the identity the gateway resolved.
func requesterID(r *http.Request) string {
	if id := r.Header.Get("X-Requester-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("requester")
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.engine.StartSession(r.Context(), r.PathValue("gameID"), requesterID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sessionID})
}

func (h *Handler) advanceSession(w http.ResponseWriter, r *http.Request) {
	position, err := h.engine.AdvanceSession(r.Context(), r.PathValue("sessionID"), requesterID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"position": position})
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.EndSession(r.Context(), r.PathValue("sessionID"), requesterID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ended": true})
}

func (h *Handler) sessionStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.SessionStatus(r.Context(), r.PathValue("sessionID"), requesterID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) sessionResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.engine.SessionResults(r.Context(), r.PathValue("sessionID"), requesterID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type joinRequest struct {
	Name string `json:"name"`
}

func (h *Handler) joinSession(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewInputError("invalid join payload"))
		return
	}
	playerID, err := h.engine.JoinSession(r.Context(), r.PathValue("sessionID"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"playerId": playerID})
}

func (h *Handler) currentQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := h.engine.CurrentQuestion(r.Context(), r.PathValue("playerID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

type answerRequest struct {
	Answers []string `json:"answers"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewInputError("invalid answer payload"))
		return
	}
	if err := h.engine.SubmitAnswer(r.Context(), r.PathValue("playerID"), req.Answers); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"submitted": true})
}

func (h *Handler) revealAnswers(w http.ResponseWriter, r *http.Request) {
	answers, err := h.engine.RevealAnswers(r.Context(), r.PathValue("playerID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"answers": answers})
}

func (h *Handler) playerResults(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.engine.PlayerResults(r.Context(), r.PathValue("playerID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomes)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps the two recoverable error kinds to distinct status codes so
// clients can branch (retry vs redirect vs form error). Anything else is an
// opaque 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsInputError(err):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case domain.IsAccessError(err):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}
