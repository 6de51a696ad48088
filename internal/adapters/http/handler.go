package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/PabloGalante/deltawind/internal/app/conversation"
	"github.com/PabloGalante/deltawind/internal/app/export"
	"github.com/PabloGalante/deltawind/internal/domain"
	"github.com/PabloGalante/deltawind/internal/observability"
)

type Server struct {
	svc *conversation.Service
}

func NewServer(svc *conversation.Service) http.Handler {
	s := &Server{svc: svc}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /personas", s.handleListPersonas)
	mux.HandleFunc("GET /reference", s.handleReference)

	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /sessions/{id}/reset", s.handleReset)
	mux.HandleFunc("PUT /sessions/{id}/phase", s.handleSetPhase)
	mux.HandleFunc("PUT /sessions/{id}/view", s.handleSetView)
	mux.HandleFunc("POST /sessions/{id}/personas/{persona}", s.handleSelectPersona)
	mux.HandleFunc("POST /sessions/{id}/personas/{persona}/messages", s.handleSendMessage)
	mux.HandleFunc("POST /sessions/{id}/briefings/{kind}", s.handleBriefing)
	mux.HandleFunc("GET /sessions/{id}/export", s.handleExport)

	return chainMiddlewares(mux, withLogging, withCORS, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type personaResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	Emoji   string `json:"emoji"`
	Advisor bool   `json:"advisor,omitempty"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Persona   string    `json:"persona"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type progressResponse struct {
	Interviewed int `json:"interviewed"`
	Total       int `json:"total"`
}

type sessionResponse struct {
	ID            string                       `json:"id"`
	ActivePersona string                       `json:"active_persona,omitempty"`
	View          string                       `json:"view"`
	Phase         string                       `json:"phase"`
	Conversations map[string][]messageResponse `json:"conversations"`
	Briefings     map[string]string            `json:"briefings,omitempty"`
	Progress      progressResponse             `json:"progress"`
	CreatedAt     time.Time                    `json:"created_at"`
	UpdatedAt     time.Time                    `json:"updated_at"`
}

type noticeResponse struct {
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	Retryable bool   `json:"retryable"`
}

type selectPersonaResponse struct {
	Session  sessionResponse  `json:"session"`
	Greeting *messageResponse `json:"greeting,omitempty"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	UserMessage  *messageResponse `json:"user_message,omitempty"`
	AgentMessage *messageResponse `json:"agent_message,omitempty"`
	Notice       *noticeResponse  `json:"notice,omitempty"`
	Attempts     int              `json:"attempts"`
}

type setPhaseRequest struct {
	Phase string `json:"phase"`
}

type setViewRequest struct {
	View string `json:"view"`
}

type briefingResponse struct {
	Kind   string          `json:"kind"`
	Title  string          `json:"title"`
	Text   string          `json:"text,omitempty"`
	Cached bool            `json:"cached"`
	Notice *noticeResponse `json:"notice,omitempty"`
}

// ─────────────────────────────────────────────
// Catalog handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListPersonas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, lo.Map(s.svc.Personas(), func(p domain.Persona, _ int) personaResponse {
		return toPersonaResponse(p)
	}))
}

func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	phase := domain.PhaseInvestigation
	if q := r.URL.Query().Get("phase"); q != "" {
		p, ok := domain.ParsePhase(q)
		if !ok {
			badRequest(w, fmt.Sprintf("unknown phase %q", q))
			return
		}
		phase = p
	}
	writeJSON(w, http.StatusOK, s.svc.Reference(phase))
}

// ─────────────────────────────────────────────
// Session handlers
// ─────────────────────────────────────────────

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.StartSession(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.toSessionResponse(state))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.GetSession(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toSessionResponse(state))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.Reset(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toSessionResponse(state))
}

func (s *Server) handleSetPhase(w http.ResponseWriter, r *http.Request) {
	var req setPhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	phase, ok := domain.ParsePhase(req.Phase)
	if !ok {
		badRequest(w, fmt.Sprintf("unknown phase %q", req.Phase))
		return
	}

	state, err := s.svc.SetPhase(r.Context(), sessionID(r), phase)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toSessionResponse(state))
}

func (s *Server) handleSetView(w http.ResponseWriter, r *http.Request) {
	var req setViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	view, ok := domain.ParseView(req.View)
	if !ok {
		badRequest(w, fmt.Sprintf("unknown view %q", req.View))
		return
	}

	state, err := s.svc.SetView(r.Context(), sessionID(r), view)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toSessionResponse(state))
}

// ─────────────────────────────────────────────
// Conversation handlers
// ─────────────────────────────────────────────

func (s *Server) handleSelectPersona(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.SelectPersona(r.Context(), conversation.SelectPersonaInput{
		SessionID: sessionID(r),
		Persona:   domain.PersonaID(r.PathValue("persona")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := selectPersonaResponse{Session: s.toSessionResponse(out.Session)}
	if out.Greeting != nil {
		resp.Greeting = lo.ToPtr(toMessageResponse(out.Greeting))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSendMessage answers 200 with both messages, or with the failure
// notice and 503 (retryable) / 502 (not retryable).
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.svc.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: sessionID(r),
		Persona:   domain.PersonaID(r.PathValue("persona")),
		Text:      req.Text,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := sendMessageResponse{Attempts: out.Attempts}
	if out.Notice != nil {
		resp.Notice = toNoticeResponse(out.Notice)
		writeJSON(w, noticeStatus(out.Notice), resp)
		return
	}
	resp.UserMessage = lo.ToPtr(toMessageResponse(out.UserMessage))
	resp.AgentMessage = lo.ToPtr(toMessageResponse(out.AgentMessage))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	kind, ok := domain.ParseBriefingKind(r.PathValue("kind"))
	if !ok {
		writeError(w, r, fmt.Errorf("%w: %q", domain.ErrUnknownBriefing, r.PathValue("kind")))
		return
	}

	out, err := s.svc.GenerateBriefing(r.Context(), conversation.GenerateBriefingInput{
		SessionID: sessionID(r),
		Kind:      kind,
		Refresh:   r.URL.Query().Get("refresh") == "true",
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := briefingResponse{
		Kind:   string(out.Kind),
		Title:  out.Title,
		Text:   out.Text,
		Cached: out.Cached,
	}
	if out.Notice != nil {
		resp.Notice = toNoticeResponse(out.Notice)
		writeJSON(w, noticeStatus(out.Notice), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, ok := export.ParseFormat(r.URL.Query().Get("format"))
	if !ok {
		badRequest(w, "format must be txt or pdf")
		return
	}

	out, err := s.svc.Export(r.Context(), sessionID(r), format)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func sessionID(r *http.Request) domain.SessionID {
	return domain.SessionID(r.PathValue("id"))
}

func toPersonaResponse(p domain.Persona) personaResponse {
	return personaResponse{
		ID:      string(p.ID),
		Name:    p.Name,
		Title:   p.Title,
		Emoji:   p.Emoji,
		Advisor: p.Advisor,
	}
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:        string(m.ID),
		Persona:   string(m.Persona),
		Author:    string(m.Author),
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

func toNoticeResponse(n *domain.Notice) *noticeResponse {
	return &noticeResponse{
		Kind:      string(n.Kind),
		Title:     n.Title,
		Detail:    n.Detail,
		Retryable: n.Retryable,
	}
}

func (s *Server) toSessionResponse(state *domain.SessionState) sessionResponse {
	progress := s.svc.ProgressOf(state)
	resp := sessionResponse{
		ID:            string(state.ID),
		ActivePersona: string(state.ActivePersona),
		View:          string(state.View),
		Phase:         string(state.Phase),
		Conversations: make(map[string][]messageResponse, len(state.Conversations)),
		Briefings:     lo.MapKeys(state.Briefings, func(_ string, k domain.BriefingKind) string { return string(k) }),
		Progress:      progressResponse{Interviewed: progress.Interviewed, Total: progress.Total},
		CreatedAt:     state.CreatedAt,
		UpdatedAt:     state.UpdatedAt,
	}
	for id, conv := range state.Conversations {
		resp.Conversations[string(id)] = lo.Map(conv.Messages, func(m *domain.Message, _ int) messageResponse {
			return toMessageResponse(m)
		})
	}
	return resp
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func notFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrUnknownPersona),
		errors.Is(err, domain.ErrUnknownBriefing):
		notFound(w, err.Error())
	case errors.Is(err, domain.ErrEmptyMessage):
		badRequest(w, err.Error())
	case errors.Is(err, domain.ErrNothingToExport):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		internalError(w, r, err)
	}
}

func noticeStatus(n *domain.Notice) int {
	if n.Retryable {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}
