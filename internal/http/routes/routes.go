// Package routes wires the HTTP API surface over the coaching core.
package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/conejito/coach/internal/coach"
	"github.com/conejito/coach/internal/config"
	"github.com/conejito/coach/internal/jobs"
	"github.com/conejito/coach/internal/store"
)

// Session keys. The selected model and Gemini credential live in the
// session, not in storage, mirroring per-browser settings.
const (
	sessionModelKey  = "model_name"
	sessionAPIKeyKey = "gemini_api_key"
)

// historyWindow is how many trailing messages are sent as chat context.
const historyWindow = 5

// Responder produces a coaching response for a request. Implemented by
// *coach.Dispatcher; stubbed in tests.
type Responder interface {
	Respond(ctx context.Context, req coach.Request) (string, time.Duration)
}

// Enqueuer submits background tasks. Implemented by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ServerOptions wires the route handlers' collaborators.
type ServerOptions struct {
	Sess       *scs.SessionManager
	Store      store.Store
	Dispatcher Responder
	Queue      Enqueuer
	Cfg        *config.Config
	Logger     zerolog.Logger
}

// Server carries the router and its collaborators.
type Server struct {
	Router *chi.Mux
	opts   ServerOptions
}

// New builds the API router.
func New(opts ServerOptions) *Server {
	s := &Server{Router: chi.NewRouter(), opts: opts}

	r := s.Router
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/athletes", s.listAthletes)
		r.Post("/athletes", s.createAthlete)

		r.Route("/athletes/{athlete}", func(r chi.Router) {
			r.Get("/chat", s.getChat)
			r.Post("/chat", s.postChat)
			r.Delete("/chat", s.clearChat)
			r.Delete("/chat/{index}", s.deleteChatMessage)

			r.Get("/profile", s.getProfile)
			r.Put("/profile", s.putProfile)

			r.Get("/plan", s.getPlan)
			r.Put("/plan", s.putPlan)
			r.Post("/plan/from-last-response", s.planFromLastResponse)

			r.Get("/journal", s.getJournal)
			r.Post("/journal", s.postJournal)

			r.Get("/activities", s.getActivities)
			r.Post("/sync", s.postSync)

			r.Get("/prompt", s.getPrompt)
			r.Put("/prompt", s.putPrompt)
		})

		r.Get("/settings", s.getSettings)
		r.Put("/settings", s.putSettings)
	})

	return s
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.opts.Logger.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func athleteID(r *http.Request) string {
	return chi.URLParam(r, "athlete")
}

// sessionModel returns the session's selected model, falling back to the
// configured default.
func (s *Server) sessionModel(r *http.Request) string {
	if m := s.opts.Sess.GetString(r.Context(), sessionModelKey); m != "" {
		return m
	}
	return s.opts.Cfg.DefaultModel
}

// sessionAPIKey returns the session's Gemini credential, falling back to
// the server-wide one.
func (s *Server) sessionAPIKey(r *http.Request) string {
	if k := s.opts.Sess.GetString(r.Context(), sessionAPIKeyKey); k != "" {
		return k
	}
	return s.opts.Cfg.GeminiAPIKey
}

func (s *Server) listAthletes(w http.ResponseWriter, r *http.Request) {
	ids, err := s.opts.Store.ListAthletes(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

func (s *Server) createAthlete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		s.writeError(w, http.StatusBadRequest, "athlete id required")
		return
	}
	if err := s.opts.Store.CreateAthlete(r.Context(), body.ID); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": body.ID})
}

func (s *Server) getChat(w http.ResponseWriter, r *http.Request) {
	messages, err := s.opts.Store.LoadChatHistory(r.Context(), athleteID(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if messages == nil {
		messages = []store.ChatMessage{}
	}
	s.writeJSON(w, http.StatusOK, messages)
}

// postChat runs one chat turn: append the user message, dispatch with a
// rolling history window, persist both sides, return the reply.
func (s *Server) postChat(w http.ResponseWriter, r *http.Request) {
	athlete := athleteID(r)

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message required")
		return
	}

	messages, err := s.opts.Store.LoadChatHistory(r.Context(), athlete)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	history := messages
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	text, elapsed := s.opts.Dispatcher.Respond(r.Context(), coach.Request{
		APIKey:      s.sessionAPIKey(r),
		AthleteID:   athlete,
		ModelID:     s.sessionModel(r),
		ChatMode:    true,
		UserMessage: body.Message,
		History:     history,
	})

	messages = append(messages,
		store.ChatMessage{Role: store.RoleUser, Content: body.Message},
		store.ChatMessage{Role: store.RoleAssistant, Content: text},
	)
	if err := s.opts.Store.SaveChatHistory(r.Context(), athlete, messages); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"response":         text,
		"duration_seconds": elapsed.Seconds(),
	})
}

func (s *Server) clearChat(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Store.SaveChatHistory(r.Context(), athleteID(r), nil); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteChatMessage(w http.ResponseWriter, r *http.Request) {
	athlete := athleteID(r)
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid index")
		return
	}

	messages, err := s.opts.Store.LoadChatHistory(r.Context(), athlete)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if index < 0 || index >= len(messages) {
		s.writeError(w, http.StatusNotFound, "no such message")
		return
	}

	messages = append(messages[:index], messages[index+1:]...)
	if err := s.opts.Store.SaveChatHistory(r.Context(), athlete, messages); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.opts.Store.LoadProfile(r.Context(), athleteID(r)))
}

func (s *Server) putProfile(w http.ResponseWriter, r *http.Request) {
	var p store.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid profile")
		return
	}
	if err := s.opts.Store.SaveProfile(r.Context(), athleteID(r), p); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"plan": s.opts.Store.LoadPlan(r.Context(), athleteID(r)),
	})
}

func (s *Server) putPlan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Plan string `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid plan")
		return
	}
	if err := s.opts.Store.SavePlan(r.Context(), athleteID(r), body.Plan); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// planFromLastResponse promotes the most recent assistant message to the
// active plan.
func (s *Server) planFromLastResponse(w http.ResponseWriter, r *http.Request) {
	athlete := athleteID(r)
	messages, err := s.opts.Store.LoadChatHistory(r.Context(), athlete)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(messages) == 0 || messages[len(messages)-1].Role != store.RoleAssistant {
		s.writeError(w, http.StatusConflict, "last message is not a coach response")
		return
	}
	if err := s.opts.Store.SavePlan(r.Context(), athlete, messages[len(messages)-1].Content); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getJournal(w http.ResponseWriter, r *http.Request) {
	entries, err := s.opts.Store.LoadJournal(r.Context(), athleteID(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []store.JournalEntry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) postJournal(w http.ResponseWriter, r *http.Request) {
	var entry store.JournalEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil || entry.Date == "" {
		s.writeError(w, http.StatusBadRequest, "journal entry with date required")
		return
	}
	if err := s.opts.Store.SaveJournalEntry(r.Context(), athleteID(r), entry); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) getActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := s.opts.Store.LoadActivities(r.Context(), athleteID(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, activities)
}

// postSync enqueues a background Garmin sync for the athlete.
func (s *Server) postSync(w http.ResponseWriter, r *http.Request) {
	if s.opts.Queue == nil {
		s.writeError(w, http.StatusServiceUnavailable, "sync queue not configured")
		return
	}

	var body struct {
		SinceUnix int64 `json:"since_unix"`
	}
	// body is optional; default window is decided by the worker
	_ = json.NewDecoder(r.Body).Decode(&body)

	payload, err := json.Marshal(jobs.SyncGarminPayload{
		AthleteID: athleteID(r),
		SinceUnix: body.SinceUnix,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	task := asynq.NewTask(jobs.TaskSyncGarmin, payload)
	info, err := s.opts.Queue.EnqueueContext(r.Context(), task,
		asynq.TaskID(uuid.NewString()),
		asynq.Queue("sync"),
	)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"task_id": info.ID})
}

// getPrompt returns the coaching instructions for the session model:
// the stored override if present, else the built-in default.
func (s *Server) getPrompt(w http.ResponseWriter, r *http.Request) {
	model := s.sessionModel(r)
	text, ok, err := s.opts.Store.LoadPromptOverride(r.Context(), athleteID(r), model)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		text = coach.DefaultInstructions
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"model":    model,
		"prompt":   text,
		"override": ok,
	})
}

func (s *Server) putPrompt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid prompt")
		return
	}
	model := s.sessionModel(r)
	if err := s.opts.Store.SavePromptOverride(r.Context(), athleteID(r), model, body.Prompt); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"model":       s.sessionModel(r),
		"has_api_key": s.sessionAPIKey(r) != "",
	})
}

// putSettings stores the selected model and Gemini credential in the
// session.
func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Model  *string `json:"model"`
		APIKey *string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid settings")
		return
	}
	if body.Model != nil {
		s.opts.Sess.Put(r.Context(), sessionModelKey, *body.Model)
	}
	if body.APIKey != nil {
		s.opts.Sess.Put(r.Context(), sessionAPIKeyKey, *body.APIKey)
	}
	w.WriteHeader(http.StatusNoContent)
}
