package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"collab_story_weaver/llm"
	"collab_story_weaver/story"
)

// Options configures the HTTP adapter.
type Options struct {
	// OpTimeout bounds one story operation (all role calls it makes).
	OpTimeout    time.Duration
	FeedBuffer   int
	DefaultStyle string
	Story        []story.Option
	Logger       *slog.Logger
}

type Server struct {
	client   llm.Client
	opts     Options
	store    *sessionStore
	validate *validator.Validate
	logger   *slog.Logger
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*story.Session
}

func newStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*story.Session)}
}

func (s *sessionStore) set(sess *story.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *sessionStore) get(id string) (*story.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *sessionStore) remove(id string) (*story.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	return sess, ok
}

func New(client llm.Client, opts Options) (*Server, error) {
	if client == nil {
		return nil, errors.New("llm client required")
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 10 * time.Minute
	}
	if opts.DefaultStyle == "" {
		opts.DefaultStyle = "descriptive"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		client:   client,
		opts:     opts,
		store:    newStore(),
		validate: validator.New(),
		logger:   opts.Logger.With("component", "server"),
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", s.handleSessionCreate)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSessionGet)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleSessionDelete)
	mux.HandleFunc("POST /api/sessions/{id}/story", s.handleGenerateStory)
	mux.HandleFunc("POST /api/sessions/{id}/next", s.handleNextChapter)
	mux.HandleFunc("POST /api/sessions/{id}/feedback", s.handleFeedback)
	mux.HandleFunc("POST /api/sessions/{id}/characters", s.handleAddCharacter)
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.handleReset)
	mux.HandleFunc("GET /api/sessions/{id}/stream", s.handleStream)
	return s.logMiddleware(mux)
}

// --- Handlers ---

type storyReq struct {
	Idea           string   `json:"idea" validate:"required"`
	TargetLength   int      `json:"target_length" validate:"min=0"`
	Style          string   `json:"style"`
	CharacterNames []string `json:"character_names" validate:"dive,required"`
}

type feedbackReq struct {
	Feedback string `json:"feedback"`
}

type characterReq struct {
	Name string `json:"name" validate:"required"`
}

type sessionResp struct {
	SessionID string          `json:"session_id"`
	CreatedAt time.Time       `json:"created_at"`
	Story     story.StoryView `json:"story"`
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	sess, err := story.NewSession(s.client, s.opts.FeedBuffer, s.opts.Story...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.store.set(sess)
	s.logger.Info("session created", "session_id", sess.ID)
	writeJSONStatus(w, http.StatusCreated, sessionResp{SessionID: sess.ID, CreatedAt: sess.CreatedAt, Story: sess.Snapshot()})
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, sessionResp{SessionID: sess.ID, CreatedAt: sess.CreatedAt, Story: sess.Snapshot()})
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.store.remove(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errSessionNotFound)
		return
	}
	sess.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGenerateStory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req storyReq
	if !s.decode(w, r, &req) {
		return
	}
	if req.Style == "" {
		req.Style = s.opts.DefaultStyle
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.OpTimeout)
	defer cancel()
	res, err := sess.GenerateStory(ctx, story.StoryRequest{
		Idea:           req.Idea,
		TargetLength:   req.TargetLength,
		Style:          req.Style,
		CharacterNames: req.CharacterNames,
	})
	if err != nil {
		s.fail(w, sess.ID, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleNextChapter(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req feedbackReq
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.OpTimeout)
	defer cancel()
	adv, err := sess.NextChapter(ctx, req.Feedback)
	if err != nil {
		s.fail(w, sess.ID, err)
		return
	}
	writeJSON(w, adv)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req feedbackReq
	if !s.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.OpTimeout)
	defer cancel()
	delta, err := sess.ProcessFeedback(ctx, req.Feedback)
	if err != nil {
		s.fail(w, sess.ID, err)
		return
	}
	writeJSON(w, map[string]any{"conversation_delta": delta})
}

func (s *Server) handleAddCharacter(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req characterReq
	if !s.decode(w, r, &req) {
		return
	}
	id, err := sess.AddCharacter(req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, map[string]any{"role": id})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Reset()
	writeJSON(w, sessionResp{SessionID: sess.ID, CreatedAt: sess.CreatedAt, Story: sess.Snapshot()})
}

// --- Helpers ---

var errSessionNotFound = errors.New("session not found")

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*story.Session, bool) {
	sess, ok := s.store.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errSessionNotFound)
		return nil, false
	}
	return sess, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, sessionID string, err error) {
	status := statusFor(err)
	s.logger.Warn("story operation failed",
		"session_id", sessionID,
		"status", status,
		"error", err)
	writeError(w, status, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, story.ErrEmptyOutline):
		return http.StatusUnprocessableEntity
	case errors.Is(err, story.ErrStoryNotStarted):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case story.IsGenerationFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSONStatus(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	})
}
