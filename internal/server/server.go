// Package server exposes discourse sessions over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crystal/internal/discourse"
	"crystal/internal/session"
	"crystal/internal/store"
)

// TurnRecorder persists processed utterances. *store.Store implements it.
type TurnRecorder interface {
	InsertTurn(ctx context.Context, turn *store.Turn) error
}

// Server routes HTTP requests to sessions sharing one engine.
type Server struct {
	engine   session.Processor
	sessions *session.Manager
	recorder TurnRecorder
	logger   *zap.Logger
}

// New creates a server. recorder and logger may be nil.
func New(engine session.Processor, sessions *session.Manager, recorder TurnRecorder, logger *zap.Logger) *Server {
	if sessions == nil {
		sessions = session.NewManager()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{engine: engine, sessions: sessions, recorder: recorder, logger: logger}
}

// Router builds the gin engine with every route installed.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())
	r.Use(corsMiddleware())

	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	{
		sessions := api.Group("/sessions")
		{
			sessions.POST("", s.handleCreateSession)
			sessions.GET("", s.handleListSessions)
			sessions.POST("/:id/utterances", s.handleUtterance)
			sessions.GET("/:id/context", s.handleContext)
			sessions.GET("/:id/history", s.handleHistory)
			sessions.DELETE("/:id", s.handleDeleteSession)
		}
	}
	return r
}

// ExpireSessions drops sessions idle for longer than ttl, checking every
// interval until ctx is cancelled.
func (s *Server) ExpireSessions(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.CleanupExpired(ttl); n > 0 {
				s.logger.Info("expired sessions", zap.Int("removed", n))
			}
		}
	}
}

// corsMiddleware adds CORS headers for cross-origin requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := s.sessions.GetOrCreate("")
	c.JSON(http.StatusCreated, gin.H{"id": sess.SessionID})
}

func (s *Server) handleListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.sessions.List()})
}

// UtteranceRequest is the body of POST /api/sessions/:id/utterances.
type UtteranceRequest struct {
	Text string `json:"text" binding:"required"`
}

// EventJSON is the wire form of a discourse event.
type EventJSON struct {
	Kind    discourse.EventKind `json:"kind"`
	Text    string              `json:"text,omitempty"`
	Context string              `json:"context,omitempty"`
}

// OutcomeJSON is the wire form of an utterance outcome.
type OutcomeJSON struct {
	Kind            discourse.OutcomeKind `json:"kind"`
	Text            string                `json:"text"`
	Tokens          []string              `json:"tokens,omitempty"`
	Trees           int                   `json:"trees"`
	Interpretations int                   `json:"interpretations"`
	Tree            string                `json:"tree,omitempty"`
	Interpretation  string                `json:"interpretation,omitempty"`
	Answer          string                `json:"answer,omitempty"`
}

// UtteranceResponse is the reply to an utterance.
type UtteranceResponse struct {
	Events  []EventJSON  `json:"events"`
	Outcome *OutcomeJSON `json:"outcome,omitempty"`
	Error   string       `json:"error,omitempty"`
}

func (s *Server) handleUtterance(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var req UtteranceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := UtteranceResponse{Events: []EventJSON{}}
	out, err := sess.Say(c.Request.Context(), s.engine, req.Text, func(ev discourse.Event) {
		resp.Events = append(resp.Events, eventJSON(ev))
	})
	if err != nil {
		resp.Error = err.Error()
		status := http.StatusInternalServerError
		if errors.Is(err, discourse.ErrContradiction) {
			status = http.StatusConflict
		}
		c.JSON(status, resp)
		return
	}

	resp.Outcome = outcomeJSON(out)
	s.record(c.Request.Context(), sess.SessionID, req.Text, out)
	c.JSON(http.StatusOK, resp)
}

// record stores the turn. Failures are logged and do not fail the request.
func (s *Server) record(ctx context.Context, sessionID, utterance string, out *discourse.Outcome) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.InsertTurn(ctx, store.TurnFromOutcome(sessionID, utterance, out)); err != nil {
		s.logger.Warn("failed to record turn", zap.String("session", sessionID), zap.Error(err))
	}
}

func (s *Server) handleContext(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	box := sess.GetContext()
	c.JSON(http.StatusOK, gin.H{
		"id":        sess.SessionID,
		"summary":   box.Summary(),
		"referents": len(box.Referents()),
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	type message struct {
		Role      string                `json:"role"`
		Content   string                `json:"content"`
		Outcome   discourse.OutcomeKind `json:"outcome,omitempty"`
		Timestamp time.Time             `json:"timestamp"`
	}
	history := sess.GetHistory()
	out := make([]message, len(history))
	for i, m := range history {
		out[i] = message{Role: m.Role, Content: m.Content, Outcome: m.Outcome, Timestamp: m.Timestamp}
	}
	c.JSON(http.StatusOK, gin.H{"id": sess.SessionID, "history": out})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.sessions.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func eventJSON(ev discourse.Event) EventJSON {
	out := EventJSON{Kind: ev.Kind, Text: ev.Text}
	if ev.Context != nil {
		out.Context = ev.Context.Summary()
	}
	return out
}

func outcomeJSON(out *discourse.Outcome) *OutcomeJSON {
	o := &OutcomeJSON{
		Kind:            out.Kind,
		Text:            out.Text,
		Tokens:          out.Tokens,
		Trees:           out.Trees,
		Interpretations: out.Interpretations,
	}
	if out.Tree != nil {
		o.Tree = out.Tree.String()
	}
	if out.Box != nil {
		o.Interpretation = out.Box.Summary()
	}
	if out.Kind == discourse.OutcomeQuestion {
		o.Answer = out.Answer.Kind.String()
	}
	return o
}
