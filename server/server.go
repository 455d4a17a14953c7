// Package server exposes action selection and status queries over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeu5/tablesim-decider/types"
	"go.uber.org/zap"
)

// ActionSelector chooses the next action of an episode
type ActionSelector interface {
	SelectAction(*types.WorldState, []*types.WorldState) (types.Action, error)
}

// StateRequest is the body of both the select action and query status calls
type StateRequest struct {
	State types.WorldState `json:"state"`
}

type ActionResponse struct {
	Action types.Action `json:"action"`
}

type StatusResponse struct {
	Status types.Status `json:"status"`
}

type Server struct {
	engine          ActionSelector
	episodes        *Registry
	logger          *zap.Logger
	router          *gin.Engine
	server          *http.Server
	shutdownTimeout time.Duration
}

func NewServer(addr string, engine ActionSelector, episodes *Registry, logger *zap.Logger) *Server {
	s := &Server{
		engine:          engine,
		episodes:        episodes,
		logger:          logger,
		shutdownTimeout: 2 * time.Second,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", healthHandler)
	r.POST("/select_action", s.handleSelectAction)
	r.POST("/query_status", s.handleQueryStatus)
	r.POST("/episodes", s.handleCreateEpisode)
	r.GET("/episodes/:id", s.handleGetEpisode)
	r.DELETE("/episodes/:id", s.handleDeleteEpisode)
	r.POST("/episodes/:id/select_action", s.handleSelectAction)
	r.POST("/episodes/:id/query_status", s.handleQueryStatus)
	s.router = r
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

func (s *Server) SetShutdownTimeout(d time.Duration) {
	s.shutdownTimeout = d
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *Server) errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrEpisodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidOrientation), errors.Is(err, types.ErrNegativeOpening),
		errors.Is(err, types.ErrOpeningTooLarge):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	code := s.errorStatus(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// episode resolves the episode of the request, routes without an id use
// the default episode
func (s *Server) episode(c *gin.Context) (*Episode, error) {
	id := c.Param("id")
	if id == "" {
		return s.episodes.GetOrCreate(DefaultEpisode), nil
	}
	return s.episodes.Get(id)
}

func (s *Server) handleSelectAction(c *gin.Context) {
	req := StateRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}
	e, err := s.episode(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	action, err := s.engine.SelectAction(&req.State, e.Prior())
	if err != nil {
		s.fail(c, err)
		return
	}
	e.Observe(&req.State)
	e.Report.AddAction(action)
	c.JSON(http.StatusOK, ActionResponse{Action: action})
}

func (s *Server) handleQueryStatus(c *gin.Context) {
	req := StateRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}
	e, err := s.episode(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	code, err := e.Monitor.Evaluate(c.Request.Context(), &req.State)
	if err != nil {
		s.fail(c, err)
		return
	}
	if e.Report.AddStatus(code) {
		s.logger.Info("episode status changed", zap.String("episode", e.ID), zap.String("status", code.String()))
	}
	c.JSON(http.StatusOK, StatusResponse{Status: types.Status{Code: code}})
}

func (s *Server) handleCreateEpisode(c *gin.Context) {
	e := s.episodes.Create()
	c.JSON(http.StatusCreated, gin.H{"id": e.ID})
}

func (s *Server) handleGetEpisode(c *gin.Context) {
	e, err := s.episodes.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	summary := e.Report.Summary(c.Query("timeline") == "true")
	n, err := e.Monitor.HistoryLen(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": summary, "history": n})
}

func (s *Server) handleDeleteEpisode(c *gin.Context) {
	if err := s.episodes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Run serves until the context is cancelled
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	return s.server.Shutdown(shutdownCtx)
}
