// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the answer pipeline over HTTP. Clients that send
// an X-Session-ID header get "latest query wins" semantics per session.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pdiddy/civicqa/internal/answer"
	"github.com/pdiddy/civicqa/internal/logging"
	"github.com/pdiddy/civicqa/pkg/types"
)

// SessionHeader carries the caller's session identifier.
const SessionHeader = "X-Session-ID"

const shutdownTimeout = 10 * time.Second

// Server routes HTTP requests to the pipeline.
type Server struct {
	searcher answer.Searcher
	cfg      types.ServerConfig
	logger   *log.Logger

	mu       sync.Mutex
	sessions *lru.Cache[string, *answer.Session]

	router *gin.Engine
}

// New builds a Server. Sessions beyond cfg.MaxSessions are evicted least
// recently used first; an evicted session's in-flight query is superseded.
func New(searcher answer.Searcher, cfg types.ServerConfig, logger *log.Logger) (*Server, error) {
	size := cfg.MaxSessions
	if size <= 0 {
		size = 1024
	}
	sessions, err := lru.NewWithEvict(size, func(_ string, sess *answer.Session) {
		sess.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("creating session cache: %w", err)
	}

	s := &Server{
		searcher: searcher,
		cfg:      cfg,
		logger:   logging.OrDiscard(logger),
		sessions: sessions,
	}
	s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.logRequests())

	router.GET("/healthz", s.health)
	api := router.Group("/api/v1")
	api.POST("/search", s.search)

	s.router = router
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) search(c *gin.Context) {
	var qc types.QueryContext
	if err := c.ShouldBindJSON(&qc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	qc.User.Role = types.ParseRole(string(qc.User.Role))

	ctx := c.Request.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	id := c.GetHeader(SessionHeader)
	if id == "" {
		c.JSON(http.StatusOK, s.searcher.Search(ctx, qc))
		return
	}

	res, ok := s.session(id).Do(ctx, qc)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"superseded": true})
		return
	}
	c.JSON(http.StatusOK, res)
}

// session returns the Session for id, creating it on first use.
func (s *Server) session(id string) *answer.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions.Get(id); ok {
		return sess
	}
	sess := answer.NewSession(s.searcher)
	s.sessions.Add(id, sess)
	return sess
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
	}
}
