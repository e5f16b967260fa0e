// Package server exposes the dispatcher over HTTP: a structured /dispatch
// endpoint plus convenience routes for each operation. Authentication is a
// single X-API-Key header check; everything past the router is a plain
// in-process call into the dispatcher.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jenkins-mcp-integ/internal/config"
	"github.com/jenkins-mcp-integ/internal/namespace"
	"github.com/jenkins-mcp-integ/pkg/api"
)

const headerAPIKey = "X-API-Key"

// Dispatcher is the core entry point the HTTP layer forwards into.
type Dispatcher interface {
	Dispatch(ctx context.Context, req api.ActionRequest) (*api.Result, error)
}

// HealthChecker reports whether the upstream CI server is reachable.
type HealthChecker interface {
	CheckAccessibility(ctx context.Context) error
}

// FolderCreator creates folders; kept off the dispatcher because folder
// creation is not part of its closed action set.
type FolderCreator interface {
	CreateFolder(ctx context.Context, parent []string, name string) error
}

type Server struct {
	dispatcher Dispatcher
	health     HealthChecker
	folders    FolderCreator
	apiKey     string
	log        *slog.Logger
	server     *http.Server
}

// New builds the HTTP server. An empty apiKey disables authentication,
// which is logged as a warning.
func New(cfg *config.Config, apiKey string, d Dispatcher, h HealthChecker, f FolderCreator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		dispatcher: d,
		health:     h,
		folders:    f,
		apiKey:     apiKey,
		log:        logger,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLog())

	router.GET("/health", s.handleHealth)

	authed := router.Group("/", s.requireAPIKey())
	authed.POST("/dispatch", s.handleDispatch)
	authed.GET("/jobs", s.handleListJobs)
	authed.GET("/build_status", s.handleBuildStatus)
	authed.GET("/builds", s.handleListBuilds)
	authed.GET("/build_log", s.handleBuildLog)
	authed.POST("/build", s.handleTriggerBuild)
	authed.POST("/job/create", s.handleCreateJob)
	authed.POST("/folder/create", s.handleCreateFolder)

	s.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout.Duration,
		ReadHeaderTimeout: cfg.Server.ReadTimeout.Duration,
		WriteTimeout:      cfg.Server.WriteTimeout.Duration,
		IdleTimeout:       cfg.Server.IdleTimeout.Duration,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.apiKey == "" {
		s.log.Warn("api key is not set, the server is unauthenticated")
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting http server", slog.String("address", s.server.Addr))
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.apiKey == "" {
			c.Next()
			return
		}
		if c.GetHeader(headerAPIKey) != s.apiKey {
			s.log.Warn("unauthorized request", slog.String("remote", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	jenkinsStatus := "connected"
	status := http.StatusOK
	if err := s.health.CheckAccessibility(c.Request.Context()); err != nil {
		jenkinsStatus = fmt.Sprintf("disconnected - %v", err)
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"server_status":      "ok",
		"jenkins_connection": jenkinsStatus,
	})
}

func (s *Server) handleDispatch(c *gin.Context) {
	var req api.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}
	s.dispatch(c, req)
}

func (s *Server) handleListJobs(c *gin.Context) {
	s.dispatch(c, api.ActionRequest{
		Action: api.ActionListJobs,
		Parameters: map[string]any{
			"folder_name": c.Query("folder_name"),
			"recursive":   c.DefaultQuery("recursive", "true"),
		},
	})
}

func (s *Server) handleBuildStatus(c *gin.Context) {
	s.dispatch(c, api.ActionRequest{
		Action: api.ActionGetBuildStatus,
		Parameters: map[string]any{
			"job_name":     c.Query("job_name"),
			"build_number": c.Query("build_number"),
		},
	})
}

func (s *Server) handleListBuilds(c *gin.Context) {
	s.dispatch(c, api.ActionRequest{
		Action: api.ActionListJobBuilds,
		Parameters: map[string]any{
			"job_name": c.Query("job_name"),
			"limit":    c.Query("limit"),
		},
	})
}

func (s *Server) handleBuildLog(c *gin.Context) {
	s.dispatch(c, api.ActionRequest{
		Action: api.ActionGetBuildLog,
		Parameters: map[string]any{
			"job_name":     c.Query("job_name"),
			"build_number": c.Query("build_number"),
			"cursor":       c.Query("cursor"),
		},
	})
}

type triggerPayload struct {
	JobName    string            `json:"job_name"`
	Parameters map[string]string `json:"parameters"`
}

func (s *Server) handleTriggerBuild(c *gin.Context) {
	var payload triggerPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}
	params := make(map[string]any, len(payload.Parameters))
	for k, v := range payload.Parameters {
		params[k] = v
	}
	s.dispatch(c, api.ActionRequest{
		Action: api.ActionTriggerBuild,
		Parameters: map[string]any{
			"job_name":         payload.JobName,
			"build_parameters": params,
		},
	})
}

type createJobPayload struct {
	JobName        string `json:"job_name"`
	Command        string `json:"command"`
	JobDescription string `json:"job_description"`
	FolderName     string `json:"folder_name"`
}

func (s *Server) handleCreateJob(c *gin.Context) {
	var payload createJobPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}
	s.dispatch(c, api.ActionRequest{
		Action: api.ActionCreateJob,
		Parameters: map[string]any{
			"job_name":        payload.JobName,
			"command":         payload.Command,
			"job_description": payload.JobDescription,
			"folder_name":     payload.FolderName,
		},
	})
}

type createFolderPayload struct {
	FolderName string `json:"folder_name"`
}

func (s *Server) handleCreateFolder(c *gin.Context) {
	var payload createFolderPayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.FolderName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "folder_name is required"})
		return
	}
	path := namespace.Split(payload.FolderName)
	if len(path) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "folder_name is required"})
		return
	}
	parent, name := path[:len(path)-1], path[len(path)-1]
	if err := s.folders.CreateFolder(c.Request.Context(), parent, name); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":     "Folder created successfully",
		"folder_name": payload.FolderName,
	})
}

func (s *Server) dispatch(c *gin.Context, req api.ActionRequest) {
	result, err := s.dispatcher.Dispatch(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	status := http.StatusOK
	if req.Action == api.ActionCreateJob {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// writeError maps the taxonomy onto HTTP statuses. Every error leaves the
// server as a named kind plus detail text, never a bare stack trace.
func (s *Server) writeError(c *gin.Context, err error) {
	kind := api.ClassifyError(err)
	status := http.StatusInternalServerError
	switch kind {
	case api.KindUnknownAction, api.KindMissingParameter:
		status = http.StatusBadRequest
	case api.KindNotFound, api.KindJobNotFound, api.KindBuildNotFound:
		status = http.StatusNotFound
	case api.KindUpstreamUnavailable:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"kind": kind, "error": err.Error()})
}
