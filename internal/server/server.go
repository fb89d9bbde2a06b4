// Package server exposes the filling core over HTTP: document fill and
// report downloads for staff, signature-position configuration for admins.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldserve/certfill/internal/compiler"
	"github.com/fieldserve/certfill/internal/config"
	"github.com/fieldserve/certfill/internal/filler"
	"github.com/fieldserve/certfill/internal/registry"
	"github.com/fieldserve/certfill/internal/signature"
	"github.com/fieldserve/certfill/internal/sigstore"
	"github.com/fieldserve/certfill/internal/submission"
	"github.com/fieldserve/certfill/internal/templates"
)

// Server wires the HTTP API.
type Server struct {
	cfg         *config.Config
	filler      *filler.Filler
	compiler    *compiler.Compiler
	positions   *sigstore.Store
	submissions submission.Store
	logger      *zap.Logger
	engine      *gin.Engine
}

// New builds the router and handlers.
func New(
	cfg *config.Config,
	f *filler.Filler,
	c *compiler.Compiler,
	positions *sigstore.Store,
	submissions submission.Store,
	logger *zap.Logger,
) *Server {
	if !cfg.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:         cfg,
		filler:      f,
		compiler:    c,
		positions:   positions,
		submissions: submissions,
		logger:      logger,
		engine:      gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)

	v1 := s.engine.Group("/api/v1")
	v1.GET("/form-types", s.handleFormTypes)
	v1.POST("/documents/fill", s.handleFillDocument)
	v1.POST("/jobs/:jobID/report", s.handleCompileReport)

	positions := v1.Group("/signature-positions")
	positions.GET("/:formType", s.handleGetPosition)
	positions.GET("/:formType/dual", s.handleGetDualPosition)
	positions.PUT("/:formType", s.handleSetPosition)
	positions.DELETE("/:formType", s.handleResetPosition)
}

// Handler exposes the router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Address()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": s.cfg.ServerName,
		"version": s.cfg.Version,
	})
}

func (s *Server) handleFormTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"form_types": s.filler.Registry().FormTypes()})
}

// fillRequest carries either an inline submission or a stored submission id.
type fillRequest struct {
	SubmissionID string                 `json:"submission_id"`
	Submission   *submission.Submission `json:"submission"`
}

func (s *Server) handleFillDocument(c *gin.Context) {
	var req fillRequest
	if qid := c.Query("submission_id"); qid != "" {
		req.SubmissionID = qid
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sub := req.Submission
	if sub == nil {
		if req.SubmissionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "submission or submission_id required"})
			return
		}
		id, err := uuid.Parse(req.SubmissionID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission_id"})
			return
		}
		stored, err := s.submissions.Get(id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
			return
		}
		sub = stored
	}

	out, err := s.filler.Fill(c.Request.Context(), sub)
	if err != nil {
		s.respondFillError(c, sub.FormType, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filler.Filename(sub)))
	c.Data(http.StatusOK, "application/pdf", out)
}

func (s *Server) respondFillError(c *gin.Context, formType string, err error) {
	var unsupported *registry.UnsupportedFormTypeError
	if errors.As(err, &unsupported) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unsupported form type", "form_type": formType})
		return
	}
	var unavailable *templates.UnavailableError
	if errors.As(err, &unavailable) {
		c.JSON(http.StatusNotFound, gin.H{"error": "template unavailable", "form_type": formType})
		return
	}
	s.logger.Error("document fill failed", zap.String("form_type", formType), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "document generation failed"})
}

// compileRequest selects the submissions and cover metadata of one report.
// An empty id list compiles every submission of the job.
type compileRequest struct {
	SubmissionIDs []string             `json:"submission_ids"`
	Metadata      compiler.JobMetadata `json:"metadata"`
}

func (s *Server) handleCompileReport(c *gin.Context) {
	jobID := c.Param("jobID")

	var req compileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var subs []*submission.Submission
	if len(req.SubmissionIDs) == 0 {
		listed, err := s.submissions.ListByJob(jobID)
		if err != nil {
			s.logger.Error("failed to list job submissions", zap.String("job_id", jobID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load submissions"})
			return
		}
		subs = listed
	} else {
		for _, rawID := range req.SubmissionIDs {
			id, err := uuid.Parse(rawID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid submission id %q", rawID)})
				return
			}
			sub, err := s.submissions.Get(id)
			if err != nil {
				// Unknown ids degrade to a skipped entry, consistent with
				// the compiler's partial-failure policy.
				s.logger.Warn("submission missing from report", zap.String("submission_id", rawID))
				continue
			}
			subs = append(subs, sub)
		}
	}

	out, err := s.compiler.Compile(c.Request.Context(), req.Metadata, subs)
	if err != nil {
		s.logger.Error("report compilation failed", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report generation failed"})
		return
	}

	filename := fmt.Sprintf("job-report-%s-%s.pdf", jobID, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", out)
}

func (s *Server) handleGetPosition(c *gin.Context) {
	c.JSON(http.StatusOK, s.positions.Get(c.Param("formType")))
}

func (s *Server) handleGetDualPosition(c *gin.Context) {
	dual, ok := s.positions.GetDual(c.Param("formType"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no dual signature geometry for form type"})
		return
	}
	c.JSON(http.StatusOK, dual)
}

// setPositionRequest accepts either a flat rectangle or a client/staff pair.
type setPositionRequest struct {
	signature.Geometry
	Client *signature.Geometry `json:"client"`
	Staff  *signature.Geometry `json:"staff"`
}

func (s *Server) handleSetPosition(c *gin.Context) {
	formType := c.Param("formType")

	var req setPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var err error
	switch {
	case req.Client != nil && req.Staff != nil:
		err = s.positions.SetDual(formType, signature.DualGeometry{Client: *req.Client, Staff: *req.Staff})
	case req.Client != nil || req.Staff != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "dual geometry requires both client and staff"})
		return
	default:
		err = s.positions.SetSingle(formType, req.Geometry)
	}

	if err != nil {
		var verr *signature.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		s.logger.Error("failed to store signature position", zap.String("form_type", formType), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store signature position"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"form_type": formType, "status": "updated"})
}

func (s *Server) handleResetPosition(c *gin.Context) {
	formType := c.Param("formType")
	if err := s.positions.Reset(formType); err != nil {
		s.logger.Error("failed to reset signature position", zap.String("form_type", formType), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset signature position"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"form_type": formType, "status": "reset"})
}
