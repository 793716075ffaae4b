// Package server exposes the ingestion and query pipelines over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"document-qa/internal/config"
	"document-qa/internal/models"
	"document-qa/internal/vectorstore"
)

// Ingestor is the write-path dependency of the HTTP layer.
type Ingestor interface {
	Ingest(ctx context.Context, doc models.Document) (models.Document, error)
	Delete(ctx context.Context, documentID string) error
}

// Querier is the read-path dependency of the HTTP layer.
type Querier interface {
	Query(ctx context.Context, query string, topK int) (*models.QueryResult, error)
}

// Parser extracts text from a saved upload.
type Parser func(path string) (text string, fileType string, err error)

type Server struct {
	cfg      *config.Config
	ingestor Ingestor
	querier  Querier
	store    vectorstore.Store
	parse    Parser
	engine   *gin.Engine
}

func New(cfg *config.Config, ingestor Ingestor, querier Querier, store vectorstore.Store, parse Parser) *Server {
	s := &Server{
		cfg:      cfg,
		ingestor: ingestor,
		querier:  querier,
		store:    store,
		parse:    parse,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	engine.MaxMultipartMemory = cfg.MaxUploadBytes()

	engine.GET("/", s.root)
	engine.GET("/health", s.health)

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/document", s.uploadDocument)
		v1.GET("/document/info", s.documentInfo)
		v1.DELETE("/document/:id", s.deleteDocument)
		v1.POST("/chat", s.chat)
	}

	s.engine = engine
	return s
}

// Handler returns the router for http.Server or test harnesses.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

// statusForError maps the error taxonomy onto an HTTP status code and
// a generic client message. The wrapped detail stays in the log only.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidConfiguration):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, models.ErrEmptyDocument):
		return http.StatusBadRequest, "document has no extractable content"
	case errors.Is(err, models.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "model backend unavailable"
	case errors.Is(err, models.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage backend unavailable"
	case errors.Is(err, models.ErrTimeout):
		return http.StatusGatewayTimeout, "operation timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func abortWithError(c *gin.Context, err error) {
	status, message := statusForError(err)
	log.Error().Err(err).Str("path", c.Request.URL.Path).
		Int("status", status).Msg("request failed")
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
