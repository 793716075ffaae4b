package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"document-qa/internal/helper"
	"document-qa/internal/models"
	"document-qa/internal/parser"
)

type chatRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "document-qa",
		"message": "upload documents, then ask questions about them",
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// uploadDocument accepts one multipart file, extracts its text and
// runs the ingestion pipeline under the ingest timeout.
func (s *Server) uploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing multipart field \"file\""})
		return
	}

	if !helper.ValidateExtension(fileHeader.Filename, parser.Extensions) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("unsupported file type, allowed: %s",
				strings.Join(parser.Extensions, ", ")),
		})
		return
	}
	if fileHeader.Size > s.cfg.MaxUploadBytes() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("file exceeds the %d MB limit", s.cfg.Upload.MaxFileSizeMB),
		})
		return
	}

	id, err := helper.NewDocumentID()
	if err != nil {
		abortWithError(c, err)
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer src.Close()

	filename := helper.SanitizeFilename(fileHeader.Filename)
	path, err := helper.SaveUpload(s.cfg.Upload.Dir, id+"_"+filename, src, s.cfg.MaxUploadBytes())
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer helper.CleanupTemp(path)

	text, fileType, err := s.parse(path)
	if err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("text extraction failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not extract text from the file"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.IngestTimeout())
	defer cancel()

	doc, err := s.ingestor.Ingest(ctx, models.Document{
		ID:       id,
		Filename: filename,
		FileType: fileType,
		Text:     text,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// documentInfo lists the ingested documents with the total chunk count.
func (s *Server) documentInfo(c *gin.Context) {
	docs, err := s.store.ListDocuments(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	total, err := s.store.Count(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	c.JSON(http.StatusOK, gin.H{
		"documents":    docs,
		"total_chunks": total,
	})
}

func (s *Server) deleteDocument(c *gin.Context) {
	if err := s.ingestor.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// chat answers a question over the ingested corpus under the query
// timeout.
func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be JSON with a \"query\" field"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.QueryTimeout())
	defer cancel()

	result, err := s.querier.Query(ctx, req.Query, req.TopK)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
