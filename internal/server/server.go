// Package server exposes the HTTP surface of the document-QA service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"document-qa/internal/config"
	"document-qa/internal/ingest"
	"document-qa/internal/parser"
	"document-qa/internal/rag"
	"document-qa/internal/session"
)

// Ingestor replaces the active index with one built from an upload.
type Ingestor interface {
	Ingest(ctx context.Context, filename string, data []byte) (*ingest.Result, error)
}

// Answerer streams a retrieval-augmented answer.
type Answerer interface {
	Answer(ctx context.Context, query string) (<-chan rag.Fragment, error)
}

// Generator performs a raw completion without retrieval.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Server struct {
	engine    *gin.Engine
	ingestor  Ingestor
	answerer  Answerer
	generator Generator
	session   *session.Session
}

type queryRequest struct {
	Query string `json:"query"`
}

func New(cfg config.ServerConfig, ingestor Ingestor, answerer Answerer, generator Generator, sess *session.Session) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), CORS(cfg.CORSOrigins))

	s := &Server{
		engine:    engine,
		ingestor:  ingestor,
		answerer:  answerer,
		generator: generator,
		session:   sess,
	}

	engine.POST("/ai", s.handleAI)
	engine.OPTIONS("/ai", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.POST("/pdf", s.handleUpload)
	engine.POST("/ask-pdf", s.handleAsk)
	engine.GET("/healthz", s.handleHealth)

	return s
}

// Handler returns the HTTP handler for mounting in an http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleAI(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	response, err := s.generator.Generate(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": response})
}

func (s *Server) handleUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}

	result, err := s.ingestor.Ingest(c.Request.Context(), header.Filename, data)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, parser.ErrUnsupportedFormat) || errors.Is(err, parser.ErrExtraction) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"filename":  result.Filename,
		"chunk_len": result.ChunkCount,
	})
}

func (s *Server) handleAsk(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	fragments, err := s.answerer.Answer(c.Request.Context(), req.Query)
	if err != nil {
		if errors.Is(err, rag.ErrNoActiveIndex) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no document has been uploaded yet"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Headers are committed once streaming starts; failures from here on
	// are reported in-band as a terminal error fragment.
	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)
	c.Stream(func(w io.Writer) bool {
		fragment, ok := <-fragments
		if !ok {
			return false
		}
		enc := json.NewEncoder(w)
		if fragment.Err != nil {
			enc.Encode(gin.H{"error": fragment.Err.Error()})
			return false
		}
		enc.Encode(gin.H{"answer": fragment.Content})
		return true
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	_, indexed := s.session.Get()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "indexed": indexed})
}
