package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/deploymenttheory/go-apk-analyzer/internal/inspector"
	"github.com/deploymenttheory/go-apk-analyzer/internal/logger"
	"github.com/deploymenttheory/go-apk-analyzer/internal/pipeline"
)

// Server is the thin HTTP adapter over the scan pipeline. It owns no scan
// logic: uploads are read into memory, handed to the pipeline and
// discarded; no file retention.
type Server struct {
	pipeline       *pipeline.Pipeline
	maxUploadBytes int64
}

func New(p *pipeline.Pipeline, maxUploadBytes int64) *Server {
	return &Server{pipeline: p, maxUploadBytes: maxUploadBytes}
}

// Router builds the gin engine with all API routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = s.maxUploadBytes

	api := r.Group("/api")
	api.POST("/scan", s.handleScan)
	api.GET("/scans", s.handleListScans)
	api.GET("/scans/:hash", s.handleGetScan)
	api.GET("/stats", s.handleStats)

	return r
}

// Run serves the API on addr until the listener fails.
func (s *Server) Run(addr string) error {
	logger.Infof("Serving scan API on %s", addr)
	return s.Router().Run(addr)
}

func (s *Server) handleScan(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}
	if fileHeader.Size > s.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".apk") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .apk files are accepted"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}

	report, cached, err := s.pipeline.Scan(c.Request.Context(), data, fileHeader.Filename)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, inspector.ErrUnsupportedFormat),
			errors.Is(err, inspector.ErrMissingManifest):
			status = http.StatusBadRequest
		case errors.Is(err, inspector.ErrMalformedPackage):
			status = http.StatusUnprocessableEntity
		}
		logger.Errorf("Scan failed for %s: %v", fileHeader.Filename, err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"cached": cached,
		"result": report,
	})
}

func (s *Server) handleGetScan(c *gin.Context) {
	hash := c.Param("hash")
	report, ok, err := s.pipeline.Cache().Get(c.Request.Context(), hash)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache lookup failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scan found for hash"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "cached": true, "result": report})
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

func (s *Server) handleListScans(c *gin.Context) {
	limit := defaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	reports, err := s.pipeline.Cache().Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "count": len(reports), "scans": reports})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.pipeline.Cache().Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
