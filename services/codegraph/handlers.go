// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package codegraph

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/tscodegraph/services/codegraph/graph"
)

// Handlers contains the HTTP handlers for the call graph API.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// IndexRequest is the body of POST /v1/codegraph/index.
type IndexRequest struct {
	Directory string `json:"directory" binding:"required"`
}

// IndexResponse is the response of POST /v1/codegraph/index.
type IndexResponse struct {
	Success   bool       `json:"success"`
	RunID     string     `json:"runId"`
	Directory string     `json:"directory"`
	Stats     IndexStats `json:"stats"`
}

// QueryResponse is the response of GET /v1/codegraph/query.
type QueryResponse struct {
	Success bool    `json:"success"`
	Matches []Match `json:"matches"`
}

// SearchResponse is the response of GET /v1/codegraph/search.
type SearchResponse struct {
	Success bool         `json:"success"`
	Nodes   []graph.Node `json:"nodes"`
}

// StatsResponse is the response of GET /v1/codegraph/stats.
type StatsResponse struct {
	Success bool `json:"success"`
	*StatsResult
}

// HealthResponse is the response of GET /v1/codegraph/health.
type HealthResponse struct {
	// Status is always "healthy" while the process serves requests.
	Status string `json:"status"`

	Version string `json:"version"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`

	// Code is a stable machine-readable error code.
	Code string `json:"code,omitempty"`
}

// HandleHealth handles GET /v1/codegraph/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleIndex handles POST /v1/codegraph/index.
//
// Description:
//
//	Rebuilds the call graph of the project named in the body. Returns 400
//	for a malformed body or a rejected directory and 500 when parsing or
//	persistence fails.
func (h *Handlers) HandleIndex(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleIndex")

	var req IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Indexing project", "directory", req.Directory)

	result, err := h.svc.Index(c.Request.Context(), req.Directory)
	if err != nil {
		logger.Error("Index failed", "error", err)
		respondError(c, err, "INDEX_FAILED")
		return
	}

	c.JSON(http.StatusOK, IndexResponse{
		Success:   true,
		RunID:     result.RunID,
		Directory: result.Directory,
		Stats:     result.Stats,
	})
}

// HandleQuery handles GET /v1/codegraph/query?name=&directory=.
func (h *Handlers) HandleQuery(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleQuery")

	name, dir, ok := requireNameAndDirectory(c)
	if !ok {
		return
	}

	result, err := h.svc.Query(c.Request.Context(), name, dir)
	if err != nil {
		logger.Error("Query failed", "error", err, "name", name)
		respondError(c, err, "QUERY_FAILED")
		return
	}

	c.JSON(http.StatusOK, QueryResponse{Success: true, Matches: result.Matches})
}

// HandleSearch handles GET /v1/codegraph/search?name=&directory=.
func (h *Handlers) HandleSearch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSearch")

	name, dir, ok := requireNameAndDirectory(c)
	if !ok {
		return
	}

	nodes, err := h.svc.Search(c.Request.Context(), name, dir)
	if err != nil {
		logger.Error("Search failed", "error", err, "name", name)
		respondError(c, err, "SEARCH_FAILED")
		return
	}

	c.JSON(http.StatusOK, SearchResponse{Success: true, Nodes: nodes})
}

// HandleStats handles GET /v1/codegraph/stats?directory=.
func (h *Handlers) HandleStats(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleStats")

	dir := c.Query("directory")
	if dir == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "directory query parameter is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	result, err := h.svc.Stats(c.Request.Context(), dir)
	if err != nil {
		logger.Error("Stats failed", "error", err)
		respondError(c, err, "STATS_FAILED")
		return
	}

	c.JSON(http.StatusOK, StatsResponse{Success: true, StatsResult: result})
}

func requireNameAndDirectory(c *gin.Context) (name, dir string, ok bool) {
	name = c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "name query parameter is required",
			Code:  "MISSING_PARAMETER",
		})
		return "", "", false
	}
	dir = c.Query("directory")
	if dir == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "directory query parameter is required",
			Code:  "MISSING_PARAMETER",
		})
		return "", "", false
	}
	return name, dir, true
}

// respondError writes err as a 400 when caused by the caller and as a 500
// with code otherwise.
func respondError(c *gin.Context, err error, code string) {
	status := http.StatusInternalServerError
	if IsValidationError(err) {
		status = http.StatusBadRequest
		code = "INVALID_DIRECTORY"
	}
	c.JSON(status, ErrorResponse{
		Error: err.Error(),
		Code:  code,
	})
}

// getOrCreateRequestID returns the X-Request-ID header, generating one when
// absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
