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
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers the call graph routes with the router.
//
// Description:
//
//	Registers all /v1/codegraph/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	GET  /v1/codegraph/health - Liveness
//	POST /v1/codegraph/index - Rebuild a project's call graph
//	GET  /v1/codegraph/query - Nodes by name with callers and callees
//	GET  /v1/codegraph/search - Nodes by name
//	GET  /v1/codegraph/stats - Persisted counts and last run
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	cg := rg.Group("/codegraph")
	{
		cg.GET("/health", handlers.HandleHealth)
		cg.POST("/index", handlers.HandleIndex)
		cg.GET("/query", handlers.HandleQuery)
		cg.GET("/search", handlers.HandleSearch)
		cg.GET("/stats", handlers.HandleStats)
	}
}

// NewRouter builds the HTTP router of the service.
//
// metrics is mounted at /metrics when non-nil.
func NewRouter(svc *Service, serviceName string, metrics http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := router.Group("/v1")
	RegisterRoutes(v1, NewHandlers(svc))
	return router
}
