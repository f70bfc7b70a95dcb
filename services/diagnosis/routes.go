// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diagnosis

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all diagnosis routes with the router.
//
// Description:
//
//	Registers the /v1/diagnosis/* endpoints with the given Gin router
//	group. The group should already have any required middleware applied.
//
// Endpoints:
//
//	POST /v1/diagnosis - Run the diagnosis pipeline on an image and/or text
//	GET  /v1/diagnosis/labels - Current candidate disease labels
//	POST /v1/diagnosis/reload - Reload the knowledge store from disk
//	GET  /v1/diagnosis/health - Health check
//	GET  /v1/diagnosis/ready - Readiness check
//
// Example:
//
//	service := diagnosis.NewService(store, clip, generator, nil)
//	handlers := diagnosis.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	diagnosis.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	diag := rg.Group("/diagnosis")
	{
		diag.POST("", handlers.HandleDiagnose)
		diag.GET("/labels", handlers.HandleLabels)
		diag.POST("/reload", handlers.HandleReload)

		diag.GET("/health", handlers.HandleHealth)
		diag.GET("/ready", handlers.HandleReady)
	}
}
