// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/agrovista/wheatsight/services/diagnosis"
)

const (
	serverReadTimeout     = 30 * time.Second
	serverWriteTimeout    = 120 * time.Second
	gracefulDrainTimeout  = 15 * time.Second
	classifierWarmTimeout = 60 * time.Second
)

// servePort holds the --port flag value.
var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WheatSight API server",
	Run:   runServeCommand,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP listen port")
}

func runServeCommand(_ *cobra.Command, _ []string) {
	service := buildService(false)
	handlers := diagnosis.NewHandlers(service)

	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/v1")
	diagnosis.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Pre-compute classifier embeddings off the request path. Failure here
	// just means the first few requests pay the cold-start cost.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), classifierWarmTimeout)
		defer cancel()
		if err := service.Warm(ctx); err != nil {
			slog.Warn("Classifier warm-up failed", slog.String("error", err.Error()))
		} else {
			slog.Info("Classifier warm-up complete")
		}
	}()

	addr := fmt.Sprintf(":%d", servePort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
	}

	go func() {
		slog.Info("WheatSight API server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error: server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down, draining in-flight requests")
	ctx, cancel := context.WithTimeout(context.Background(), gracefulDrainTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Forced shutdown", slog.String("error", err.Error()))
	}
	slog.Info("Server stopped")
}
