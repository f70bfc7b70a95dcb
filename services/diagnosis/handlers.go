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
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agrovista/wheatsight/services/classify"
)

// maxUploadBytes caps multipart image uploads. CLIP inputs are small; this
// mostly guards against clients posting raw camera files.
const maxUploadBytes = 16 << 20

// ErrorResponse is the JSON error body for all diagnosis endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`

	// WheatScore is set only on NOT_WHEAT rejections.
	WheatScore *float64 `json:"wheat_score,omitempty"`
}

// DiagnoseRequest is the JSON request body for POST /v1/diagnosis.
// Multipart requests carry the same data as an "image" file part and a
// "symptom_text" form value.
type DiagnoseRequest struct {
	ImageB64    string `json:"image_b64"`
	SymptomText string `json:"symptom_text"`
}

// DiagnoseResponse is the JSON response for POST /v1/diagnosis.
type DiagnoseResponse struct {
	Label             string           `json:"label"`
	Confidence        float64          `json:"confidence"`
	Scores            []classify.Score `json:"scores,omitempty"`
	TextSymptoms      []string         `json:"text_symptoms,omitempty"`
	Reasoning         map[string]any   `json:"reasoning"`
	Explanation       string           `json:"explanation"`
	ExplanationSource string           `json:"explanation_source"`
}

// LabelsResponse is the JSON response for GET /v1/diagnosis/labels.
type LabelsResponse struct {
	Labels []string `json:"labels"`
}

// Handlers holds the HTTP handlers for the diagnosis service.
type Handlers struct {
	service *Service
}

// NewHandlers creates the handler set over a service.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// getOrCreateRequestID returns the X-Request-ID header, minting one when
// the client did not send it, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	id := c.GetHeader("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	c.Header("X-Request-ID", id)
	return id
}

// HandleDiagnose handles POST /v1/diagnosis.
//
// Description:
//
//	Accepts either a JSON body (image_b64, symptom_text) or a multipart
//	form with an "image" file part and a "symptom_text" value, runs the
//	diagnosis pipeline, and returns the full result. An unresolved disease
//	label is not an error; the response simply carries empty facts.
//
// Response:
//
//	200 OK: DiagnoseResponse
//	400 Bad Request: Malformed body or no usable input
//	422 Unprocessable Entity: Image rejected by the wheat gate
//	502 Bad Gateway: Classifier service unreachable
func (h *Handlers) HandleDiagnose(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDiagnose")

	in, ok := h.bindInput(c)
	if !ok {
		return // bindInput already wrote the error response
	}

	d, err := h.service.Diagnose(c.Request.Context(), in)
	if err != nil {
		var notWheat *NotWheatError
		switch {
		case errors.Is(err, ErrNoInput):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "provide image_b64 or symptom_text",
				Code:  "NO_INPUT",
			})
		case errors.As(err, &notWheat):
			score := notWheat.Score
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Error:      "image does not appear to show a wheat plant",
				Code:       "NOT_WHEAT",
				WheatScore: &score,
			})
		default:
			logger.Error("diagnosis pipeline failed", slog.String("error", err.Error()))
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Error: "classifier service unavailable",
				Code:  "CLASSIFIER_UNAVAILABLE",
			})
		}
		return
	}

	logger.Info("diagnosis served",
		slog.String("label", d.Label),
		slog.Float64("confidence", d.Confidence),
		slog.String("risk", string(d.Reasoning.RiskLevel)),
	)

	c.JSON(http.StatusOK, DiagnoseResponse{
		Label:             d.Label,
		Confidence:        d.Confidence,
		Scores:            d.Scores,
		TextSymptoms:      d.TextSymptoms,
		Reasoning:         d.Reasoning.ToMap(),
		Explanation:       d.Explanation,
		ExplanationSource: d.ExplanationSource,
	})
}

// bindInput reads the request body in either supported shape. On failure it
// writes the 400 response itself and returns ok=false.
func (h *Handlers) bindInput(c *gin.Context) (Input, bool) {
	if c.ContentType() == "multipart/form-data" {
		return h.bindMultipart(c)
	}

	var req DiagnoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return Input{}, false
	}
	return Input{ImageB64: req.ImageB64, SymptomText: req.SymptomText}, true
}

func (h *Handlers) bindMultipart(c *gin.Context) (Input, bool) {
	in := Input{SymptomText: c.PostForm("symptom_text")}

	file, err := c.FormFile("image")
	if err != nil {
		// Image part is optional; symptom text alone is a valid request.
		return in, true
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "image too large",
			Code:  "IMAGE_TOO_LARGE",
		})
		return Input{}, false
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "unreadable image part: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return Input{}, false
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "unreadable image part: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return Input{}, false
	}
	in.ImageB64 = base64.StdEncoding.EncodeToString(raw)
	return in, true
}

// HandleLabels handles GET /v1/diagnosis/labels.
//
// Response:
//
//	200 OK: LabelsResponse with the current candidate labels
func (h *Handlers) HandleLabels(c *gin.Context) {
	getOrCreateRequestID(c)
	c.JSON(http.StatusOK, LabelsResponse{Labels: h.service.Labels()})
}

// HandleReload handles POST /v1/diagnosis/reload.
//
// Response:
//
//	200 OK: {"status": "reloaded", "triples": n}
//	500 Internal Server Error: Backing file missing or unparseable
func (h *Handlers) HandleReload(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleReload")

	if err := h.service.Reload(); err != nil {
		logger.Error("knowledge reload failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "RELOAD_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "reloaded",
		"triples": h.service.Store().TripleCount(),
	})
}

// HandleHealth handles GET /v1/diagnosis/health. Liveness only.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady handles GET /v1/diagnosis/ready.
//
// Description:
//
//	Ready means the knowledge store is loaded. The classifier and LLM
//	providers are deliberately excluded: the pipeline degrades through
//	them, so their outage is not a reason to stop routing traffic here.
func (h *Handlers) HandleReady(c *gin.Context) {
	store := h.service.Store()
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"reason": "knowledge store not loaded",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"triples": store.TripleCount(),
	})
}
