package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/foodscan/foodscan-api/internal/apperrors"
	"github.com/foodscan/foodscan-api/internal/config"
	"github.com/foodscan/foodscan-api/internal/domain"
	"github.com/foodscan/foodscan-api/internal/logger"
	"github.com/gin-gonic/gin"
)

// userIDHeader carries the caller-asserted user identity. The API trusts the
// fronting gateway for authentication; this is a pass-through reference, not
// an auth mechanism.
const userIDHeader = "X-User-ID"

type handler struct {
	scans domain.ScanService
	cfg   *config.Config
}

type apiResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Details   string      `json:"details,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type barcodeRequest struct {
	Barcode  string `json:"barcode" binding:"required"`
	Language string `json:"language"`
}

type textRequest struct {
	Query    string `json:"query" binding:"required"`
	Brand    string `json:"brand"`
	Language string `json:"language"`
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"ai":        gin.H{"provider": h.cfg.AIProvider, "status": "ready"},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) scanBarcode(c *gin.Context) {
	var req barcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.NewValidationError("Barcode is required"))
		return
	}

	result, err := h.scans.ScanBarcode(c.Request.Context(), c.GetHeader(userIDHeader), req.Barcode, normalizeLanguage(req.Language))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, result, "Product found by barcode")
}

func (h *handler) scanText(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.NewValidationError("Search query is required"))
		return
	}

	result, err := h.scans.ScanText(c.Request.Context(), c.GetHeader(userIDHeader), req.Query, req.Brand, normalizeLanguage(req.Language))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, result, "Product found by search")
}

func (h *handler) scanImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		h.respondError(c, apperrors.NewValidationError("No image file provided"))
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		h.respondError(c, apperrors.NewValidationError("Only image files are allowed"))
		return
	}

	image, err := io.ReadAll(file)
	if err != nil {
		h.respondError(c, apperrors.NewValidationError("Failed to read image upload"))
		return
	}

	result, err := h.scans.ScanImage(c.Request.Context(), c.GetHeader(userIDHeader), image,
		header.Filename, normalizeLanguage(c.PostForm("language")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, result, "Image scanned successfully")
}

func (h *handler) getScan(c *gin.Context) {
	result, err := h.scans.GetScan(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Owner-only visibility is a caller-side check, deliberately outside the
	// pipeline.
	if caller := c.GetHeader(userIDHeader); result.UserID != "" && caller != result.UserID {
		h.respondError(c, apperrors.New(apperrors.ErrorTypePermission, "FORBIDDEN", "Access denied"))
		return
	}
	h.respondOK(c, result, "Scan result retrieved successfully")
}

func (h *handler) respondOK(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, apiResponse{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// respondError converts the error taxonomy into the response envelope.
// Anything that is not an AppError is an internal failure and stays generic
// outside development mode.
func (h *handler) respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus()
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", appErr.LogFields()...)
		} else {
			logger.Warn("Request rejected", appErr.LogFields()...)
		}

		resp := apiResponse{
			Success:   false,
			Error:     appErr.Message,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if h.cfg.IsDevelopment() && appErr.Internal != nil {
			resp.Details = appErr.Internal.Error()
		}
		c.JSON(status, resp)
		return
	}

	logger.Error("Unhandled error", "error", err.Error(), "path", c.Request.URL.Path)
	resp := apiResponse{
		Success:   false,
		Error:     "Internal server error",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if h.cfg.IsDevelopment() {
		resp.Details = err.Error()
	}
	c.JSON(http.StatusInternalServerError, resp)
}

func normalizeLanguage(lang string) string {
	if lang == "ru" {
		return "ru"
	}
	return "en"
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}
