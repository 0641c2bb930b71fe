package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/foodscan/foodscan-api/internal/apperrors"
	"github.com/foodscan/foodscan-api/internal/config"
	"github.com/foodscan/foodscan-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScanService struct {
	result *domain.ScanResult
	err    error
}

func (s *stubScanService) ScanBarcode(_ context.Context, userID, _, _ string) (*domain.ScanResult, error) {
	return s.answer(userID)
}

func (s *stubScanService) ScanText(_ context.Context, userID, _, _, _ string) (*domain.ScanResult, error) {
	return s.answer(userID)
}

func (s *stubScanService) ScanImage(_ context.Context, userID string, _ []byte, _, _ string) (*domain.ScanResult, error) {
	return s.answer(userID)
}

func (s *stubScanService) GetScan(_ context.Context, _ string) (*domain.ScanResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubScanService) answer(userID string) (*domain.ScanResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := *s.result
	result.UserID = userID
	return &result, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{Env: "test", AIProvider: "gemini"}
	cfg.Server.RequestTimeout = 5 * time.Second
	cfg.Server.MaxImageBytes = 1 << 20
	return cfg
}

func storedResult() *domain.ScanResult {
	return &domain.ScanResult{
		ID:     "scan-1",
		UserID: "user-1",
		Product: domain.Product{
			ID:       "p-1",
			Name:     "Greek Yogurt",
			Category: "Dairy",
		},
		Metadata: domain.ScanMetadata{ScanType: domain.ScanTypeBarcode, Confidence: 1.0},
	}
}

func doRequest(t *testing.T, svc domain.ScanService, req *http.Request) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	router := NewRouter(testConfig(), svc)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

func TestHealth(t *testing.T) {
	router := NewRouter(testConfig(), &stubScanService{result: storedResult()})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"provider":"gemini"`)
}

func TestScanBarcodeEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/barcode",
		strings.NewReader(`{"barcode": "4006381333931"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(userIDHeader, "user-1")

	rec, envelope := doRequest(t, &stubScanService{result: storedResult()}, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)
	assert.Equal(t, "Product found by barcode", envelope.Message)
	assert.NotEmpty(t, envelope.Timestamp)
}

func TestScanBarcodeEndpoint_MissingBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/barcode", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	rec, envelope := doRequest(t, &stubScanService{result: storedResult()}, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, envelope.Success)
	assert.Equal(t, "Barcode is required", envelope.Error)
}

func TestScanTextEndpoint_NotFound(t *testing.T) {
	svc := &stubScanService{err: apperrors.NewNotFoundError(`Product "noexistium" not found`)}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/text",
		strings.NewReader(`{"query": "noexistium"}`))
	req.Header.Set("Content-Type", "application/json")

	rec, envelope := doRequest(t, svc, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, envelope.Success)
	assert.Equal(t, `Product "noexistium" not found`, envelope.Error)
	assert.Empty(t, envelope.Details, "internal details stay hidden outside development")
}

func TestScanImageEndpoint(t *testing.T) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "yogurt.jpg")
	require.NoError(t, err)
	part.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	writer.WriteField("language", "ru")
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/image", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(userIDHeader, "user-1")

	rec, envelope := doRequest(t, &stubScanService{result: storedResult()}, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)
	assert.Equal(t, "Image scanned successfully", envelope.Message)
}

func TestScanImageEndpoint_MissingFile(t *testing.T) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("language", "en")
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/image", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec, envelope := doRequest(t, &stubScanService{result: storedResult()}, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No image file provided", envelope.Error)
}

func TestGetScanEndpoint_OwnerOnly(t *testing.T) {
	svc := &stubScanService{result: storedResult()}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scan/scan-1", nil)
	req.Header.Set(userIDHeader, "user-1")
	rec, envelope := doRequest(t, svc, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/scan/scan-1", nil)
	req.Header.Set(userIDHeader, "someone-else")
	rec, envelope = doRequest(t, svc, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", envelope.Error)
}

func TestGetScanEndpoint_NotFound(t *testing.T) {
	svc := &stubScanService{err: apperrors.NewNotFoundError("Scan result not found")}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/scan/missing", nil)

	rec, envelope := doRequest(t, svc, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Scan result not found", envelope.Error)
}
