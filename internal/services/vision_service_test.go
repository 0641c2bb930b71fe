package services

import (
	"context"
	"errors"
	"testing"

	"github.com/foodscan/foodscan-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImageGenerator struct {
	response string
	err      error
	calls    int
	lastMime string
}

func (f *fakeImageGenerator) GenerateFromImage(ctx context.Context, mimeType string, image []byte, prompt string) (string, error) {
	f.calls++
	f.lastMime = mimeType
	return f.response, f.err
}

func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47}, "image/png"},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38}, "image/gif"},
		{"bmp", []byte{0x42, 0x4D, 0x3A, 0x00}, "image/bmp"},
		{"webp", []byte{0x52, 0x49, 0x46, 0x46}, "image/webp"},
		{"unknown defaults to jpeg", []byte{0x00, 0x01, 0x02, 0x03}, "image/jpeg"},
		{"empty defaults to jpeg", nil, "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectMimeType(tt.header))
		})
	}
}

func TestProductFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"salmon-steak-01.jpg", "salmon"},
		{"IMG_banana_2024.png", "banana"},
		{"my_yoghurt.webp", "yogurt"},
		{"Tasty Food 99.jpeg", "food product"},
		{"grilled swordfish.png", "fish"},
		{"12345.jpg", "unknown product"},
		{"", "unknown product"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, productFromFilename(tt.filename))
		})
	}
}

func TestCategorizeProduct(t *testing.T) {
	assert.Equal(t, "Fish and seafood", categorizeProduct("smoked salmon"))
	assert.Equal(t, "Fruits", categorizeProduct("banana"))
	assert.Equal(t, "Dairy", categorizeProduct("greek yogurt"))
	assert.Equal(t, "Food", categorizeProduct("mystery snack"))
}

func TestIdentifyFromImage_Success(t *testing.T) {
	gen := &fakeImageGenerator{
		response: "```json\n{\"product_name\": \"Avocado\", \"category\": \"Fruits\", \"barcode\": \"\", \"confidence\": 0.9, \"description\": \"green oval fruit\"}\n```",
	}
	svc := NewVisionService(gen)

	result := svc.IdentifyFromImage(context.Background(), []byte{0x89, 0x50, 0x01}, "whatever.png")

	require.NotNil(t, result)
	assert.Equal(t, domain.OutcomeOK, result.Outcome)
	assert.Equal(t, "avocado", result.DetectedProduct)
	assert.Equal(t, "Fruits", result.Category)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Equal(t, "Detected: avocado", result.Text)
	assert.Len(t, result.Labels, 3)
	assert.Equal(t, "image/png", gen.lastMime)
}

func TestIdentifyFromImage_ParseFailureFallsBackToFilename(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "I think this is an avocado."},
		{"placeholder name", `{"product_name": "unknown product", "confidence": 0.2}`},
		{"confidence out of range", `{"product_name": "avocado", "confidence": 1.7}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewVisionService(&fakeImageGenerator{response: tt.response})

			result := svc.IdentifyFromImage(context.Background(), []byte{0xFF, 0xD8}, "salmon_dinner.jpg")

			assert.Equal(t, domain.OutcomeDegradedParse, result.Outcome)
			assert.Equal(t, "salmon", result.DetectedProduct)
			assert.Equal(t, visionParseFailureConfidence, result.Confidence)
			assert.Equal(t, "Fish and seafood", result.Category)
		})
	}
}

func TestIdentifyFromImage_CallFailureUsesHigherFallbackTier(t *testing.T) {
	svc := NewVisionService(&fakeImageGenerator{err: errors.New("quota exceeded")})

	result := svc.IdentifyFromImage(context.Background(), []byte{0xFF, 0xD8}, "cheese-plate.jpg")

	assert.Equal(t, domain.OutcomeDegradedCall, result.Outcome)
	assert.Equal(t, "cheese", result.DetectedProduct)
	assert.Equal(t, visionCallFailureConfidence, result.Confidence)
	assert.Greater(t, visionCallFailureConfidence, visionParseFailureConfidence,
		"a failed call retains more signal than an unparseable response")
}

func TestIdentifyFromImage_NeverReturnsNil(t *testing.T) {
	svc := NewVisionService(&fakeImageGenerator{err: errors.New("down")})

	result := svc.IdentifyFromImage(context.Background(), []byte{0x00}, "")

	require.NotNil(t, result)
	assert.Equal(t, unknownProduct, result.DetectedProduct)
	assert.NotEmpty(t, result.Labels)
}
