package repository

import (
	"context"
	"testing"
	"time"

	"github.com/foodscan/foodscan-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(id string) *domain.ScanResult {
	return &domain.ScanResult{
		ID:     id,
		UserID: "user-1",
		Product: domain.Product{
			ID:          "p-1",
			Name:        "Almond Butter",
			Brand:       "NutWorks",
			Barcode:     "4006381333931",
			Category:    "Spreads",
			Description: "Almond Butter from NutWorks",
			Tags:        []string{"spreads", "nuts"},
		},
		Nutrition: domain.NutritionFacts{
			Calories:    614,
			Protein:     21,
			Carbs:       19,
			Fat:         55,
			Fiber:       10,
			Sugar:       4.4,
			Sodium:      2,
			ServingSize: "100g",
			Source:      domain.SourceCatalog,
			Confidence:  0.9,
		},
		Analysis: domain.Analysis{
			HealthScore: 7,
			Insights:    "High in healthy fats.",
			Warnings: []domain.Warning{
				{Type: "allergen", Severity: domain.SeverityHigh, Message: "Contains tree nuts"},
			},
			Confidence:   0.9,
			Language:     "en",
			ModelVersion: "test-model",
		},
		Metadata: domain.ScanMetadata{
			ScanType:         domain.ScanTypeBarcode,
			BarcodeDetected:  "4006381333931",
			Confidence:       1.0,
			ProcessingTimeMS: 420,
			Timestamp:        time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		},
	}
}

func TestMemoryScanStore_RoundTrip(t *testing.T) {
	store := NewMemoryScanStore()
	ctx := context.Background()
	original := sampleResult("scan-1")

	require.NoError(t, store.Save(ctx, original))

	got, err := store.GetByID(ctx, "scan-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, original, got)
}

func TestMemoryScanStore_Miss(t *testing.T) {
	store := NewMemoryScanStore()

	got, err := store.GetByID(context.Background(), "nope")

	assert.NoError(t, err, "a miss is not an error")
	assert.Nil(t, got)
}

func TestMemoryScanStore_RejectsDuplicateID(t *testing.T) {
	store := NewMemoryScanStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleResult("scan-1")))
	assert.Error(t, store.Save(ctx, sampleResult("scan-1")))
}

func TestMemoryScanStore_IsolatesStoredState(t *testing.T) {
	store := NewMemoryScanStore()
	ctx := context.Background()
	original := sampleResult("scan-1")
	require.NoError(t, store.Save(ctx, original))

	original.Product.Name = "mutated"

	got, err := store.GetByID(ctx, "scan-1")
	require.NoError(t, err)
	assert.Equal(t, "Almond Butter", got.Product.Name, "callers cannot mutate persisted state")
}
