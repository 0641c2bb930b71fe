package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foodscan/foodscan-api/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const offProductJSON = `{
  "status": 1,
  "product": {
    "code": "3017620422003",
    "product_name": "Nutella",
    "brands": "Ferrero, Nutella",
    "categories": "Spreads, Sweet spreads",
    "nutriments": {
      "energy-kcal_100g": 539,
      "proteins_100g": "6.3",
      "carbohydrates_100g": 57.5,
      "fat_100g": 30.9,
      "sugars_100g": 56.3,
      "sodium_100g": 0.0428
    }
  }
}`

func TestValidBarcode(t *testing.T) {
	assert.True(t, ValidBarcode("12345678"))
	assert.True(t, ValidBarcode("12345678901234"))
	assert.False(t, ValidBarcode("1234567"))
	assert.False(t, ValidBarcode("123456789012345"))
	assert.False(t, ValidBarcode("12345abc"))
	assert.False(t, ValidBarcode(""))
}

func TestLookupByBarcode_Found(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(offProductJSON))
	}))
	defer srv.Close()

	svc := NewCatalogService(srv.URL, 5*time.Second)
	entry, err := svc.LookupByBarcode(context.Background(), "3017620422003")

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "/api/v2/product/3017620422003.json", gotPath)
	assert.Equal(t, "Nutella", entry.Product.Name)
	assert.Equal(t, "Ferrero", entry.Product.Brand)
	assert.Equal(t, "3017620422003", entry.Product.Barcode)
	assert.Equal(t, "Spreads", entry.Product.Category)
	assert.Equal(t, 539.0, entry.Nutrition.Calories)
	assert.Equal(t, 6.3, entry.Nutrition.Protein, "string-typed numbers are accepted")
	assert.InDelta(t, 42.8, entry.Nutrition.Sodium, 0.001, "sodium converts from g to mg")
	assert.Equal(t, barcodeMatchConfidence, entry.Nutrition.Confidence)
	assert.Equal(t, "catalog", string(entry.Nutrition.Source))
}

func TestLookupByBarcode_Miss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": 0, "product": {}}`))
	}))
	defer srv.Close()

	svc := NewCatalogService(srv.URL, 5*time.Second)
	entry, err := svc.LookupByBarcode(context.Background(), "12345678")

	assert.NoError(t, err, "a catalog miss is not an error")
	assert.Nil(t, entry)
}

func TestLookupByBarcode_InvalidFormatSkipsNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	svc := NewCatalogService(srv.URL, 5*time.Second)
	entry, err := svc.LookupByBarcode(context.Background(), "not-a-barcode")

	require.Error(t, err)
	assert.Nil(t, entry)
	assert.Zero(t, calls, "validation failures must not reach the catalog")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
}

func TestLookupByBarcode_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewCatalogService(srv.URL, 5*time.Second)
	_, err := svc.LookupByBarcode(context.Background(), "12345678")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeExternal, appErr.Type)
}

func TestLookupByText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cgi/search.pl", r.URL.Path)
		assert.Equal(t, "apple juice", r.URL.Query().Get("search_terms"))
		w.Write([]byte(`{"products": [{"product_name": "", "nutriments": {}}, {"code": "987654321001", "product_name": "Apple Juice", "brands": "OrchardCo", "nutriments": {"energy-kcal_100g": 46}}]}`))
	}))
	defer srv.Close()

	svc := NewCatalogService(srv.URL, 5*time.Second)
	entry, err := svc.LookupByText(context.Background(), "apple juice")

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Apple Juice", entry.Product.Name, "nameless products are skipped")
	assert.Equal(t, textMatchConfidence, entry.Nutrition.Confidence)
}

func TestLookupByText_Miss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"products": []}`))
	}))
	defer srv.Close()

	svc := NewCatalogService(srv.URL, 5*time.Second)
	entry, err := svc.LookupByText(context.Background(), "definitely not food")

	assert.NoError(t, err)
	assert.Nil(t, entry)
}
