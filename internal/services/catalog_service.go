package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/foodscan/foodscan-api/internal/apperrors"
	"github.com/foodscan/foodscan-api/internal/domain"
	"github.com/foodscan/foodscan-api/internal/logger"
)

var barcodePattern = regexp.MustCompile(`^\d{8,14}$`)

// ValidBarcode reports whether code is an 8-14 digit barcode.
func ValidBarcode(code string) bool {
	return barcodePattern.MatchString(code)
}

// Catalog match confidence. A direct barcode hit is more certain than the
// best text-search match.
const (
	barcodeMatchConfidence = 0.9
	textMatchConfidence    = 0.8
)

// CatalogService looks up products in the Open Food Facts catalog.
type CatalogService struct {
	baseURL string
	client  *http.Client
}

func NewCatalogService(baseURL string, timeout time.Duration) *CatalogService {
	return &CatalogService{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// offProduct mirrors the catalog's product schema. Numeric fields arrive as
// either numbers or strings, hence offNumber.
type offProduct struct {
	Code        string `json:"code"`
	ProductName string `json:"product_name"`
	Brands      string `json:"brands"`
	Categories  string `json:"categories"`
	Nutriments  struct {
		EnergyKcal100g offNumber `json:"energy-kcal_100g"`
		Proteins100g   offNumber `json:"proteins_100g"`
		Carbs100g      offNumber `json:"carbohydrates_100g"`
		Fat100g        offNumber `json:"fat_100g"`
		Fiber100g      offNumber `json:"fiber_100g"`
		Sugars100g     offNumber `json:"sugars_100g"`
		Sodium100g     offNumber `json:"sodium_100g"`
	} `json:"nutriments"`
}

type offNumber float64

func (n *offNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = offNumber(f)
	return nil
}

// LookupByBarcode returns the catalog entry for a barcode, or (nil, nil) when
// the catalog has no match. Malformed barcodes fail before any network call.
func (s *CatalogService) LookupByBarcode(ctx context.Context, barcode string) (*domain.CatalogEntry, error) {
	if !ValidBarcode(barcode) {
		return nil, apperrors.NewValidationError("Barcode must be a string of 8-14 digits")
	}

	endpoint := fmt.Sprintf("%s/api/v2/product/%s.json", s.baseURL, url.PathEscape(barcode))

	var payload struct {
		Status  offNumber  `json:"status"`
		Product offProduct `json:"product"`
	}
	if err := s.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	if payload.Status != 1 || payload.Product.ProductName == "" {
		logger.Debug("Catalog miss for barcode", "barcode", barcode)
		return nil, nil
	}

	entry := s.toEntry(payload.Product, barcodeMatchConfidence)
	if entry.Product.Barcode == "" {
		entry.Product.Barcode = barcode
	}
	return entry, nil
}

// LookupByText returns the best catalog match for a free-text query, or
// (nil, nil) when nothing matches.
func (s *CatalogService) LookupByText(ctx context.Context, query string) (*domain.CatalogEntry, error) {
	params := url.Values{}
	params.Set("search_terms", query)
	params.Set("search_simple", "1")
	params.Set("action", "process")
	params.Set("json", "1")
	params.Set("page_size", "5")
	endpoint := fmt.Sprintf("%s/cgi/search.pl?%s", s.baseURL, params.Encode())

	var payload struct {
		Products []offProduct `json:"products"`
	}
	if err := s.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	for _, p := range payload.Products {
		if p.ProductName != "" {
			return s.toEntry(p, textMatchConfidence), nil
		}
	}
	logger.Debug("Catalog miss for query", "query", query)
	return nil, nil
}

func (s *CatalogService) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return apperrors.NewExternalAPIError(err, "catalog")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// The catalog answers 404 for unknown products on some deployments;
		// that is a miss, not a failure.
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return apperrors.NewExternalAPIError(
			fmt.Errorf("unexpected status %d", resp.StatusCode), "catalog")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewExternalAPIError(fmt.Errorf("failed to decode response: %w", err), "catalog")
	}
	return nil
}

func (s *CatalogService) toEntry(p offProduct, confidence float64) *domain.CatalogEntry {
	brand := p.Brands
	if i := strings.Index(brand, ","); i >= 0 {
		brand = strings.TrimSpace(brand[:i])
	}

	category := defaultCategory
	var tags []string
	if p.Categories != "" {
		parts := strings.Split(p.Categories, ",")
		for _, part := range parts {
			if t := strings.TrimSpace(part); t != "" {
				tags = append(tags, t)
			}
		}
		if len(tags) > 0 {
			category = tags[0]
		}
	}

	return &domain.CatalogEntry{
		Product: domain.Product{
			Name:     p.ProductName,
			Brand:    brand,
			Barcode:  p.Code,
			Category: category,
			Tags:     tags,
		},
		Nutrition: domain.NutritionFacts{
			Calories:    float64(p.Nutriments.EnergyKcal100g),
			Protein:     float64(p.Nutriments.Proteins100g),
			Carbs:       float64(p.Nutriments.Carbs100g),
			Fat:         float64(p.Nutriments.Fat100g),
			Fiber:       float64(p.Nutriments.Fiber100g),
			Sugar:       float64(p.Nutriments.Sugars100g),
			Sodium:      float64(p.Nutriments.Sodium100g) * 1000, // catalog reports grams, we keep mg
			ServingSize: defaultServingSize,
			Source:      domain.SourceCatalog,
			Confidence:  confidence,
		},
	}
}
