package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/foodscan/foodscan-api/internal/apperrors"
	"github.com/foodscan/foodscan-api/internal/domain"
	"github.com/foodscan/foodscan-api/internal/logger"
)

const (
	minQueryLen = 2
	maxQueryLen = 200

	// A direct barcode hit is a certain identification.
	barcodeScanConfidence = 1.0
)

// ScanService runs the product resolution pipeline: pick the strategy branch
// for the input kind, invoke adapters in priority order, merge the partial
// results and persist the outcome.
type ScanService struct {
	vision    domain.VisionService
	reasoning domain.ReasoningService
	catalog   domain.CatalogService
	repo      domain.ScanRepository
}

func NewScanService(
	vision domain.VisionService,
	reasoning domain.ReasoningService,
	catalog domain.CatalogService,
	repo domain.ScanRepository,
) *ScanService {
	return &ScanService{
		vision:    vision,
		reasoning: reasoning,
		catalog:   catalog,
		repo:      repo,
	}
}

// ScanBarcode resolves a barcode through the catalog. A barcode that fails to
// resolve is terminal; it is not retried as a text search.
func (s *ScanService) ScanBarcode(ctx context.Context, userID, barcode, language string) (*domain.ScanResult, error) {
	started := time.Now()

	if !ValidBarcode(barcode) {
		return nil, apperrors.NewValidationError("Invalid barcode format: must be 8-14 digits")
	}

	entry, err := s.catalog.LookupByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("Product with barcode %s not found", barcode))
	}

	analysis := s.reasoning.AnalyzeProduct(ctx, domain.AnalysisRequest{
		ProductName: entry.Product.Name,
		Brand:       entry.Product.Brand,
		Nutrition:   &entry.Nutrition,
		Language:    language,
	})

	meta := domain.ScanMetadata{
		ScanType:        domain.ScanTypeBarcode,
		BarcodeDetected: barcode,
		Confidence:      barcodeScanConfidence,
	}

	result := composeScanResult(userID, entry.Product, &entry.Nutrition, analysis, meta, language, started)
	if err := s.repo.Save(ctx, result); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	logger.Info("Barcode scan completed",
		"scan_id", result.ID, "barcode", barcode, "product", entry.Product.Name,
		"processing_time_ms", result.Metadata.ProcessingTimeMS)
	return result, nil
}

// ScanText resolves a free-text query, optionally qualified with a brand.
func (s *ScanService) ScanText(ctx context.Context, userID, query, brand, language string) (*domain.ScanResult, error) {
	started := time.Now()

	query = strings.TrimSpace(query)
	if n := utf8.RuneCountInString(query); n < minQueryLen || n > maxQueryLen {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("Query must be between %d and %d characters", minQueryLen, maxQueryLen))
	}

	searchQuery := query
	if brand != "" {
		searchQuery = brand + " " + query
	}

	entry, err := s.catalog.LookupByText(ctx, searchQuery)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("Product %q not found", query))
	}

	analysis := s.reasoning.AnalyzeProduct(ctx, domain.AnalysisRequest{
		ProductName: entry.Product.Name,
		Brand:       entry.Product.Brand,
		Nutrition:   &entry.Nutrition,
		Language:    language,
	})

	meta := domain.ScanMetadata{
		ScanType:   domain.ScanTypeManual,
		Confidence: entry.Nutrition.Confidence,
	}

	result := composeScanResult(userID, entry.Product, &entry.Nutrition, analysis, meta, language, started)
	if err := s.repo.Save(ctx, result); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	logger.Info("Text scan completed",
		"scan_id", result.ID, "query", query, "product", entry.Product.Name,
		"processing_time_ms", result.Metadata.ProcessingTimeMS)
	return result, nil
}

// ScanImage resolves an image through the ordered fallback chain: detected
// barcode, then detected text, then the vision adapter's best guess taken as
// the product identity without catalog confirmation.
func (s *ScanService) ScanImage(ctx context.Context, userID string, image []byte, filename, language string) (*domain.ScanResult, error) {
	started := time.Now()

	if len(image) == 0 {
		return nil, apperrors.NewValidationError("No image file provided")
	}

	vision := s.vision.IdentifyFromImage(ctx, image, filename)

	var entry *domain.CatalogEntry
	if vision.Barcode != "" && ValidBarcode(vision.Barcode) {
		found, err := s.catalog.LookupByBarcode(ctx, vision.Barcode)
		if err != nil {
			// A catalog outage must not kill the image chain; later stages
			// can still produce a product.
			logger.Warn("Catalog lookup by detected barcode failed", "error", err.Error())
		} else {
			entry = found
		}
	}

	if entry == nil && vision.DetectedProduct != "" && vision.DetectedProduct != unknownProduct {
		found, err := s.catalog.LookupByText(ctx, vision.DetectedProduct)
		if err != nil {
			logger.Warn("Catalog lookup by detected text failed", "error", err.Error())
		} else {
			entry = found
		}
	}

	var product domain.Product
	var nutrition *domain.NutritionFacts
	switch {
	case entry != nil:
		product = entry.Product
		facts := entry.Nutrition
		nutrition = &facts
	case vision.DetectedProduct != "" && vision.DetectedProduct != unknownProduct:
		product = domain.Product{
			Name:        vision.DetectedProduct,
			Category:    vision.Category,
			Description: vision.Description,
			Tags:        labelDescriptions(vision.Labels),
		}
	default:
		return nil, apperrors.NewNotFoundError(
			"Could not identify product from image. Please try a clearer photo or enter the product name manually.")
	}

	analysis := s.reasoning.AnalyzeProduct(ctx, domain.AnalysisRequest{
		ProductName: product.Name,
		Brand:       product.Brand,
		Nutrition:   nutrition,
		Language:    language,
	})

	meta := domain.ScanMetadata{
		ScanType:        domain.ScanTypeImage,
		DetectedText:    vision.Text,
		DetectedLabels:  labelDescriptions(vision.Labels),
		BarcodeDetected: vision.Barcode,
		Confidence:      vision.Confidence,
	}

	result := composeScanResult(userID, product, nutrition, analysis, meta, language, started)
	if err := s.repo.Save(ctx, result); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	logger.Info("Image scan completed",
		"scan_id", result.ID, "product", product.Name, "vision_outcome", vision.Outcome,
		"processing_time_ms", result.Metadata.ProcessingTimeMS)
	return result, nil
}

// GetScan retrieves a previously stored scan result.
func (s *ScanService) GetScan(ctx context.Context, id string) (*domain.ScanResult, error) {
	result, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	if result == nil {
		return nil, apperrors.NewNotFoundError("Scan result not found")
	}
	return result, nil
}

func labelDescriptions(labels []domain.Label) []string {
	if len(labels) == 0 {
		return nil
	}
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		out = append(out, l.Description)
	}
	return out
}
