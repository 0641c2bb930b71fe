package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/foodscan/foodscan-api/internal/domain"
	"github.com/foodscan/foodscan-api/internal/logger"
)

// ImageGenerator is the vision capability port. Implemented by ai.GeminiClient.
type ImageGenerator interface {
	GenerateFromImage(ctx context.Context, mimeType string, image []byte, prompt string) (string, error)
}

// Fallback confidence tiers. A failed vision call retains more signal than a
// response that came back but could not be parsed, hence the higher constant.
const (
	visionCallFailureConfidence  = 0.6
	visionParseFailureConfidence = 0.4
	unknownProduct               = "unknown product"
	foodLabelScore               = 0.9
)

const visionPrompt = `Look carefully at this image and identify the exact food product shown.

IMPORTANT: Ignore the file name. Judge only what is visible in the image:
- shape, color and texture of the product
- size and overall appearance
- distinctive features, packaging or printed barcodes

Respond STRICTLY as JSON:
{
  "product_name": "precise product name in English",
  "category": "product category (Fruits, Vegetables, Meat, Fish and seafood, Dairy, Grains, Nuts)",
  "barcode": "digits of a printed barcode if one is clearly visible, else empty string",
  "confidence": number_between_0_and_1,
  "description": "detailed description of what is visible in the image"
}

Example answers:
- Avocado: {"product_name": "avocado", "category": "Fruits", "barcode": "", "confidence": 0.9, "description": "green oval fruit with dark skin"}
- Banana: {"product_name": "banana", "category": "Fruits", "barcode": "", "confidence": 0.95, "description": "yellow curved fruit"}

Answer with JSON only, no extra text.`

// Fixed word table applied to cleaned-up file names to canonicalize common
// tokens before category lookup.
var filenameWords = map[string]string{
	"salmon":  "salmon",
	"fish":    "fish",
	"avocado": "avocado",
	"apple":   "apple",
	"banana":  "banana",
	"chicken": "chicken",
	"beef":    "beef",
	"pork":    "pork",
	"rice":    "rice",
	"bread":   "bread",
	"milk":    "milk",
	"cheese":  "cheese",
	"yoghurt": "yogurt",
	"yogurt":  "yogurt",
	"egg":     "egg",
	"tomato":  "tomato",
	"potato":  "potato",
	"carrot":  "carrot",
	"onion":   "onion",
	"garlic":  "garlic",
	"food":    "food product",
}

var productCategories = map[string][]string{
	"Fish and seafood": {"salmon", "fish", "tuna", "shrimp", "crab"},
	"Fruits":           {"avocado", "apple", "banana", "orange", "pear"},
	"Meat":             {"chicken", "beef", "pork", "lamb"},
	"Dairy":            {"milk", "cheese", "yogurt", "cottage cheese", "kefir"},
	"Vegetables":       {"tomato", "potato", "carrot", "onion", "garlic"},
	"Grains":           {"rice", "bread", "oatmeal", "buckwheat"},
}

const defaultCategory = "Food"

// VisionService identifies products from images using a vision capability,
// with a filename-based heuristic as last resort.
type VisionService struct {
	generator ImageGenerator
}

func NewVisionService(generator ImageGenerator) *VisionService {
	return &VisionService{generator: generator}
}

type visionResponse struct {
	ProductName string  `json:"product_name"`
	Category    string  `json:"category"`
	Barcode     string  `json:"barcode"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// IdentifyFromImage never returns an error; upstream failures degrade into
// filename-based identification with tier-specific confidence.
func (s *VisionService) IdentifyFromImage(ctx context.Context, image []byte, filename string) *domain.VisionResult {
	mimeType := detectMimeType(image)

	raw, err := s.generator.GenerateFromImage(ctx, mimeType, image, visionPrompt)
	if err != nil {
		logger.Warn("Vision call failed, falling back to filename",
			"error", err.Error(), "filename", filename)
		return s.filenameFallback(filename, visionCallFailureConfidence, domain.OutcomeDegradedCall,
			"(vision service unavailable)")
	}

	parsed, err := parseVisionResponse(raw)
	if err != nil {
		logger.Warn("Vision response unusable, falling back to filename",
			"error", err.Error(), "filename", filename)
		return s.filenameFallback(filename, visionParseFailureConfidence, domain.OutcomeDegradedParse,
			"(image not recognized)")
	}

	return &domain.VisionResult{
		DetectedProduct: parsed.ProductName,
		Category:        parsed.Category,
		Labels: []domain.Label{
			{Description: parsed.Category, Score: parsed.Confidence},
			{Description: "food product", Score: foodLabelScore},
			{Description: parsed.ProductName, Score: parsed.Confidence},
		},
		Text:        fmt.Sprintf("Detected: %s", parsed.ProductName),
		Barcode:     parsed.Barcode,
		Confidence:  parsed.Confidence,
		Description: parsed.Description,
		Outcome:     domain.OutcomeOK,
	}
}

func parseVisionResponse(raw string) (*visionResponse, error) {
	jsonStr := extractJSON(stripCodeFences(raw))
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var parsed visionResponse
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse vision response: %w", err)
	}

	// Schema validation: a placeholder name or an out-of-range confidence is
	// treated the same as unparseable output.
	name := strings.TrimSpace(strings.ToLower(parsed.ProductName))
	if name == "" || name == unknownProduct {
		return nil, fmt.Errorf("vision could not identify the product")
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range", parsed.Confidence)
	}
	parsed.ProductName = name
	if parsed.Category == "" {
		parsed.Category = categorizeProduct(name)
	}
	return &parsed, nil
}

func (s *VisionService) filenameFallback(filename string, confidence float64, outcome domain.Outcome, note string) *domain.VisionResult {
	name := productFromFilename(filename)
	category := categorizeProduct(name)

	return &domain.VisionResult{
		DetectedProduct: name,
		Category:        category,
		Labels: []domain.Label{
			{Description: category, Score: confidence},
			{Description: "food product", Score: foodLabelScore},
			{Description: name, Score: confidence},
		},
		Text:        fmt.Sprintf("Detected from filename: %s", name),
		Confidence:  confidence,
		Description: fmt.Sprintf("Product identified from file name: %s %s", name, note),
		Outcome:     outcome,
	}
}

// productFromFilename strips the extension, digits and punctuation from a
// file name and maps the remainder through the fixed word table.
func productFromFilename(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)

	var cleaned strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || r == ' ' {
			cleaned.WriteRune(r)
		}
	}
	result := strings.ToLower(strings.Join(strings.Fields(cleaned.String()), " "))

	for word, canonical := range filenameWords {
		if strings.Contains(result, word) {
			return canonical
		}
	}
	if result == "" {
		return unknownProduct
	}
	return result
}

func categorizeProduct(productName string) string {
	lower := strings.ToLower(productName)
	for category, products := range productCategories {
		for _, product := range products {
			if strings.Contains(lower, product) {
				return category
			}
		}
	}
	return defaultCategory
}

// detectMimeType sniffs the image format from header bytes, defaulting to
// JPEG for unrecognized headers.
func detectMimeType(image []byte) string {
	switch {
	case bytes.HasPrefix(image, []byte{0xFF, 0xD8}):
		return "image/jpeg"
	case bytes.HasPrefix(image, []byte{0x89, 0x50}):
		return "image/png"
	case bytes.HasPrefix(image, []byte{0x47, 0x49}):
		return "image/gif"
	case bytes.HasPrefix(image, []byte{0x42, 0x4D}):
		return "image/bmp"
	case bytes.HasPrefix(image, []byte{0x52, 0x49}):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
