package domain

import (
	"time"
)

// NutritionSource records which strategy produced the nutrition facts.
type NutritionSource string

const (
	SourceCatalog        NutritionSource = "catalog"
	SourceAIEstimate     NutritionSource = "ai_estimate"
	SourceManual         NutritionSource = "manual"
	SourceManualFallback NutritionSource = "manual-fallback"
)

// ScanType identifies which kind of input started a scan.
type ScanType string

const (
	ScanTypeBarcode ScanType = "barcode"
	ScanTypeImage   ScanType = "image"
	ScanTypeManual  ScanType = "manual"
)

// Outcome marks how an adapter produced its result, so downstream code can
// branch on degradation without inspecting confidence values.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeDegradedParse Outcome = "degraded_parse"
	OutcomeDegradedCall  Outcome = "degraded_call"
)

// WarningSeverity levels for analysis warnings.
type WarningSeverity string

const (
	SeverityLow    WarningSeverity = "low"
	SeverityMedium WarningSeverity = "medium"
	SeverityHigh   WarningSeverity = "high"
)

// Product represents an identified food product. It is created once per
// successful resolution and never mutated afterwards.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand,omitempty"`
	Barcode     string   `json:"barcode,omitempty"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// NutritionFacts holds per-100g values.
type NutritionFacts struct {
	Calories    float64         `json:"calories"`
	Protein     float64         `json:"protein"`
	Carbs       float64         `json:"carbs"`
	Fat         float64         `json:"fat"`
	Fiber       float64         `json:"fiber"`
	Sugar       float64         `json:"sugar"`
	Sodium      float64         `json:"sodium"`
	ServingSize string          `json:"serving_size"`
	Source      NutritionSource `json:"source"`
	Confidence  float64         `json:"confidence"`
}

// Warning is a structured health warning attached to an analysis.
type Warning struct {
	Type     string          `json:"type"`
	Severity WarningSeverity `json:"severity"`
	Message  string          `json:"message"`
	Details  string          `json:"details,omitempty"`
}

// Analysis is the qualitative health assessment of a product.
type Analysis struct {
	HealthScore     int       `json:"health_score"`
	Insights        string    `json:"insights"`
	Recommendations []string  `json:"recommendations"`
	Benefits        []string  `json:"benefits"`
	Warnings        []Warning `json:"warnings"`
	AllergenAlerts  []string  `json:"allergen_alerts"`
	Confidence      float64   `json:"confidence"`
	Language        string    `json:"language"`
	ModelVersion    string    `json:"model_version"`
}

// ScanMetadata captures how a scan was resolved.
type ScanMetadata struct {
	ScanType         ScanType  `json:"scan_type"`
	DetectedText     string    `json:"detected_text,omitempty"`
	DetectedLabels   []string  `json:"detected_labels,omitempty"`
	BarcodeDetected  string    `json:"barcode_detected,omitempty"`
	Confidence       float64   `json:"confidence"`
	ProcessingTimeMS int64     `json:"processing_time_ms"`
	Timestamp        time.Time `json:"timestamp"`
}

// ScanResult is the aggregate handed to the store. A re-scan produces a new
// ScanResult with a fresh id, never an update of an existing one.
type ScanResult struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id,omitempty"`
	Product   Product        `json:"product"`
	Nutrition NutritionFacts `json:"nutrition"`
	Analysis  Analysis       `json:"analysis"`
	Metadata  ScanMetadata   `json:"scan_metadata"`
}

// Label is a single vision label with its score.
type Label struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// VisionResult is the normalized output of the image labeling adapter. The
// adapter always returns a populated result, degrading confidence instead of
// raising errors.
type VisionResult struct {
	DetectedProduct string  `json:"detected_product"`
	Category        string  `json:"category"`
	Labels          []Label `json:"labels"`
	Text            string  `json:"text,omitempty"`
	Barcode         string  `json:"barcode,omitempty"`
	Confidence      float64 `json:"confidence"`
	Description     string  `json:"description"`
	Outcome         Outcome `json:"-"`
}

// CatalogEntry pairs a product with its nutrition facts as returned by the
// external catalog.
type CatalogEntry struct {
	Product   Product
	Nutrition NutritionFacts
}

// AnalysisRequest is the input to the AI reasoning adapter.
type AnalysisRequest struct {
	ProductName string
	Brand       string
	Nutrition   *NutritionFacts
	Language    string
}

// NutritionEstimate is the optional nutrition block an AI response may carry.
// Fiber, sugar and sodium default to zero when the model omits them.
type NutritionEstimate struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
	Sugar    float64 `json:"sugar"`
	Sodium   float64 `json:"sodium"`
}

// AnalysisResponse is the normalized output of the AI reasoning adapter.
type AnalysisResponse struct {
	Nutrition       *NutritionEstimate `json:"nutrition,omitempty"`
	Insights        string             `json:"insights"`
	Recommendations []string           `json:"recommendations"`
	Benefits        []string           `json:"benefits"`
	AllergenAlerts  []string           `json:"allergen_alerts"`
	Warnings        []Warning          `json:"warnings"`
	HealthScore     int                `json:"health_score"`
	Confidence      float64            `json:"confidence"`
	ModelVersion    string             `json:"-"`
	Outcome         Outcome            `json:"-"`
}
