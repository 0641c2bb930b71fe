package services

import (
	"fmt"
	"time"

	"github.com/foodscan/foodscan-api/internal/domain"
	"github.com/google/uuid"
)

const (
	defaultServingSize = "100g"

	// Confidence attached to the placeholder nutrition values. Deliberately
	// low: the placeholder is a policy, not an estimate.
	fallbackNutritionConfidence = 0.3
)

// composeScanResult is the single construction point for ScanResult. It
// merges whichever adapter outputs actually exist, fills the gaps with the
// documented defaults and stamps a fresh id and timestamp.
func composeScanResult(
	userID string,
	product domain.Product,
	nutrition *domain.NutritionFacts,
	analysis *domain.AnalysisResponse,
	meta domain.ScanMetadata,
	language string,
	started time.Time,
) *domain.ScanResult {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.Category == "" {
		product.Category = defaultCategory
	}
	if product.Description == "" {
		product.Description = describeProduct(product)
	}

	facts := resolveNutrition(nutrition, analysis)

	meta.Timestamp = time.Now().UTC()
	meta.ProcessingTimeMS = time.Since(started).Milliseconds()

	return &domain.ScanResult{
		ID:        uuid.New().String(),
		UserID:    userID,
		Product:   product,
		Nutrition: facts,
		Analysis: domain.Analysis{
			HealthScore:     analysis.HealthScore,
			Insights:        analysis.Insights,
			Recommendations: analysis.Recommendations,
			Benefits:        analysis.Benefits,
			Warnings:        analysis.Warnings,
			AllergenAlerts:  analysis.AllergenAlerts,
			Confidence:      analysis.Confidence,
			Language:        language,
			ModelVersion:    analysis.ModelVersion,
		},
		Metadata: meta,
	}
}

// resolveNutrition picks nutrition facts in provenance order: catalog data if
// an adapter supplied it, the AI estimate if the response carried one, and
// the fixed placeholder as last resort. Fiber, sugar and sodium zero-coalesce
// when an upstream source omits them.
func resolveNutrition(nutrition *domain.NutritionFacts, analysis *domain.AnalysisResponse) domain.NutritionFacts {
	if nutrition != nil {
		facts := *nutrition
		if facts.ServingSize == "" {
			facts.ServingSize = defaultServingSize
		}
		return facts
	}

	if est := analysis.Nutrition; est != nil {
		return domain.NutritionFacts{
			Calories:    est.Calories,
			Protein:     est.Protein,
			Carbs:       est.Carbs,
			Fat:         est.Fat,
			Fiber:       est.Fiber,
			Sugar:       est.Sugar,
			Sodium:      est.Sodium,
			ServingSize: defaultServingSize,
			Source:      domain.SourceAIEstimate,
			Confidence:  analysis.Confidence,
		}
	}

	// Placeholder values, not a nutrition estimate.
	return domain.NutritionFacts{
		Calories:    100,
		Protein:     5,
		Carbs:       10,
		Fat:         3,
		Fiber:       2,
		Sugar:       5,
		Sodium:      50,
		ServingSize: defaultServingSize,
		Source:      domain.SourceManualFallback,
		Confidence:  fallbackNutritionConfidence,
	}
}

func describeProduct(p domain.Product) string {
	if p.Brand != "" {
		return fmt.Sprintf("%s from %s", p.Name, p.Brand)
	}
	return p.Name
}
