package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/foodscan/foodscan-api/internal/domain"
	"github.com/foodscan/foodscan-api/internal/logger"
)

// TextGenerator is the reasoning capability port. Implemented by
// ai.GeminiClient and ai.OpenAIClient.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	ModelVersion() string
}

// Degraded analysis tiers. The parse tier keeps the raw model text as
// insights; the call tier had no model output at all. The constants differ so
// the two paths stay distinguishable.
const (
	parseFallbackScore      = 6
	parseFallbackConfidence = 0.7
	callFallbackScore       = 5
	callFallbackConfidence  = 0.3
	insightsTruncateLen     = 300
)

// AIService turns a product identity into a qualitative health analysis and,
// when the catalog supplied nothing, a nutrition estimate.
type AIService struct {
	generator TextGenerator
}

func NewAIService(generator TextGenerator) *AIService {
	return &AIService{generator: generator}
}

// AnalyzeProduct never returns an error. Malformed model output and failed
// calls each map to their own fixed degraded response.
func (s *AIService) AnalyzeProduct(ctx context.Context, req domain.AnalysisRequest) *domain.AnalysisResponse {
	prompt := buildAnalysisPrompt(req)

	raw, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		logger.Warn("AI analysis call failed, returning degraded response",
			"error", err.Error(), "product", req.ProductName)
		return s.callFallback(req)
	}

	resp, err := parseAnalysisResponse(raw)
	if err != nil {
		logger.Warn("AI analysis response unusable, extracting insights from raw text",
			"error", err.Error(), "product", req.ProductName)
		return s.parseFallback(raw)
	}

	resp.ModelVersion = s.generator.ModelVersion()
	resp.Outcome = domain.OutcomeOK
	return resp
}

func buildAnalysisPrompt(req domain.AnalysisRequest) string {
	var b strings.Builder

	product := req.ProductName
	if req.Brand != "" {
		product = fmt.Sprintf("%s (%s)", req.ProductName, req.Brand)
	}

	language := "English"
	if req.Language == "ru" {
		language = "Russian"
	}

	fmt.Fprintf(&b, `You are a nutrition expert. Analyze the product %q and return a COMPLETE analysis in %s.

`, product, language)

	if req.Nutrition != nil {
		fmt.Fprintf(&b, `Known nutrition facts per 100g: calories %.1f, protein %.1fg, carbs %.1fg, fat %.1fg, fiber %.1fg, sugar %.1fg, sodium %.1fmg. Base your analysis on these values.

`, req.Nutrition.Calories, req.Nutrition.Protein, req.Nutrition.Carbs,
			req.Nutrition.Fat, req.Nutrition.Fiber, req.Nutrition.Sugar, req.Nutrition.Sodium)
	} else {
		b.WriteString("IMPORTANT: Determine realistic nutrition values per 100g yourself from your knowledge of this product.\n\n")
	}

	b.WriteString(`Respond STRICTLY as JSON:
{
  "nutrition": {
    "calories": real_calories_per_100g,
    "protein": grams_of_protein,
    "carbs": grams_of_carbs,
    "fat": grams_of_fat,
    "fiber": grams_of_fiber,
    "sugar": grams_of_sugar,
    "sodium": milligrams_of_sodium
  },
  "insights": "Detailed product analysis with real nutrition data (3-4 sentences)",
  "recommendations": ["Practical recommendation 1", "Practical recommendation 2", "Practical recommendation 3"],
  "benefits": ["Benefit 1", "Benefit 2", "Benefit 3"],
  "allergen_alerts": [],
  "warnings": [
    {
      "type": "warning_type",
      "severity": "low/medium/high",
      "message": "Short warning",
      "details": "Warning details"
    }
  ],
  "health_score": number_from_1_to_10,
  "confidence": number_from_0_to_1
}

Valid warning types: "high_calories", "high_sugar", "high_sodium", "allergen", "low_nutrition", "general"

Answer with JSON only, no extra text.`)

	return b.String()
}

// parseAnalysisResponse treats the model output as an untrusted boundary: the
// JSON must parse and every constrained field must be in range, otherwise the
// whole response is rejected.
func parseAnalysisResponse(raw string) (*domain.AnalysisResponse, error) {
	jsonStr := extractJSON(stripCodeFences(raw))
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var resp domain.AnalysisResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	if resp.HealthScore < 1 || resp.HealthScore > 10 {
		return nil, fmt.Errorf("health_score %d out of range", resp.HealthScore)
	}
	if resp.Confidence < 0 || resp.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range", resp.Confidence)
	}
	if resp.Insights == "" {
		return nil, fmt.Errorf("missing insights")
	}
	for _, w := range resp.Warnings {
		switch w.Severity {
		case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh:
		default:
			return nil, fmt.Errorf("invalid warning severity %q", w.Severity)
		}
	}

	if resp.Recommendations == nil {
		resp.Recommendations = []string{}
	}
	if resp.Benefits == nil {
		resp.Benefits = []string{}
	}
	if resp.AllergenAlerts == nil {
		resp.AllergenAlerts = []string{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []domain.Warning{}
	}
	return &resp, nil
}

// parseFallback salvages what it can from unparseable model output.
func (s *AIService) parseFallback(raw string) *domain.AnalysisResponse {
	insights := strings.TrimSpace(raw)
	if len(insights) > insightsTruncateLen {
		insights = insights[:insightsTruncateLen] + "..."
	}

	return &domain.AnalysisResponse{
		Insights:        insights,
		Recommendations: []string{"Consult a dietitian for personalized recommendations"},
		Benefits:        []string{"Contains beneficial nutrients"},
		AllergenAlerts:  []string{},
		Warnings: []domain.Warning{{
			Type:     "general",
			Severity: domain.SeverityLow,
			Message:  "General consumption guidance",
			Details:  "Consume in moderation",
		}},
		HealthScore:  parseFallbackScore,
		Confidence:   parseFallbackConfidence,
		ModelVersion: s.generator.ModelVersion(),
		Outcome:      domain.OutcomeDegradedParse,
	}
}

// callFallback is used when the capability could not be reached at all.
func (s *AIService) callFallback(req domain.AnalysisRequest) *domain.AnalysisResponse {
	return &domain.AnalysisResponse{
		Insights: fmt.Sprintf("A detailed AI analysis of %q is unavailable. Consider consulting a dietitian.",
			req.ProductName),
		Recommendations: []string{
			"Consume in moderation",
			"Keep your overall diet balanced",
		},
		Benefits:       []string{"May contain beneficial nutrients"},
		AllergenAlerts: []string{},
		Warnings: []domain.Warning{{
			Type:     "general",
			Severity: domain.SeverityMedium,
			Message:  "Analysis unavailable",
			Details:  "Could not reach the AI service",
		}},
		HealthScore:  callFallbackScore,
		Confidence:   callFallbackConfidence,
		ModelVersion: s.generator.ModelVersion(),
		Outcome:      domain.OutcomeDegradedCall,
	}
}

// stripCodeFences removes markdown code-fence wrappers models like to add
// despite instructions.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// extractJSON attempts to extract a JSON object from the given string,
// handling responses where the JSON is wrapped in explanatory text.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
