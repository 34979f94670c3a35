// Package nutrition turns free-text food descriptions into structured
// entries via the completion provider, with strict validation and a
// deterministic fallback so the caller always receives at least one
// plausible item and never an error for malformed model output.
package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/peakform/coach/domain"
	"github.com/peakform/coach/provider"
)

const parseSystemPrompt = `You are a nutrition parsing assistant. When given a food description, estimate the macros.

RESPOND ONLY WITH JSON in this exact format:
{
  "items": [
    {
      "name": "chicken breast",
      "brand": "",
      "quantity": 1,
      "unit": "serving",
      "calories": 280,
      "protein_g": 52,
      "carbs_g": 0,
      "fat_g": 6,
      "fiber_g": 0,
      "sugar_g": 0,
      "sodium_mg": 90,
      "confidence": 0.9
    }
  ]
}

Break compound meals into individual items. confidence is 0 to 1: near 1 for
specific foods with known nutrition, near 0.5 for general descriptions, below
0.4 for vague items. Be practical and realistic.
ONLY output the JSON, no other text.`

// Parser is the nutrition parsing strategy.
type Parser struct {
	client provider.CompletionClient
	model  string
}

// NewParser creates a nutrition parser backed by the completion provider.
func NewParser(client provider.CompletionClient, model string) *Parser {
	return &Parser{client: client, model: model}
}

// ParseNaturalLanguageFood parses a food description. It never fails for
// malformed model output: any provider, decode, or validation failure
// degrades to a single synthesized fallback item for the meal type.
func (p *Parser) ParseNaturalLanguageFood(ctx context.Context, text string, mealType domain.MealType, user domain.UserProfile) domain.NutritionResult {
	items, err := p.parseViaModel(ctx, text)
	if err != nil {
		log.Printf("WARN: nutrition parse degraded to fallback: %v", err)
		return fallbackResult(text, mealType)
	}

	valid := items[:0]
	for _, item := range items {
		if item.Valid() {
			valid = append(valid, item)
		} else {
			log.Printf("WARN: dropping implausible nutrition item %q (%.0f kcal)", item.Name, item.Calories)
		}
	}
	if len(valid) == 0 {
		return fallbackResult(text, mealType)
	}

	result := domain.NutritionResult{Items: valid, Strategy: domain.ParseStrategyDirectModel}
	result.Totals()
	return result
}

// parseViaModel consumes the completion stream to a single string and
// decodes it strictly against the expected schema.
func (p *Parser) parseViaModel(ctx context.Context, text string) ([]domain.FoodItem, error) {
	req := &provider.ChatRequest{
		Model: p.model,
		Messages: []provider.ChatMessage{
			{Role: domain.RoleSystem, Content: parseSystemPrompt},
			{Role: domain.RoleUser, Content: "Parse this food: " + text},
		},
	}

	var raw strings.Builder
	_, err := p.client.CreateChatCompletionStream(ctx, req, func(chunk *provider.StreamChunk) error {
		for _, choice := range chunk.Choices {
			if choice.Delta != nil {
				raw.WriteString(choice.Delta.Content)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("provider call failed: %w", err)
	}

	payload, ok := extractJSONObject(raw.String())
	if !ok {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var decoded struct {
		Items []domain.FoodItem `json:"items"`
	}
	dec := json.NewDecoder(strings.NewReader(payload))
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode nutrition payload: %w", err)
	}
	if len(decoded.Items) == 0 {
		return nil, fmt.Errorf("model returned no items")
	}
	return decoded.Items, nil
}

// extractJSONObject returns the outermost balanced JSON object in s.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
