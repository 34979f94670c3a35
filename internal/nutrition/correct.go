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

const correctSystemPrompt = `You are a nutrition correction assistant. Given original food data and a user correction, recalculate the macros.

RESPOND ONLY WITH JSON in this exact format:
{
  "name": "updated food name if needed",
  "calories": 450,
  "protein_g": 35,
  "carbs_g": 40,
  "fat_g": 15
}

Common corrections: portion size changes, cooking method, added or removed
ingredients, quantity adjustments. Apply your nutritional knowledge to make
reasonable adjustments.
ONLY output the JSON, no other text.`

// Correct applies a natural-language correction to an existing item. On any
// provider or decode failure the original item is returned unchanged.
func (p *Parser) Correct(ctx context.Context, original domain.FoodItem, correction string) domain.FoodItem {
	prompt := fmt.Sprintf(`Original entry:
- Name: %s
- Calories: %.0f
- Protein: %.0fg
- Carbs: %.0fg
- Fat: %.0fg

User correction: %s

Recalculate the macros based on this correction.`,
		original.Name, original.Calories, original.ProteinG, original.CarbsG, original.FatG, correction)

	resp, err := p.client.CreateChatCompletion(ctx, &provider.ChatRequest{
		Model: p.model,
		Messages: []provider.ChatMessage{
			{Role: domain.RoleSystem, Content: correctSystemPrompt},
			{Role: domain.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		log.Printf("WARN: nutrition correction failed, keeping original: %v", err)
		return original
	}

	var text string
	if len(resp.Choices) > 0 && resp.Choices[0].Message != nil {
		text = resp.Choices[0].Message.Content
	}
	payload, ok := extractJSONObject(text)
	if !ok {
		return original
	}

	var decoded struct {
		Name     string  `json:"name"`
		Calories float64 `json:"calories"`
		ProteinG float64 `json:"protein_g"`
		CarbsG   float64 `json:"carbs_g"`
		FatG     float64 `json:"fat_g"`
	}
	if err := json.NewDecoder(strings.NewReader(payload)).Decode(&decoded); err != nil {
		return original
	}

	corrected := original
	if decoded.Name != "" {
		corrected.Name = decoded.Name
	}
	corrected.Calories = decoded.Calories
	corrected.ProteinG = decoded.ProteinG
	corrected.CarbsG = decoded.CarbsG
	corrected.FatG = decoded.FatG
	if !corrected.Valid() {
		return original
	}
	return corrected
}

// MacroTargets are the daily targets used for status feedback.
type MacroTargets struct {
	Calories float64
	ProteinG float64
	CarbsG   float64
	FatG     float64
}

// TargetsFor returns the daily macro targets for a training or rest day.
func TargetsFor(trainingDay bool) MacroTargets {
	if trainingDay {
		return MacroTargets{Calories: 2600, ProteinG: 175, CarbsG: 330, FatG: 67}
	}
	return MacroTargets{Calories: 2200, ProteinG: 175, CarbsG: 250, FatG: 57}
}

// MacroFeedback computes remaining macros deterministically and asks the
// provider for a short status line on top. Provider failure degrades to a
// fixed message; the numbers are already known to the caller.
func (p *Parser) MacroFeedback(ctx context.Context, calories, proteinG, carbsG, fatG float64, trainingDay bool) string {
	targets := TargetsFor(trainingDay)
	remainingCals := targets.Calories - calories
	remainingProtein := targets.ProteinG - proteinG

	dayKind := "rest"
	if trainingDay {
		dayKind = "training"
	}
	prompt := fmt.Sprintf(`Current intake: %.0f cal, %.0fg P, %.0fg C, %.0fg F
Targets (%s day): %.0f cal, %.0fg P, %.0fg C, %.0fg F
Remaining: %.0f cal, %.0fg protein

Give a 1-2 sentence status update. Be encouraging and concrete.`,
		calories, proteinG, carbsG, fatG,
		dayKind, targets.Calories, targets.ProteinG, targets.CarbsG, targets.FatG,
		remainingCals, remainingProtein)

	resp, err := p.client.CreateChatCompletion(ctx, &provider.ChatRequest{
		Model:    p.model,
		Messages: []provider.ChatMessage{{Role: domain.RoleUser, Content: prompt}},
	})
	if err != nil || len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return fmt.Sprintf("You have %.0f calories and %.0fg of protein left today.", remainingCals, remainingProtein)
	}
	return resp.Choices[0].Message.Content
}
