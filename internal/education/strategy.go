// Package education implements the direct educational-content strategy: a
// short structured answer for "what is / why / how" questions, bypassing the
// tool-calling machinery.
package education

import (
	"context"
	"fmt"

	"github.com/peakform/coach/domain"
	"github.com/peakform/coach/provider"
)

const systemPrompt = `You are a fitness and nutrition coach. Answer the
user's question accurately in 2-4 short paragraphs. Use plain language, give
one practical takeaway, and do not invent statistics.`

// Strategy answers educational questions via a single provider call.
type Strategy struct {
	client provider.CompletionClient
	model  string
}

// New creates an education strategy.
func New(client provider.CompletionClient, model string) *Strategy {
	return &Strategy{client: client, model: model}
}

// Generate produces an educational answer for the question.
func (s *Strategy) Generate(ctx context.Context, question string, user domain.UserProfile) (string, *provider.Usage, error) {
	resp, err := s.client.CreateChatCompletion(ctx, &provider.ChatRequest{
		Model: s.model,
		Messages: []provider.ChatMessage{
			{Role: domain.RoleSystem, Content: systemPrompt},
			{Role: domain.RoleUser, Content: question},
		},
	})
	if err != nil {
		return "", nil, fmt.Errorf("education generation failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return "", resp.Usage, fmt.Errorf("education generation returned no choices")
	}
	return resp.Choices[0].Message.Content, resp.Usage, nil
}
