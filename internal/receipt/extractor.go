// Package receipt turns receipt images into transaction drafts using a
// vision model, then validates the model's output before anything reaches
// the ledger.
package receipt

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"welth/internal/core"
)

// Extractor produces the raw model output for a receipt image. The output is
// untrusted text; ParseExtraction decides what survives.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (string, error)
}

// extractionPrompt asks for a strict JSON shape so the validator has
// something to hold the model to.
const extractionPrompt = `Analyze this receipt image and extract the following information in JSON format:
- Total amount (just the number)
- Date (in ISO format)
- Description or items purchased (brief summary)
- Merchant/store name
- Suggested category (one of: housing, transportation, groceries, utilities, entertainment, food, shopping, healthcare, education, personal, travel, insurance, gifts, bills, other-expense)

Only respond with valid JSON in this exact format:
{
  "amount": number,
  "date": "ISO date string",
  "description": "string",
  "merchantName": "string",
  "category": "string"
}

If it is not a receipt, return an empty object.`

// GeminiExtractor sends the image and prompt to a Gemini vision model.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

func NewGeminiExtractor(client *genai.Client, model string) *GeminiExtractor {
	return &GeminiExtractor{client: client, model: model}
}

func (g *GeminiExtractor) Extract(ctx context.Context, image []byte, mimeType string) (string, error) {
	content := genai.NewContentFromParts([]*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
		{Text: extractionPrompt},
	}, genai.RoleUser)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{content}, nil)
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %v", core.ErrExtraction, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty model response", core.ErrExtraction)
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
