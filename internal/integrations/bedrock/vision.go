package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"agrinudge/internal/dialect"
)

// visionAPI is the minimal runtime interface required by VisionClient.
type visionAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// VisionClient diagnoses crop problems from images.
type VisionClient struct {
	api     visionAPI
	modelID string
}

// NewVisionClient creates a VisionClient.
func NewVisionClient(api visionAPI, modelID string) (*VisionClient, error) {
	if api == nil {
		return nil, errors.New("bedrock: vision api must not be nil")
	}
	if strings.TrimSpace(modelID) == "" {
		return nil, errors.New("bedrock: vision model id must not be empty")
	}
	return &VisionClient{api: api, modelID: modelID}, nil
}

var visionLanguages = map[dialect.Dialect]string{
	dialect.Hindi:   "Hindi (Devanagari script)",
	dialect.Marathi: "Marathi (Devanagari script)",
	dialect.Telugu:  "Telugu script",
}

func visionPrompt(d dialect.Dialect, crop string) string {
	return fmt.Sprintf(`You are an agricultural extension agent helping Indian farmers identify crop problems.

Analyze this %s plant image and provide:

1. Diagnosis: what pest, disease, or nutrient deficiency do you see?
2. Severity: low, medium, or high?
3. Recommendations: what should the farmer do immediately, with dosage and timing.

IMPORTANT: Respond in %s. Use simple, practical language that farmers can understand.

If you cannot identify a specific problem, say so clearly and suggest general crop health practices.`, crop, visionLanguages[dialect.Normalize(string(d))])
}

type visionRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Messages         []visionMessage `json:"messages"`
}

type visionMessage struct {
	Role    string          `json:"role"`
	Content []visionContent `json:"content"`
}

type visionContent struct {
	Type   string       `json:"type"`
	Source *imageSource `json:"source,omitempty"`
	Text   string       `json:"text,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type visionResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Diagnose analyzes one crop image and returns the diagnosis text in the
// user's dialect.
func (c *VisionClient) Diagnose(ctx context.Context, image []byte, d dialect.Dialect, crop string) (string, error) {
	if len(image) == 0 {
		return "", errors.New("bedrock: image must not be empty")
	}

	body, err := json.Marshal(visionRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        2000,
		Messages: []visionMessage{{
			Role: "user",
			Content: []visionContent{
				{
					Type: "image",
					Source: &imageSource{
						Type:      "base64",
						MediaType: "image/jpeg",
						Data:      base64.StdEncoding.EncodeToString(image),
					},
				},
				{Type: "text", Text: visionPrompt(d, crop)},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal vision request: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke vision model: %w", err)
	}

	var payload visionResponse
	if err := json.Unmarshal(out.Body, &payload); err != nil {
		return "", fmt.Errorf("bedrock: decode vision response: %w", err)
	}
	if len(payload.Content) == 0 || payload.Content[0].Text == "" {
		return "", errors.New("bedrock: empty vision response")
	}
	return payload.Content[0].Text, nil
}
