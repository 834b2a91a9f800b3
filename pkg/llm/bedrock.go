package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// anthropicBedrockRequest mirrors Bedrock's Anthropic-on-Bedrock invoke
// body shape (the same Messages API surface exposed via InvokeModel).
type anthropicBedrockRequest struct {
	AnthropicVersion string                 `json:"anthropic_version"`
	MaxTokens        int                    `json:"max_tokens"`
	System           string                 `json:"system"`
	Messages         []bedrockMessage       `json:"messages"`
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicBedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// BedrockCompleter calls an Anthropic model hosted on Amazon Bedrock,
// demonstrating that pkg/summary's LLMSummarizer interface is provider-agnostic
// (spec.md §9 Open Question 2: alternate tier-C backend).
type BedrockCompleter struct {
	client    *bedrockruntime.Client
	modelID   string
	maxTokens int
}

// NewBedrockCompleter builds a completer using the default AWS credential
// chain for the given region and model ID.
func NewBedrockCompleter(ctx context.Context, region, modelID string) (*BedrockCompleter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}
	return &BedrockCompleter{
		client:    bedrockruntime.NewFromConfig(cfg),
		modelID:   modelID,
		maxTokens: 512,
	}, nil
}

// Complete implements Completer.
func (b *BedrockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(anthropicBedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        b.maxTokens,
		System:           systemPrompt,
		Messages:         []bedrockMessage{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke model %s: %w", b.modelID, err)
	}

	var parsed anthropicBedrockResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return "", fmt.Errorf("bedrock: unmarshal response: %w", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("bedrock: empty completion for model %s", b.modelID)
	}
	return strings.TrimSpace(text.String()), nil
}

// NewBedrockSummarizer builds a breaker-wrapped Summarizer backed by
// Bedrock's InvokeModel API.
func NewBedrockSummarizer(ctx context.Context, region, modelID string, maxPromptChars int) (*BreakerSummarizer, error) {
	completer, err := NewBedrockCompleter(ctx, region, modelID)
	if err != nil {
		return nil, err
	}
	return NewBreakerSummarizer("bedrock", completer, maxPromptChars), nil
}
