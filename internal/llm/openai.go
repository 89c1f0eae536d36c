package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// completionTemperature matches the product's fixed sampling temperature.
const completionTemperature = 0.7

// OpenAIProvider implements CompletionProvider on top of the OpenAI chat
// completions API.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider builds a provider from an API key and optional base URL
// override (useful for proxies and tests).
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(config)}
}

func toChatMessages(transcript []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(transcript))
	for _, m := range transcript {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// Complete performs a blocking chat completion over the full transcript.
func (p *OpenAIProvider) Complete(ctx context.Context, backendModel string, transcript []Message) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       backendModel,
		Messages:    toChatMessages(transcript),
		Temperature: completionTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choice")
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamCompletion opens an incremental chat completion over the full
// transcript and returns the delta stream.
func (p *OpenAIProvider) StreamCompletion(ctx context.Context, backendModel string, transcript []Message) (Stream, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       backendModel,
		Messages:    toChatMessages(transcript),
		Temperature: completionTemperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat completion stream: %w", err)
	}
	return &chatStream{stream: stream}, nil
}

// chatStream adapts the SDK's stream to the Stream interface, surfacing one
// content delta per Recv. Empty deltas (role headers, tool frames) are
// skipped so consumers only ever see text fragments.
type chatStream struct {
	stream *openai.ChatCompletionStream
}

func (s *chatStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *chatStream) Close() { s.stream.Close() }
