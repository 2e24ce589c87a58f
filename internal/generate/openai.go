// Package generate invokes chat models to produce grounded answers.
package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pumpside/fueldocs/internal/vector"
)

// OpenAI generates answers through the OpenAI chat completions API in
// compact mode: the retrieved chunks are concatenated into a context
// block ahead of the question.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI creates a generator with an explicit credential.
func NewOpenAI(credential string) (*OpenAI, error) {
	if credential == "" {
		return nil, fmt.Errorf("generator credential not set")
	}
	client := openai.NewClient(option.WithAPIKey(credential))
	return &OpenAI{client: &client}, nil
}

// NewOpenAIFromClient wraps an existing client so the embedder and
// generator can share one credential.
func NewOpenAIFromClient(client *openai.Client) *OpenAI {
	return &OpenAI{client: client}
}

// Generate answers the composed prompt against the retrieved chunks
// using the given model. Failures propagate to the caller untouched.
func (g *OpenAI) Generate(ctx context.Context, model, prompt string, chunks []vector.RetrievedChunk) (string, error) {
	var contextBlock strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&contextBlock, "[%d] (source: %s)\n%s\n\n", i+1, chunk.SourceURL, chunk.Text)
	}

	user := fmt.Sprintf("Context documents:\n\n%s---\n\n%s", contextBlock.String(), prompt)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(user),
		},
		Model: model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion (%s): %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion (%s): empty response", model)
	}
	return resp.Choices[0].Message.Content, nil
}
