package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI client used for embedding generation.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client with an explicit credential. The
// credential is passed in rather than read from the environment so
// tests and callers control it through the same path.
func NewClient(credential string) (*Client, error) {
	if credential == "" {
		return nil, fmt.Errorf("embedding credential not set")
	}
	client := openai.NewClient(option.WithAPIKey(credential))
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for reuse by the
// generator, which shares the same credential.
func (c *Client) Client() *openai.Client {
	return c.client
}
