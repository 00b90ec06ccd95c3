package inference

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaModel = "llama3.2"

// OllamaClient completes prompts against a local Ollama server through its
// OpenAI-compatible chat endpoint. No API key is involved.
type OllamaClient struct {
	client   *http.Client
	model    string
	endpoint string
}

func NewOllamaClient(model, baseURL string) *OllamaClient {
	if strings.TrimSpace(model) == "" {
		model = defaultOllamaModel
	}
	return &OllamaClient{
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		model:    model,
		endpoint: chatEndpoint(baseURL, "http://127.0.0.1:11434/v1/chat/completions"),
	}
}

func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	return completeChat(ctx, c.client, c.endpoint, "", chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
	})
}
