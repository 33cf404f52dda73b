// Package ai talks to a local Ollama server to suggest emulator actions and
// hold conversations on behalf of sessions.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// Client is a minimal Ollama API client.
type Client struct {
	http  *resty.Client
	model string
}

// NewClient creates a client for the Ollama server at baseURL.
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Client{http: httpClient, model: model}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// ChatReply sends the full conversation history and returns the reply.
func (c *Client) ChatReply(ctx context.Context, messages []Message) (string, error) {
	var parsed chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"model":    c.model,
			"messages": messages,
			"stream":   false,
		}).
		SetResult(&parsed).
		Post("/api/chat")
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("ollama chat: status %d", resp.StatusCode())
	}
	return parsed.Message.Content, nil
}

// SuggestAction asks the model to pick an action given a prompt and returns
// the trimmed response.
func (c *Client) SuggestAction(ctx context.Context, prompt string) (string, error) {
	var parsed generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"model":  c.model,
			"prompt": prompt,
			"stream": false,
		}).
		SetResult(&parsed).
		Post("/api/generate")
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("ollama generate: status %d", resp.StatusCode())
	}
	return strings.TrimSpace(parsed.Response), nil
}

// BuildActionPrompt assembles the action-suggestion prompt from the current
// observation and the available controller actions.
func BuildActionPrompt(observation string, actionLabels []string, rom string, playerAction string) string {
	lines := []string{
		"You are a cooperative player controlling a retro game emulator. " +
			"Reply with exactly one action label from the available list, and nothing else.",
		fmt.Sprintf("Observation: %s", observation),
		fmt.Sprintf("Available actions: %s", strings.Join(actionLabels, ", ")),
		fmt.Sprintf("Current game: %s", rom),
	}
	if playerAction != "" {
		lines = append(lines, fmt.Sprintf("The human suggests: %s", playerAction))
	}
	return strings.Join(lines, "\n")
}
