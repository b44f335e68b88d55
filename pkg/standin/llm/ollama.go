// Package llm talks to a local Ollama server over its native chat API.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Message is a single chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamCallback receives each content chunk as it arrives.
type StreamCallback func(chunk string)

// Client is an Ollama chat client bound to one model.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for the Ollama server at baseURL.
func New(baseURL, model string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: logger.With("component", "llm"),
	}
}

// Model returns the model name the client generates with.
func (c *Client) Model() string { return c.model }

type chatRequest struct {
	Model    string      `json:"model"`
	Messages []Message   `json:"messages"`
	Stream   bool        `json:"stream"`
	Options  chatOptions `json:"options"`
}

type chatOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// Chat runs a non-streaming completion and returns the full reply text.
func (c *Client) Chat(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	resp, err := c.send(ctx, chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  chatOptions{NumPredict: maxTokens},
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	return out.Message.Content, nil
}

// ChatStream runs a streaming completion, invoking onChunk for every content
// fragment, and returns the accumulated reply text.
func (c *Client) ChatStream(ctx context.Context, messages []Message, maxTokens int, onChunk StreamCallback) (string, error) {
	resp, err := c.send(ctx, chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
		Options:  chatOptions{NumPredict: maxTokens},
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var part chatResponse
		if err := json.Unmarshal(line, &part); err != nil {
			return "", fmt.Errorf("decoding stream line: %w", err)
		}
		if part.Error != "" {
			return "", fmt.Errorf("ollama: %s", part.Error)
		}
		if part.Message.Content != "" {
			full.WriteString(part.Message.Content)
			if onChunk != nil {
				onChunk(part.Message.Content)
			}
		}
		if part.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stream: %w", err)
	}
	return full.String(), nil
}

func (c *Client) send(ctx context.Context, req chatRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &apiError{statusCode: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}
	return resp, nil
}

type apiError struct {
	statusCode int
	body       string
}

func (e *apiError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("ollama returned status %d", e.statusCode)
	}
	return fmt.Sprintf("ollama returned status %d: %s", e.statusCode, e.body)
}
