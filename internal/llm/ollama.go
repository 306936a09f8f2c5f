package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// maxOllamaBody caps how much of a response body is read.
const maxOllamaBody = 4 << 20

type ollamaClient struct {
	cfg      LLMConfig
	http     *http.Client
	observer Observer
}

// NewOllamaClient creates an LLMClient that talks to the Ollama chat API.
// Each attempt gets the task's full timeout.
func NewOllamaClient(cfg LLMConfig, observer Observer) LLMClient {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &ollamaClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
		observer: observer,
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

func (c *ollamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()
	timeout := time.Duration(c.cfg.TaskTimeout(req.Task)) * time.Millisecond
	body := c.chatRequest(req)

	var out *ollamaChatResponse
	err := retry(ctx, c.cfg.MaxRetries, c.cfg.RetryBackoff(), func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		var err error
		out, err = c.chat(ctx, body)
		return err
	})
	if err == nil && strings.TrimSpace(out.Message.Content) == "" {
		err = fmt.Errorf("%w: empty message from %s", ErrInvalidOutput, c.cfg.Model)
	}
	latency := observe(c.observer, req.Task, c.cfg.Model, start, err)
	if err != nil {
		return nil, err
	}
	return &GenerateResponse{Text: out.Message.Content, Model: out.Model, LatencyMs: latency}, nil
}

func (c *ollamaClient) chatRequest(req GenerateRequest) ollamaChatRequest {
	temp, maxTok := c.cfg.taskParams(req)
	msgs := make([]ollamaMessage, 0, 2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, ollamaMessage{Role: "system", Content: req.SystemPrompt})
	}
	msgs = append(msgs, ollamaMessage{Role: "user", Content: req.UserPrompt})
	return ollamaChatRequest{
		Model:    c.cfg.Model,
		Messages: msgs,
		Options:  ollamaOptions{Temperature: temp, NumPredict: maxTok},
	}
}

func (c *ollamaClient) chat(ctx context.Context, body ollamaChatRequest) (*ollamaChatResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/chat"), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxOllamaBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	var resp ollamaChatResponse
	decodeErr := json.Unmarshal(raw, &resp)
	if httpResp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && resp.Error != "" {
			msg = resp.Error
		}
		return nil, &StatusError{Backend: "ollama", Code: httpResp.StatusCode, Body: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decoding response: %w", decodeErr)
	}
	return &resp, nil
}

// Available reports whether the server answers and has the configured model
// pulled. Tags carry a ":latest" style suffix the config may omit.
func (c *ollamaClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/tags"), nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxOllamaBody)).Decode(&tags); err != nil {
		return false
	}
	for _, m := range tags.Models {
		if m.Name == c.cfg.Model || strings.HasPrefix(m.Name, c.cfg.Model+":") {
			return true
		}
	}
	return false
}

func (c *ollamaClient) endpoint(path string) string {
	return strings.TrimRight(c.cfg.Endpoint, "/") + path
}
