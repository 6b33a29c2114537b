// Package genai talks to the Gemini generative language REST API.
package genai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/pedagosys-api/pkg/config"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("genai: api key not configured")

const (
	RoleUser  = "user"
	RoleModel = "model"

	defaultTemperature = 0.7
	defaultMaxTokens   = 8000
)

// Message is one turn of a conversation.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r generateResponse) text() string {
	var b strings.Builder
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Client is a thin REST client with an injectable http.Client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	logger     *zap.Logger
}

// NewClient builds a client from configuration.
func NewClient(cfg config.GenAIConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// Generate returns the full completion of prompt.
func (c *Client) Generate(ctx context.Context, systemInstruction, prompt string) (string, error) {
	resp, err := c.post(ctx, "generateContent", nil, systemInstruction, []Message{{Role: RoleUser, Text: prompt}})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return payload.text(), nil
}

// Stream sends the conversation and calls onChunk with every text fragment
// as it arrives. Returning an error from onChunk aborts the stream.
func (c *Client) Stream(ctx context.Context, systemInstruction string, history []Message, onChunk func(string) error) error {
	resp, err := c.post(ctx, "streamGenerateContent", url.Values{"alt": {"sse"}}, systemInstruction, history)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		var chunk generateResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.Warn("skipping malformed stream chunk", zap.Error(err))
			continue
		}
		if text := chunk.text(); text != "" {
			if err := onChunk(text); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, method string, query url.Values, systemInstruction string, history []Message) (*http.Response, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	body := generateRequest{
		GenerationConfig: generationConfig{Temperature: defaultTemperature, MaxOutputTokens: defaultMaxTokens},
	}
	if systemInstruction != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: systemInstruction}}}
	}
	for _, msg := range history {
		role := msg.Role
		if role != RoleModel {
			role = RoleUser
		}
		body.Contents = append(body.Contents, content{Role: role, Parts: []part{{Text: msg.Text}}})
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("key", c.apiKey)
	endpoint := fmt.Sprintf("%s/models/%s:%s?%s", c.baseURL, c.model, method, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genai %s: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(method, resp)
	}
	return resp, nil
}

func decodeError(method string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var apiErr apiError
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("genai %s returned status %d: %s", method, resp.StatusCode, apiErr.Error.Message)
	}
	return fmt.Errorf("genai %s returned status %d", method, resp.StatusCode)
}
