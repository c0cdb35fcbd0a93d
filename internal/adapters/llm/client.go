// Package llm calls an OpenAI-compatible chat completions endpoint to
// produce destiny reports.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"lifekline-api/internal/pkg/bazi"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrNotConfigured = errors.New("llm api key is not configured")
	ErrEmptyContent  = errors.New("llm returned no content")
	ErrMissingChart  = errors.New("report is missing chartPoints")
)

// Config holds client settings
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
}

// Client generates reports through the chat completions API
type Client struct {
	cfg Config
}

// NewClient creates a new client
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg}
}

// Available reports whether an API key is configured
func (c *Client) Available() bool {
	return c.cfg.APIKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate produces a report of the given kind and returns the parsed JSON object
func (c *Client) Generate(ctx context.Context, kind bazi.Kind, info *bazi.Info) (map[string]interface{}, error) {
	if !c.Available() {
		return nil, ErrNotConfigured
	}

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: bazi.SystemInstruction(kind)},
			{Role: "user", Content: bazi.UserPrompt(info)},
		},
		Temperature: 0.7,
		MaxTokens:   c.cfg.MaxTokens,
	}

	log.Printf("🤖 Calling %s for %s report", c.cfg.Model, kind)

	agent := fiber.Post(c.cfg.BaseURL + "/chat/completions")
	agent.Set(fiber.HeaderAuthorization, "Bearer "+c.cfg.APIKey)
	agent.JSON(req)
	agent.Timeout(timeout)
	if err := agent.Parse(); err != nil {
		return nil, fmt.Errorf("build llm request: %w", err)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("llm request failed: %w", errors.Join(errs...))
	}
	if status != fiber.StatusOK {
		return nil, fmt.Errorf("llm api error: %d - %s", status, truncate(string(body), 300))
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode llm response: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyContent
	}

	return ParseReport(kind, resp.Choices[0].Message.Content)
}

var fenced = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON pulls the JSON object out of model output that may be
// wrapped in a markdown fence or surrounded by prose
func ExtractJSON(content string) string {
	if m := fenced.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end > start {
		return content[start : end+1]
	}
	return content
}

// ParseReport decodes model output; main reports must carry a chartPoints array
func ParseReport(kind bazi.Kind, content string) (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(ExtractJSON(content)), &data); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}

	if kind == bazi.KindMain {
		points, ok := data["chartPoints"].([]interface{})
		if !ok {
			return nil, ErrMissingChart
		}
		log.Printf("✅ Report generated with %d chart points", len(points))
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
