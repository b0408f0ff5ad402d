package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/mistral"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyResponse is returned when the model answers with no choices.
var ErrEmptyResponse = errors.New("vision model returned no choices")

// Config selects and tunes the vision model.
type Config struct {
	// Provider is one of "openai", "ollama", "anthropic" or "mistral".
	Provider string

	// Model is the provider's model name, e.g. "gpt-4o" or "llava".
	Model string

	// APIKey overrides the provider's usual environment variable.
	APIKey string

	// BaseURL points OpenAI-compatible or Ollama clients at another server.
	BaseURL string

	// MaxTokens bounds the answer length; 0 leaves the provider default.
	MaxTokens int

	// Temperature is passed through when set.
	Temperature *float64
}

// Client sends page images to a vision model and returns its raw answer.
type Client struct {
	provider    string
	model       string
	llm         llms.Model
	maxTokens   int
	temperature *float64
}

// New creates a client for the configured provider.
func New(cfg Config) (*Client, error) {
	logger := logrus.WithFields(logrus.Fields{
		"provider": cfg.Provider,
		"model":    cfg.Model,
	})
	logger.Info("Creating vision model client")

	var (
		llm llms.Model
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		llm, err = createOpenAIClient(cfg)
	case "ollama":
		llm, err = createOllamaClient(cfg)
	case "anthropic":
		llm, err = createAnthropicClient(cfg)
	case "mistral":
		llm, err = createMistralClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported vision provider: %q", cfg.Provider)
	}
	if err != nil {
		logger.WithError(err).Error("Failed to create vision model client")
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	c := NewWithModel(cfg.Provider, cfg.Model, llm)
	c.maxTokens = cfg.MaxTokens
	c.temperature = cfg.Temperature
	return c, nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(provider, model string, llm llms.Model) *Client {
	return &Client{
		provider: strings.ToLower(provider),
		model:    model,
		llm:      llm,
	}
}

// Provider returns the lower-cased provider name.
func (c *Client) Provider() string {
	return c.provider
}

// Detect sends the encoded image and the box-finding instruction for a
// width × height page and returns the model's text answer unparsed.
func (c *Client) Detect(ctx context.Context, image []byte, mimeType string, width, height int) (string, error) {
	logger := logrus.WithFields(logrus.Fields{
		"provider": c.provider,
		"model":    c.model,
		"width":    width,
		"height":   height,
	})

	var imagePart llms.ContentPart
	if c.provider == "openai" || c.provider == "mistral" {
		imagePart = llms.ImageURLPart("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image))
	} else {
		imagePart = llms.BinaryPart(mimeType, image)
	}

	var opts []llms.CallOption
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}
	if c.temperature != nil {
		opts = append(opts, llms.WithTemperature(*c.temperature))
	}

	logger.Debug("Sending request to vision model")
	resp, err := c.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{imagePart, llms.TextPart(BuildPrompt(width, height))},
		},
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", ErrEmptyResponse
	}

	text := resp.Choices[0].Content
	logger.WithField("content_length", len(text)).Debug("Received vision model answer")
	return text, nil
}

func apiKey(cfg Config, env string) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	return os.Getenv(env)
}

func createOpenAIClient(cfg Config) (llms.Model, error) {
	key := apiKey(cfg, "OPENAI_API_KEY")
	if key == "" {
		return nil, errors.New("OpenAI API key is not set")
	}
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(key),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(opts...)
}

func createOllamaClient(cfg Config) (llms.Model, error) {
	host := cfg.BaseURL
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	return ollama.New(
		ollama.WithModel(cfg.Model),
		ollama.WithServerURL(host),
	)
}

func createAnthropicClient(cfg Config) (llms.Model, error) {
	key := apiKey(cfg, "ANTHROPIC_API_KEY")
	if key == "" {
		return nil, errors.New("Anthropic API key is not set")
	}
	return anthropic.New(
		anthropic.WithModel(cfg.Model),
		anthropic.WithToken(key),
	)
}

func createMistralClient(cfg Config) (llms.Model, error) {
	key := apiKey(cfg, "MISTRAL_API_KEY")
	if key == "" {
		return nil, errors.New("Mistral API key is not set")
	}
	return mistral.New(
		mistral.WithModel(cfg.Model),
		mistral.WithAPIKey(key),
	)
}
