package aitier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxPromptChars bounds the document text sent to the model
const maxPromptChars = 24000

// Config configures the OpenAI-backed extractor
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float32
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerMinute int
}

// OpenAIExtractor extracts document fields with an OpenAI chat model in JSON mode
type OpenAIExtractor struct {
	client  *openai.Client
	cfg     Config
	schema  *jsonschema.Schema
	limiter *rate.Limiter
	retry   *RetryStrategy
	logger  *zap.Logger
}

// NewOpenAIExtractor creates an extractor. It returns ErrAITierDisabled when
// no API key is configured.
func NewOpenAIExtractor(cfg Config, logger *zap.Logger) (*OpenAIExtractor, error) {
	if cfg.APIKey == "" {
		return nil, ErrAITierDisabled
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 20
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	schema, err := compileSchema(extractionSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile extraction schema: %w", err)
	}

	return &OpenAIExtractor{
		client:  openai.NewClientWithConfig(clientCfg),
		cfg:     cfg,
		schema:  schema,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		retry:   NewRetryStrategy(),
		logger:  logger,
	}, nil
}

// truncateText cuts text to at most limit bytes without splitting a rune
func truncateText(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	n := limit
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

// SetRetryStrategy replaces the default retry strategy
func (e *OpenAIExtractor) SetRetryStrategy(strategy *RetryStrategy) {
	e.retry = strategy
}

// Extract sends the document text to the model and validates the reply
func (e *OpenAIExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty document text", ErrInvalidResponse)
	}
	text = truncateText(text, maxPromptChars)

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(text),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	var resp openai.ChatCompletionResponse
	attempt := 0
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		var callErr error
		resp, callErr = e.client.CreateChatCompletion(ctx, req)
		if callErr != nil && e.retry.IsRetryable(callErr) {
			e.logger.Warn("OpenAI call failed, retrying",
				zap.Int("attempt", attempt),
				zap.Error(callErr))
		}
		return callErr
	})
	if err != nil {
		e.logger.Error("OpenAI extraction call failed", zap.Error(err))
		return nil, fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrInvalidResponse)
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := validateJSON(e.schema, []byte(content)); err != nil {
		e.logger.Warn("AI extraction failed schema validation", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	var result Extraction
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if !result.Usable() {
		return nil, fmt.Errorf("%w: missing identifier, total and vendor", ErrInvalidResponse)
	}

	e.logger.Info("AI extraction completed",
		zap.String("model", e.cfg.Model),
		zap.String("invoice_number", result.InvoiceNumber),
		zap.Int("line_items", len(result.LineItems)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &result, nil
}

const systemPrompt = "You extract structured data from purchase orders and invoices. " +
	"Respond only with a JSON object. Use null for anything not present in the text."

func buildUserPrompt(text string) string {
	return fmt.Sprintf(`Extract the document fields from the text below.

Rules:
- Amounts are plain numbers without currency symbols or thousands separators.
- Dates use YYYY-MM-DD.
- line_items lists every itemized row in document order.
- confidence is your own estimate between 0 and 1.

The JSON must match this schema:
%s

Document text:
"""
%s
"""`, schemaText(), text)
}

// stripCodeFence removes a markdown fence some models wrap JSON in
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
