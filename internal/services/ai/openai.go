package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/billminder/billminder/internal/models"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second
)

// OpenAIProvider implements Provider using OpenAI's chat completion API.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

var _ Provider = (*OpenAIProvider)(nil)

// SuggestCategory asks the model to pick one of the known spending
// categories for the task title. The model answers JSON only.
func (p *OpenAIProvider) SuggestCategory(ctx context.Context, title, subtitle string) (*CategorySuggestion, error) {
	prompt := buildSuggestionPrompt(title, subtitle)

	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a classifier that assigns household bills and expenses to spending categories. Respond with valid JSON only."),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	if p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "suggest_category"),
			zap.String("model", p.model),
			zap.Int("prompt_length", len(prompt)),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "suggest_category"),
				zap.String("model", p.model),
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrBadResponse)
	}
	content := resp.Choices[0].Message.Content

	if p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "suggest_category"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return parseSuggestionResponse(content)
}

// parseSuggestionResponse validates the model's JSON answer. Unknown
// categories fold into "other" rather than failing the job.
func parseSuggestionResponse(content string) (*CategorySuggestion, error) {
	var answer struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
	}

	raw := content
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		// Some models wrap JSON in prose despite instructions.
		start := bytes.Index([]byte(raw), []byte("{"))
		end := bytes.LastIndex([]byte(raw), []byte("}"))
		if start != -1 && end > start {
			raw = raw[start : end+1]
		}
		if err := json.Unmarshal([]byte(raw), &answer); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
	}

	category := models.Category(strings.ToLower(strings.TrimSpace(answer.Category)))
	known := false
	for _, c := range models.Categories() {
		if c == category {
			known = true
			break
		}
	}
	if !known {
		category = models.CategoryOther
	}

	if answer.Confidence < 0 {
		answer.Confidence = 0
	}
	if answer.Confidence > 1 {
		answer.Confidence = 1
	}

	return &CategorySuggestion{Category: category, Confidence: answer.Confidence}, nil
}

func buildSuggestionPrompt(title, subtitle string) string {
	var sb strings.Builder
	sb.WriteString("Assign this item to one spending category.\n\n")
	sb.WriteString(fmt.Sprintf("Item: %q\n", title))
	if subtitle != "" {
		sb.WriteString(fmt.Sprintf("Details: %q\n", subtitle))
	}

	sb.WriteString("\nCategories:")
	for _, c := range models.Categories() {
		sb.WriteString("\n- ")
		sb.WriteString(string(c))
	}

	sb.WriteString(`

Respond with a JSON object in this format:
{
  "category": "<one of the categories above>",
  "confidence": <number between 0 and 1>
}

Use "other" when nothing fits. Return only valid JSON.`)
	return sb.String()
}
