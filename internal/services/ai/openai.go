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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/remindbot/remindbot/internal/models"
	"github.com/remindbot/remindbot/internal/validation"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// timezoneMaxTokens bounds the resolver reply; an IANA identifier is short
	timezoneMaxTokens = 50
	// extractionMaxTokens bounds the extraction reply
	extractionMaxTokens = 150

	// unknownTimezoneReply is what the prompt instructs the model to return
	// for unresolvable place names
	unknownTimezoneReply = "Unknown"
)

// OpenAIOracle implements the Oracle interface against the OpenAI chat
// completions API.
type OpenAIOracle struct {
	client    openai.Client
	model     string
	limiter   *rate.Limiter
	tracer    trace.Tracer
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIOracle creates an oracle backed by OpenAI. limiter may be nil to
// disable client-side rate limiting.
func NewOpenAIOracle(apiKey, baseURL, model string, limiter *rate.Limiter, logger *zap.Logger, debugMode bool) *OpenAIOracle {
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

	return &OpenAIOracle{
		client:    client,
		model:     model,
		limiter:   limiter,
		tracer:    otel.Tracer("github.com/remindbot/remindbot/internal/services/ai"),
		logger:    logger,
		debugMode: debugMode,
	}
}

// ResolveTimezone asks the oracle for the IANA timezone of a place name.
// The reply is accepted only if it is a member of the IANA database;
// anything else, including transport failures, yields ErrUnknownTimezone.
func (o *OpenAIOracle) ResolveTimezone(ctx context.Context, city string, ref time.Time) (string, error) {
	ctx, span := o.tracer.Start(ctx, "oracle.resolve_timezone",
		trace.WithAttributes(attribute.String("ai.model", o.model)))
	defer span.End()

	systemPrompt := fmt.Sprintf(
		"You are an assistant that determines the timezone of a city. "+
			"The city name may contain typos or unusual spelling. "+
			"Current time: %s (format: YYYY-MM-DD HH:MM:SS). "+
			"The user entered the city name: %s. "+
			"Determine the most likely timezone of that city and return it as a plain string, for example 'Europe/Moscow'. "+
			"If the city cannot be found or does not exist, return '%s'.",
		ref.Format(models.TaskTimeLayout), city, unknownTimezoneReply,
	)

	content, err := o.complete(ctx, "resolve_timezone", systemPrompt, city, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(o.model),
		MaxTokens:   openai.Int(timezoneMaxTokens),
		Temperature: openai.Float(0.0),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnknownTimezone, err)
	}

	tz := stripQuotes(strings.TrimSpace(content))
	if tz == unknownTimezoneReply || !validation.IsTimezone(tz) {
		o.logger.Warn("oracle returned non-canonical timezone",
			zap.String("city", city),
			zap.String("reply", SanitizeResponse(tz, false)),
		)
		return "", ErrUnknownTimezone
	}

	return tz, nil
}

// ExtractTask asks the oracle for a task description and an absolute local
// timestamp. The reply must parse as a JSON object with non-empty "task" and
// "time" fields; anything else yields ErrMalformedReply.
func (o *OpenAIOracle) ExtractTask(ctx context.Context, message string, userNow time.Time) (*TaskExtraction, error) {
	ctx, span := o.tracer.Start(ctx, "oracle.extract_task",
		trace.WithAttributes(attribute.String("ai.model", o.model)))
	defer span.End()

	systemPrompt := fmt.Sprintf(
		"You are a reminder assistant. Extract the task description and the reminder time from the user's message. "+
			"The user's current time is %s (format: YYYY-MM-DD HH:MM:SS). "+
			"If the time is relative to the current time (for example 'in 5 minutes'), compute the absolute time. "+
			"Return the result as JSON: {\"task\": \"task description\", \"time\": \"time in YYYY-MM-DD HH:MM:SS format\"}.",
		userNow.Format(models.TaskTimeLayout),
	)

	content, err := o.complete(ctx, "extract_task", systemPrompt, message, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(o.model),
		MaxTokens:   openai.Int(extractionMaxTokens),
		Temperature: openai.Float(0.3),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	extraction, err := parseExtraction(content)
	if err != nil {
		o.logger.Warn("failed to parse extraction reply",
			zap.String("reply", SanitizeResponse(content, false)),
			zap.Error(err),
		)
		return nil, err
	}

	return extraction, nil
}

// complete sends one chat completion and returns the first choice's content.
func (o *OpenAIOracle) complete(ctx context.Context, operation, systemPrompt, userPrompt string, req openai.ChatCompletionNewParams) (string, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	req.Messages = []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(userPrompt),
	}

	if o.debugMode {
		o.logger.Debug("llm_api_request",
			zap.String("operation", operation),
			zap.String("model", o.model),
			zap.Int("prompt_length", len(systemPrompt)+len(userPrompt)),
			zap.String("prompt_preview", SanitizePrompt(userPrompt, true)),
		)
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		if o.debugMode {
			o.logger.Debug("llm_api_error",
				zap.String("operation", operation),
				zap.String("model", o.model),
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			if IsRateLimitError(apiErr) {
				o.logger.Warn("oracle rate limited",
					zap.String("operation", operation),
					zap.Durationp("retry_after", apiErr.RetryAfter),
				)
			}
			return "", fmt.Errorf("completion failed: %w", apiErr)
		}
		if IsRateLimitError(err) {
			o.logger.Warn("oracle rate limited", zap.String("operation", operation))
		}
		return "", fmt.Errorf("completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content

	if o.debugMode {
		o.logger.Debug("llm_api_response",
			zap.String("operation", operation),
			zap.String("model", o.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}

// parseExtraction parses the oracle's extraction reply and validates the
// required fields. Models occasionally wrap the JSON object in prose; the
// outermost braces are extracted before giving up.
func parseExtraction(content string) (*TaskExtraction, error) {
	var extraction TaskExtraction
	raw := content
	if err := json.Unmarshal([]byte(raw), &extraction); err != nil {
		if len(raw) > 0 && raw[0] != '{' {
			start := bytes.Index([]byte(raw), []byte("{"))
			end := bytes.LastIndex([]byte(raw), []byte("}"))
			if start != -1 && end != -1 && end > start {
				raw = raw[start : end+1]
			}
		}
		if err := json.Unmarshal([]byte(raw), &extraction); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
		}
	}

	if err := validation.Validate.Struct(&extraction); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	return &extraction, nil
}

// stripQuotes removes surrounding single or double quotes the model
// sometimes adds around identifiers.
func stripQuotes(s string) string {
	s = strings.Trim(s, `"`)
	s = strings.Trim(s, `'`)
	return strings.TrimSpace(s)
}
