package vision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nextlevelbuilder/visionvoice/internal/tracing"
)

const defaultOpenAIBase = "https://openrouter.ai/api/v1/"

// OpenAIConfig configures an OpenAI-compatible chat completions backend
// (OpenRouter by default).
type OpenAIConfig struct {
	APIKey     string
	APIBase    string
	Model      string
	TimeoutMs  int // 0 = no timeout
	HTTPClient *http.Client
}

// OpenAIProvider sends one user message with a text part and an image
// part to /chat/completions.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider creates the provider. The SDK's automatic retries are
// disabled: a failed request is reported, never repeated.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	base := cfg.APIBase
	if base == "" {
		base = defaultOpenAIBase
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond}
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(base),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)
	return &OpenAIProvider{client: client, model: cfg.Model}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Query returns choices[0].message.content. Non-2xx answers become
// *RemoteError carrying the raw body.
func (p *OpenAIProvider) Query(ctx context.Context, img *Image, prompt string) (answer string, err error) {
	queryID := uuid.NewString()
	ctx, span := tracing.Start(ctx, "vision.query",
		attribute.String("vision.provider", p.Name()),
		attribute.String("vision.model", p.model),
		attribute.String("vision.query_id", queryID),
	)
	defer func() { tracing.End(span, err) }()

	msg := openai.ChatCompletionUserMessageParam{
		Content: openai.ChatCompletionUserMessageParamContentUnion{
			OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: img.DataURI(),
				}),
			},
		},
	}
	params := openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{{OfUser: &msg}},
	}

	slog.Debug("vision query", "query_id", queryID, "model", p.model, "image_bytes", len(img.Data))
	start := time.Now()

	var httpResp *http.Response
	resp, err := p.client.Chat.Completions.New(ctx, params, option.WithResponseInto(&httpResp))
	if err != nil {
		if httpResp != nil && httpResp.StatusCode >= 400 {
			body, _ := io.ReadAll(httpResp.Body)
			slog.Warn("vision query rejected", "query_id", queryID, "status", httpResp.StatusCode)
			return "", &RemoteError{StatusCode: httpResp.StatusCode, Body: string(body)}
		}
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	slog.Debug("vision answer", "query_id", queryID, "duration", time.Since(start), "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
