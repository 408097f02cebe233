package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/nextlevelbuilder/visionvoice/internal/tracing"
)

// GeminiConfig configures the Gemini API backend.
type GeminiConfig struct {
	APIKey     string
	APIBase    string // empty = Google's default endpoint
	Model      string
	TimeoutMs  int
	HTTPClient *http.Client
}

// GeminiProvider sends the prompt and the image as inline data to
// models/{model}:generateContent.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates the provider.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.APIBase},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: cfg.Model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Query(ctx context.Context, img *Image, prompt string) (answer string, err error) {
	queryID := uuid.NewString()
	ctx, span := tracing.Start(ctx, "vision.query",
		attribute.String("vision.provider", p.Name()),
		attribute.String("vision.model", p.model),
		attribute.String("vision.query_id", queryID),
	)
	defer func() { tracing.End(span, err) }()

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType}},
		},
	}}

	slog.Debug("vision query", "query_id", queryID, "model", p.model, "image_bytes", len(img.Data))
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			slog.Warn("vision query rejected", "query_id", queryID, "status", apiErr.Code)
			return "", &RemoteError{StatusCode: apiErr.Code, Body: apiErr.Message}
		}
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrNoChoices
	}
	return resp.Text(), nil
}
