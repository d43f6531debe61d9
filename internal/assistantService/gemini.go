package assistant

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"farmerconnect/internal/marketerrors"

	"google.golang.org/genai"
)

// GeminiConfig selects the endpoint, model and credentials of the client
type GeminiConfig struct {
	BaseURL    string
	APIVersion string
	Model      string
	APIKey     string
	Timeout    time.Duration
}

// GeminiClient calls generateContent through the genai SDK. Without an API
// key no SDK client is created and every call reports the assistant as
// unavailable.
type GeminiClient struct {
	model  string
	apiKey string
	models *genai.Models
}

// NewGeminiClient creates a client whose calls are bounded by cfg.Timeout
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	c := &GeminiClient{model: cfg.Model, apiKey: cfg.APIKey}
	if cfg.APIKey == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %s", redact(err.Error(), cfg.APIKey))
	}
	c.models = client.Models
	return c, nil
}

// Configured reports whether an API key is set
func (c *GeminiClient) Configured() bool {
	return c != nil && c.models != nil
}

// Generate sends contents with the given system instruction and returns the
// upstream reply
func (c *GeminiClient) Generate(ctx context.Context, system string, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	if !c.Configured() {
		return nil, marketerrors.ErrAssistantUnavailable
	}

	var cfg *genai.GenerateContentConfig
	if system != "" {
		cfg = &genai.GenerateContentConfig{SystemInstruction: genai.NewContentFromText(system, genai.RoleUser)}
	}
	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", marketerrors.ErrUpstream, redact(err.Error(), c.apiKey))
	}
	return resp, nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "REDACTED")
}
