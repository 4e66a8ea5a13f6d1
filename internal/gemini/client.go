// Package gemini is the single network boundary: it sends the two photos and
// the fixed prompt to the Gemini image model and returns the composed image.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash-image"

// Prompt is sent with every request and is not user configurable.
const Prompt = "From the two provided images, create a new, realistic photograph. " +
	"The first image is of a person as a child, and the second is of the same person as an adult. " +
	"The new image should depict the adult person warmly hugging their younger, child self. " +
	"Both individuals should be clearly visible and interacting naturally in a single, cohesive scene. " +
	"The style should be photorealistic and heartwarming."

const modalityImage = "IMAGE"

var (
	ErrMissingAPIKey = errors.New("gemini: api key is required")
	ErrNoImage       = errors.New("gemini: no image produced")
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// Timeout bounds a single call. Zero means no limit.
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	models  *genai.Models
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		models:  client.Models,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		log:     log.With().Str("component", "gemini").Str("model", cfg.Model).Logger(),
	}, nil
}

// Call makes one generateContent request with both photos inline and returns
// the bytes of the first part of the first candidate. A response without
// inline data there fails with ErrNoImage. Nothing is retried.
func (c *Client) Call(ctx context.Context, childPayload, childType, adultPayload, adultType string) ([]byte, error) {
	child, err := base64.StdEncoding.DecodeString(childPayload)
	if err != nil {
		return nil, fmt.Errorf("decode child payload: %w", err)
	}
	adult, err := base64.StdEncoding.DecodeString(adultPayload)
	if err != nil {
		return nil, fmt.Errorf("decode adult payload: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(child, childType),
			genai.NewPartFromBytes(adult, adultType),
			genai.NewPartFromText(Prompt),
		}, genai.RoleUser),
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{modalityImage},
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	data, err := firstImage(resp)
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Dur("latency", time.Since(start)).
		Int("bytes", len(data)).
		Msg("image generated")

	return data, nil
}

func firstImage(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, ErrNoImage
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil || len(cand.Content.Parts) == 0 {
		return nil, ErrNoImage
	}
	part := cand.Content.Parts[0]
	if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
		return nil, ErrNoImage
	}
	return part.InlineData.Data, nil
}
