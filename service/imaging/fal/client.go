// Package fal implements the image synthesizer backed by the fal.ai
// synchronous inference API.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/service/imaging"
)

const (
	// DefaultBaseURL is the synchronous fal.ai inference endpoint.
	DefaultBaseURL = "https://fal.run"
	// DefaultModel is the image model used for preview synthesis.
	DefaultModel = "fal-ai/flux-pro"
)

// Client renders image prompts through fal.ai and materializes the result
// as a local temp file.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	tempDir string
	client  *http.Client
}

var _ imaging.Synthesizer = (*Client)(nil)

// Option customizes the client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint; tests point it at a local server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithModel overrides the image model identifier.
func WithModel(name string) Option {
	return func(c *Client) { c.model = name }
}

// WithTempDir places synthesized preview files under dir instead of the
// system temp directory.
func WithTempDir(dir string) Option {
	return func(c *Client) { c.tempDir = dir }
}

// WithHTTPClient substitutes the HTTP client used for API and download
// requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// New creates a fal.ai-backed synthesizer.
func New(apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("fal api key is required")
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

type renderRequest struct {
	Prompt string `json:"prompt"`
}

type renderResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// Render submits the prompt, downloads the first returned image and writes
// it to a temp preview file whose path is returned.
func (c *Client) Render(ctx context.Context, imagePrompt string) (string, error) {
	imageURL, err := c.submit(ctx, imagePrompt)
	if err != nil {
		return "", err
	}
	return c.download(ctx, imageURL)
}

func (c *Client) submit(ctx context.Context, imagePrompt string) (string, error) {
	body, err := json.Marshal(renderRequest{Prompt: imagePrompt})
	if err != nil {
		return "", fmt.Errorf("failed to encode render request: %v: %w", err, model.ErrImageFailed)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+c.model, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build render request: %v: %w", err, model.ErrImageFailed)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("render request failed: %v: %w", err, model.ErrImageFailed)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("render request returned %d: %s: %w", resp.StatusCode, detail, model.ErrImageFailed)
	}
	var rendered renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&rendered); err != nil {
		return "", fmt.Errorf("failed to decode render response: %v: %w", err, model.ErrImageFailed)
	}
	if len(rendered.Images) == 0 || rendered.Images[0].URL == "" {
		return "", fmt.Errorf("render response has no images: %w", model.ErrImageFailed)
	}
	return rendered.Images[0].URL, nil
}

func (c *Client) download(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %v: %w", err, model.ErrImageFailed)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image download failed: %v: %w", err, model.ErrImageFailed)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download returned %d: %w", resp.StatusCode, model.ErrImageFailed)
	}

	out, err := os.CreateTemp(c.tempDir, "preview_*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create preview file: %v: %w", err, model.ErrImageFailed)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("failed to write preview file: %v: %w", err, model.ErrImageFailed)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("failed to close preview file: %v: %w", err, model.ErrImageFailed)
	}
	return out.Name(), nil
}
