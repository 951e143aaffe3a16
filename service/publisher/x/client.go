// Package x implements the publisher for the X API: media upload through the
// v1.1 endpoint followed by post creation through v2, both signed with OAuth1
// user context.
package x

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/service/publisher"
)

const (
	// DefaultUploadURL is the v1.1 media upload endpoint.
	DefaultUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
	// DefaultCreateURL is the v2 post creation endpoint.
	DefaultCreateURL = "https://api.twitter.com/2/tweets"
)

// Credentials holds the OAuth1 user-context keys required to post.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

func (c *Credentials) validate() error {
	if c.ConsumerKey == "" || c.ConsumerSecret == "" || c.AccessToken == "" || c.AccessSecret == "" {
		return fmt.Errorf("x credentials are incomplete")
	}
	return nil
}

// Client posts text with an attached image to X.
type Client struct {
	uploadURL string
	createURL string
	client    *http.Client
}

var _ publisher.Service = (*Client)(nil)

// Option customizes the client.
type Option func(*Client)

// WithUploadURL overrides the media upload endpoint; tests point it at a
// local server.
func WithUploadURL(uploadURL string) Option {
	return func(c *Client) { c.uploadURL = uploadURL }
}

// WithCreateURL overrides the post creation endpoint.
func WithCreateURL(createURL string) Option {
	return func(c *Client) { c.createURL = createURL }
}

// New creates an X publisher with an OAuth1 signing HTTP client.
func New(creds Credentials, options ...Option) (*Client, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}
	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	httpClient := config.Client(oauth1.NoContext, token)
	httpClient.Timeout = 60 * time.Second

	c := &Client{
		uploadURL: DefaultUploadURL,
		createURL: DefaultCreateURL,
		client:    httpClient,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

type mediaUploadResponse struct {
	MediaIDString string `json:"media_id_string"`
}

type createPostMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type createPostRequest struct {
	Text  string           `json:"text"`
	Media *createPostMedia `json:"media,omitempty"`
}

type createPostResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// Publish uploads the image when present and creates the post referencing
// it. The returned id is the platform post id.
func (c *Client) Publish(ctx context.Context, text, imagePath string) (string, error) {
	var mediaID string
	if imagePath != "" {
		id, err := c.uploadMedia(ctx, imagePath)
		if err != nil {
			return "", err
		}
		mediaID = id
	}
	return c.createPost(ctx, text, mediaID)
}

func (c *Client) uploadMedia(ctx context.Context, imagePath string) (string, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to open media %s: %v: %w", imagePath, err, model.ErrPublishFailed)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", filepath.Base(imagePath))
	if err != nil {
		return "", fmt.Errorf("failed to build media form: %v: %w", err, model.ErrPublishFailed)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to read media %s: %v: %w", imagePath, err, model.ErrPublishFailed)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish media form: %v: %w", err, model.ErrPublishFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %v: %w", err, model.ErrPublishFailed)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("media upload failed: %v: %w", err, model.ErrPublishFailed)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("media upload returned %d: %s: %w", resp.StatusCode, detail, model.ErrPublishFailed)
	}

	var uploaded mediaUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %v: %w", err, model.ErrPublishFailed)
	}
	if uploaded.MediaIDString == "" {
		return "", fmt.Errorf("upload response has no media id: %w", model.ErrPublishFailed)
	}
	return uploaded.MediaIDString, nil
}

func (c *Client) createPost(ctx context.Context, text, mediaID string) (string, error) {
	payload := createPostRequest{Text: text}
	if mediaID != "" {
		payload.Media = &createPostMedia{MediaIDs: []string{mediaID}}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode post: %v: %w", err, model.ErrPublishFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.createURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build post request: %v: %w", err, model.ErrPublishFailed)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post creation failed: %v: %w", err, model.ErrPublishFailed)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("post creation returned %d: %s: %w", resp.StatusCode, detail, model.ErrPublishFailed)
	}

	var created createPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode post response: %v: %w", err, model.ErrPublishFailed)
	}
	if created.Data.ID == "" {
		return "", fmt.Errorf("post response has no id: %w", model.ErrPublishFailed)
	}
	return created.Data.ID, nil
}
