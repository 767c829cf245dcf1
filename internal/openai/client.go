// Package openai provides the image-generation client and the downloader
// that fetches the transient URLs it returns.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/specter-content/internal/core"
)

const (
	apiImageGenerations = "/v1/images/generations"

	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
	contentTypeJSON     = "application/json"
	bearerPrefix        = "Bearer "
)

// Default values.
const (
	DefaultBaseURL    = "https://api.openai.com"
	DefaultModel      = "dall-e-3"
	DefaultSize       = "1024x1024"
	DefaultQuality    = "standard"
	maxErrorBodyBytes = 4096
)

// Static errors.
var (
	ErrPromptEmpty   = errors.New("prompt cannot be empty")
	ErrAPIKeyEmpty   = errors.New("api key cannot be empty")
	ErrNoImage       = errors.New("response contained no image url")
	ErrServiceStatus = errors.New("image service returned non-OK status")
)

const (
	errFmtServiceStatus = "%w: %s: %s"
	errFmtSendRequest   = "failed to send request to image service at %s: %w"
	errFmtDecode        = "failed to decode image response: %w"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Size    string
	Quality string
	Timeout time.Duration
}

// Client requests images from the OpenAI images API. It implements
// core.ImageSynthesizer.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	size       string
	quality    string
}

var _ core.ImageSynthesizer = (*Client)(nil)

type imageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
	N       int    `json:"n"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewClient creates a client, filling unset options with the defaults.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, ErrAPIKeyEmpty
	}

	client := &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		model:      opts.Model,
		size:       opts.Size,
		quality:    opts.Quality,
	}

	if client.baseURL == "" {
		client.baseURL = DefaultBaseURL
	}

	if client.model == "" {
		client.model = DefaultModel
	}

	if client.size == "" {
		client.size = DefaultSize
	}

	if client.quality == "" {
		client.quality = DefaultQuality
	}

	return client, nil
}

// GenerateImage requests one image for prompt and returns its download URL.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrPromptEmpty
	}

	body, err := json.Marshal(imageRequest{
		Model:   c.model,
		Prompt:  prompt,
		Size:    c.size,
		Quality: c.quality,
		N:       1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+apiImageGenerations, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerAuthorization, bearerPrefix+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf(errFmtSendRequest, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", parseErrorResponse(resp)
	}

	var payload imageResponse

	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return "", fmt.Errorf(errFmtDecode, err)
	}

	if len(payload.Data) == 0 || payload.Data[0].URL == "" {
		return "", ErrNoImage
	}

	return payload.Data[0].URL, nil
}

func parseErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var parsed apiError

	err := json.Unmarshal(raw, &parsed)
	if err == nil && parsed.Error.Message != "" {
		return fmt.Errorf(errFmtServiceStatus, ErrServiceStatus, resp.Status, parsed.Error.Message)
	}

	return fmt.Errorf(errFmtServiceStatus, ErrServiceStatus, resp.Status, strings.TrimSpace(string(raw)))
}
