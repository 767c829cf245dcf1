// Package elevenlabs provides a client for the ElevenLabs text-to-speech API.
//
// The client streams synthesized audio straight into a caller-supplied
// writer and lists the voices available to the account.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/book-expert/specter-content/internal/core"
)

// API endpoints and paths.
const (
	apiTextToSpeech = "/v1/text-to-speech/"
	apiVoices       = "/v1/voices"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	headerAPIKey      = "xi-api-key"
	contentTypeJSON   = "application/json"
	contentTypeMPEG   = "audio/mpeg"
	queryOutputFormat = "output_format"
)

// Default values.
const (
	DefaultBaseURL      = "https://api.elevenlabs.io"
	DefaultModelID      = "eleven_multilingual_v2"
	DefaultOutputFormat = "mp3_44100_128"
	maxErrorBodyBytes   = 4096
)

// Static errors.
var (
	ErrTextEmpty     = errors.New("text cannot be empty")
	ErrVoiceIDEmpty  = errors.New("voice id cannot be empty")
	ErrAPIKeyEmpty   = errors.New("api key cannot be empty")
	ErrEmptyAudio    = errors.New("received empty audio data")
	ErrServiceStatus = errors.New("speech service returned non-OK status")
)

const (
	errFmtServiceStatus   = "%w: %s: %s"
	errFmtServiceDetail   = "%w: %s: %s (%s)"
	errFmtSendRequest     = "failed to send request to speech service at %s: %w"
	errFmtStreamAudio     = "failed to stream audio: %w"
	errFmtDecodeVoiceList = "failed to decode voice list: %w"
)

// Options configures a Client.
type Options struct {
	BaseURL      string
	APIKey       string
	ModelID      string
	OutputFormat string
	Timeout      time.Duration
}

// Client talks to the ElevenLabs HTTP API. It implements core.SpeechSynthesizer.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	modelID      string
	outputFormat string
}

var _ core.SpeechSynthesizer = (*Client)(nil)

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// speechRequest is the JSON body of a text-to-speech call.
type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceEntry struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

type voicesResponse struct {
	Voices []voiceEntry `json:"voices"`
}

// errorResponse is the structured error body the API returns. The detail
// is either a plain string or an object with a status and a message.
type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

type errorDetail struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewClient creates a client. Empty options fall back to the public API
// defaults.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, ErrAPIKeyEmpty
	}

	client := &Client{
		httpClient:   &http.Client{Timeout: opts.Timeout},
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		modelID:      opts.ModelID,
		outputFormat: opts.OutputFormat,
	}

	if client.baseURL == "" {
		client.baseURL = DefaultBaseURL
	}

	if client.modelID == "" {
		client.modelID = DefaultModelID
	}

	if client.outputFormat == "" {
		client.outputFormat = DefaultOutputFormat
	}

	return client, nil
}

// Synthesize converts text to speech with the given voice and streams the
// response body into dst. Nothing is written to dst unless the service
// answered 200.
func (c *Client) Synthesize(
	ctx context.Context,
	dst io.Writer,
	text, voiceID string,
	settings core.VoiceSettings,
) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, ErrTextEmpty
	}

	if voiceID == "" {
		return 0, ErrVoiceIDEmpty
	}

	body, err := json.Marshal(speechRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: voiceSettings{
			Stability:       settings.Stability,
			SimilarityBoost: settings.Similarity,
			Style:           0,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + apiTextToSpeech + url.PathEscape(voiceID) +
		"?" + url.Values{queryOutputFormat: {c.outputFormat}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerAccept, contentTypeMPEG)
	req.Header.Set(headerAPIKey, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf(errFmtSendRequest, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, parseErrorResponse(resp)
	}

	written, err := io.Copy(dst, resp.Body)
	if err != nil {
		return written, fmt.Errorf(errFmtStreamAudio, err)
	}

	if written == 0 {
		return 0, ErrEmptyAudio
	}

	return written, nil
}

// ListVoices returns the voices available to the account.
func (c *Client) ListVoices(ctx context.Context) ([]core.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiVoices, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create voice list request: %w", err)
	}

	req.Header.Set(headerAccept, contentTypeJSON)
	req.Header.Set(headerAPIKey, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf(errFmtSendRequest, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	var payload voicesResponse

	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return nil, fmt.Errorf(errFmtDecodeVoiceList, err)
	}

	voices := make([]core.Voice, 0, len(payload.Voices))
	for _, entry := range payload.Voices {
		voices = append(voices, core.Voice{
			ID:       entry.VoiceID,
			Name:     entry.Name,
			Category: entry.Category,
			Labels:   entry.Labels,
		})
	}

	return voices, nil
}

// parseErrorResponse decodes a structured error when the body has one and
// falls back to the raw body otherwise.
func parseErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var errResp errorResponse

	err := json.Unmarshal(raw, &errResp)
	if err == nil && len(errResp.Detail) > 0 {
		var detail errorDetail

		if json.Unmarshal(errResp.Detail, &detail) == nil && detail.Message != "" {
			return fmt.Errorf(errFmtServiceDetail, ErrServiceStatus, resp.Status, detail.Message, detail.Status)
		}

		var message string
		if json.Unmarshal(errResp.Detail, &message) == nil {
			return fmt.Errorf(errFmtServiceStatus, ErrServiceStatus, resp.Status, message)
		}
	}

	return fmt.Errorf(errFmtServiceStatus, ErrServiceStatus, resp.Status, strings.TrimSpace(string(raw)))
}
