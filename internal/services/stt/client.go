package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	defaultEndpoint    = "https://api.elevenlabs.io/v1/speech-to-text"
	defaultModel       = "scribe_v1"
	defaultLanguage    = "en"
	defaultHTTPTimeout = 30 * time.Second
)

// ErrUnavailable reports a refiner without credentials.
var ErrUnavailable = errors.New("stt: refinement unavailable")

// Config captures the speech-to-text settings.
type Config struct {
	APIKey         string
	Endpoint       string
	Model          string
	Language       string
	TimeoutSeconds int
}

// Client uploads clips for transcription.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient constructs a speech-to-text client.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Endpoint = strings.TrimSpace(cfg.Endpoint); cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Model = strings.TrimSpace(cfg.Model); cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Language = strings.TrimSpace(cfg.Language); cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if httpClient == nil {
		timeout := defaultHTTPTimeout
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// Transcribe uploads audio and returns the transcript text. An empty clip
// yields an empty transcript without a request.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if !c.Configured() {
		return "", ErrUnavailable
	}
	if len(audio) == 0 {
		return "", nil
	}

	body, contentType, err := c.encodeForm(audio, mimeType)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("stt request: new request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt request: http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("stt request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("stt request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("stt request: decode response: %w", err)
	}
	return strings.TrimSpace(parsed.Text), nil
}

func (c *Client) encodeForm(audio []byte, mimeType string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	form := multipart.NewWriter(buf)

	if err := form.WriteField("model_id", c.cfg.Model); err != nil {
		return nil, "", fmt.Errorf("stt form: %w", err)
	}

	if mimeType = strings.TrimSpace(mimeType); mimeType == "" {
		mimeType = "audio/webm"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+clipFilename(mimeType)+`"`)
	header.Set("Content-Type", mimeType)
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("stt form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("stt form: %w", err)
	}

	if err := form.WriteField("language_code", c.cfg.Language); err != nil {
		return nil, "", fmt.Errorf("stt form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("stt form: %w", err)
	}
	return buf, form.FormDataContentType(), nil
}

func clipFilename(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	switch strings.TrimSpace(base) {
	case "audio/ogg":
		return "recording.ogg"
	case "audio/wav", "audio/x-wav":
		return "recording.wav"
	case "audio/mp4":
		return "recording.m4a"
	default:
		return "recording.webm"
	}
}
