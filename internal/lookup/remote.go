package lookup

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

	"hanzireader/internal/config"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	maxErrorBodyBytes  = 512
	wordInfoPath       = "/api/word-info"
	textToSpeechPath   = "/api/text-to-speech"
)

// WordInfo is the dictionary payload for a word or phrase.
type WordInfo struct {
	Word        string   `json:"word"`
	Pinyin      string   `json:"pinyin"`
	Segments    []string `json:"segments"`
	Translation string   `json:"translation,omitempty"`
}

// Remote fetches dictionary data and pronunciation audio.
type Remote interface {
	WordInfo(ctx context.Context, text string) (WordInfo, error)
	Speech(ctx context.Context, text string) ([]byte, error)
}

// HTTPRemote talks to the reader's word-info and text-to-speech endpoints.
type HTTPRemote struct {
	baseURL    string
	httpClient *http.Client
}

// RemoteOption customizes an HTTPRemote.
type RemoteOption func(*HTTPRemote)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(r *HTTPRemote) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// NewHTTPRemote constructs a client rooted at baseURL.
func NewHTTPRemote(baseURL string, timeout time.Duration, opts ...RemoteOption) *HTTPRemote {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	r := &HTTPRemote{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewHTTPRemoteFromConfig builds a remote from the [lookup] section.
func NewHTTPRemoteFromConfig(cfg *config.Config, opts ...RemoteOption) *HTTPRemote {
	return NewHTTPRemote(cfg.Lookup.BaseURL, cfg.LookupTimeout(), opts...)
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Endpoint, e.StatusCode, strings.TrimSpace(e.Body))
}

type wordInfoRequest struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

type wordInfoResponse struct {
	WordInfo *WordInfo `json:"wordInfo"`
	Error    string    `json:"error,omitempty"`
}

type speechRequest struct {
	Text string `json:"text"`
}

// WordInfo requests dictionary data for text.
func (r *HTTPRemote) WordInfo(ctx context.Context, text string) (WordInfo, error) {
	body, err := r.post(ctx, wordInfoPath, wordInfoRequest{Text: text, Type: "word"})
	if err != nil {
		return WordInfo{}, err
	}
	var decoded wordInfoResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return WordInfo{}, fmt.Errorf("word info: decode response: %w", err)
	}
	if decoded.WordInfo == nil {
		if decoded.Error != "" {
			return WordInfo{}, fmt.Errorf("word info: %s", decoded.Error)
		}
		return WordInfo{}, errors.New("word info: response missing wordInfo")
	}
	return *decoded.WordInfo, nil
}

// Speech requests synthesized audio for text.
func (r *HTTPRemote) Speech(ctx context.Context, text string) ([]byte, error) {
	body, err := r.post(ctx, textToSpeechPath, speechRequest{Text: text})
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, errors.New("text to speech: empty audio")
	}
	return body, nil
}

func (r *HTTPRemote) post(ctx context.Context, path string, payload any) ([]byte, error) {
	if r.baseURL == "" {
		return nil, fmt.Errorf("%s: base url required", path)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &StatusError{Endpoint: path, StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", path, err)
	}
	return body, nil
}
