package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

var (
	// ErrEmptyText is returned when there is nothing to translate.
	ErrEmptyText = errors.New("translate: empty text")
	// ErrNoCandidates is returned when the provider answers with no translations.
	ErrNoCandidates = errors.New("translate: response has no translation candidates")
	// ErrMalformedResponse is returned when the provider body has the wrong shape.
	ErrMalformedResponse = errors.New("translate: malformed response")
)

// ProviderError is an error reported by the translation provider.
type ProviderError struct {
	Status  int
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("translate: provider error (status %d, code %d): %s", e.Status, e.Code, e.Message)
}

// Client talks to a Google Translate v2 compatible endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns a client for endpoint. The API key is sent as the "key"
// query parameter and is never validated. A nil httpClient uses a client
// with no timeout.
func NewClient(endpoint, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{endpoint: endpoint, apiKey: apiKey, httpClient: httpClient}
}

type translateRequest struct {
	Q      string `json:"q"`
	Target string `json:"target"`
}

// Result is one translation candidate. DetectedLanguage is the source
// language reported by the provider, empty when it reports none.
type Result struct {
	Text             string
	DetectedLanguage string
}

type translateResponse struct {
	Data *struct {
		Translations []*struct {
			TranslatedText         *string `json:"translatedText"`
			DetectedSourceLanguage string  `json:"detectedSourceLanguage"`
		} `json:"translations"`
	} `json:"data"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Translate issues exactly one request and returns the first candidate.
func (c *Client) Translate(ctx context.Context, text, target string) (Result, error) {
	if text == "" {
		return Result{}, ErrEmptyText
	}
	body, err := json.Marshal(translateRequest{Q: text, Target: target})
	if err != nil {
		return Result{}, err
	}

	endpoint, err := c.requestURL()
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read translate response: %w", err)
	}

	var decoded translateResponse
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode >= 300 {
		perr := &ProviderError{Status: resp.StatusCode, Message: resp.Status}
		if decodeErr == nil && decoded.Error != nil {
			perr.Code = decoded.Error.Code
			perr.Message = decoded.Error.Message
		}
		return Result{}, perr
	}
	if decodeErr != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	if decoded.Error != nil {
		return Result{}, &ProviderError{Status: resp.StatusCode, Code: decoded.Error.Code, Message: decoded.Error.Message}
	}
	if decoded.Data == nil {
		return Result{}, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}
	if len(decoded.Data.Translations) == 0 {
		return Result{}, ErrNoCandidates
	}
	first := decoded.Data.Translations[0]
	if first == nil || first.TranslatedText == nil {
		return Result{}, fmt.Errorf("%w: candidate has no translatedText", ErrMalformedResponse)
	}
	return Result{Text: *first.TranslatedText, DetectedLanguage: first.DetectedSourceLanguage}, nil
}

func (c *Client) requestURL() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse translate endpoint: %w", err)
	}
	if c.apiKey != "" {
		q := u.Query()
		q.Set("key", c.apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
