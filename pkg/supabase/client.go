// Package supabase is a small REST client for Supabase Storage and PostgREST.
package supabase

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
)

var (
	ErrCredentialMissing = errors.New("supabase: API key is missing")
	// ErrCredentialMalformed flags keys that can never authenticate a
	// project API call, such as personal access tokens (sbp_...).
	ErrCredentialMalformed = errors.New("supabase: API key has the wrong shape")
)

type Client struct {
	BaseURL string
	Key     string
	HTTP    *http.Client
}

func NewClient(baseURL, key string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Key:     strings.TrimSpace(key),
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

// CheckCredential validates the key shape without calling the network.
func (c *Client) CheckCredential() error {
	return CheckKey(c.Key)
}

func CheckKey(key string) error {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return ErrCredentialMissing
	case strings.HasPrefix(key, "sbp_"):
		return fmt.Errorf("%w: personal access token (sbp_) used instead of the project anon key", ErrCredentialMalformed)
	case strings.HasPrefix(key, "sb_publishable_"), strings.HasPrefix(key, "sb_secret_"):
		return nil
	case strings.Count(key, ".") == 2 && strings.HasPrefix(key, "eyJ"):
		return nil
	default:
		return fmt.Errorf("%w: expected a JWT (eyJ...) or sb_publishable_/sb_secret_ key", ErrCredentialMalformed)
	}
}

// APIError is a non-2xx answer from Storage or PostgREST.
type APIError struct {
	Status int
	// Code is the PostgREST/Postgres code (42P01, PGRST301) or the Storage
	// "error" field.
	Code string
	// StatusCode is the status Storage reports in the body, which can differ
	// from the HTTP status (a 403 inside a 400).
	StatusCode string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (status %d, code %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Unauthorized covers rejected keys and JWT signature failures.
func (e *APIError) Unauthorized() bool {
	if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
		return true
	}
	if e.StatusCode == "401" || e.StatusCode == "403" {
		return true
	}
	if e.Code == "PGRST301" || e.Code == "PGRST302" || e.Code == "401" || e.Code == "403" {
		return true
	}
	msg := e.Message
	return strings.Contains(msg, "JWS") || strings.Contains(msg, "JWT") || strings.Contains(strings.ToLower(msg), "invalid api key")
}

type errorBody struct {
	Code       any    `json:"code"`
	StatusCode any    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	Msg        string `json:"msg"`
}

func parseError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.Code = stringOf(eb.Code)
		if apiErr.Code == "" {
			apiErr.Code = eb.Error
		}
		apiErr.Message = firstNonEmpty(eb.Message, eb.Msg, eb.Error)
		apiErr.StatusCode = stringOf(eb.StatusCode)
		if apiErr.Code == "" {
			apiErr.Code = apiErr.StatusCode
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func stringOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return fmt.Sprintf("%.0f", x)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Do sends an authenticated request to path (relative to BaseURL) and
// returns the response body, or an *APIError for non-2xx statuses.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, headers map[string]string) ([]byte, error) {
	if err := c.CheckCredential(); err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Key)
	req.Header.Set("apikey", c.Key)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// PublicObjectURL is the public URL of an object in a public bucket.
func (c *Client) PublicObjectURL(bucket, name string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.BaseURL, bucket, name)
}
