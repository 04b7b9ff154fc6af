// Package extraction turns a recording into a candidate Profile using a
// multimodal model.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"go-interview-intake/internal/domain"
	"go-interview-intake/pkg/apperror"
	"go-interview-intake/pkg/logger"
)

var (
	// ErrCredentialMissing means no API key is configured.
	ErrCredentialMissing = errors.New("extraction: API key is missing")
	// ErrCredentialMalformed means the configured key is not a Gemini API key.
	ErrCredentialMalformed = errors.New("extraction: API key is malformed")
	// ErrCredentialRejected means the service refused a well-formed key.
	ErrCredentialRejected = errors.New("extraction: API key was rejected")
)

// Gemini API keys are "AIza" followed by 35 URL-safe characters.
var keyShape = regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35}$`)

// Instruction is sent alongside the recording.
const Instruction = "You are an expert HR recruiter. Analyze this video interview. " +
	"Provide a transcription, extract skills, and create a professional summary for a CV. " +
	"Return the response in JSON format."

var fence = regexp.MustCompile("```(?:json|JSON)?")

type Client struct {
	model     Model
	apiKey    string
	validator *Validator
	log       *slog.Logger
}

func NewClient(model Model, apiKey string, log *slog.Logger) (*Client, error) {
	v, err := NewValidator(ProfileSchema)
	if err != nil {
		return nil, err
	}
	return &Client{model: model, apiKey: strings.TrimSpace(apiKey), validator: v, log: logger.Or(log)}, nil
}

// Analyze returns a complete Profile or an error; never a partial Profile.
func (c *Client) Analyze(ctx context.Context, rec domain.Recording) (*domain.Profile, error) {
	if err := c.checkCredential(); err != nil {
		return nil, err
	}
	if rec.Empty() {
		return nil, apperror.Analysis("Failed to analyze video: recording is empty", nil)
	}

	text, err := c.model.Generate(ctx, Request{
		Data:        rec.Data,
		MediaType:   rec.Type(),
		Instruction: Instruction,
		Schema:      ProfileSchema,
	})
	if err != nil {
		if errors.Is(err, ErrCredentialMissing) {
			return nil, apperror.Configuration("API Key is missing. Please check your environment configuration.", err)
		}
		if errors.Is(err, ErrCredentialRejected) || credentialRejected(err) {
			c.log.Warn("extraction: API key rejected", "error", err)
			return nil, apperror.Auth("Authentication failed: the Gemini API key was rejected.", errors.Join(ErrCredentialRejected, err))
		}
		c.log.Warn("extraction: model call failed", "error", err)
		return nil, apperror.Analysis("Failed to analyze video: "+err.Error(), err)
	}

	profile, err := c.parse(text)
	if err != nil {
		c.log.Warn("extraction: unusable response", "error", err, "length", len(text))
		return nil, apperror.Analysis("Failed to analyze video: "+err.Error(), err)
	}
	return profile, nil
}

func (c *Client) checkCredential() error {
	if c.apiKey == "" {
		return apperror.Configuration("API Key is missing. Please check your environment configuration.", ErrCredentialMissing)
	}
	if !keyShape.MatchString(c.apiKey) {
		return apperror.Configuration("API Key is malformed. Expected a Gemini API key starting with 'AIza'.", ErrCredentialMalformed)
	}
	return nil
}

func (c *Client) parse(text string) (*domain.Profile, error) {
	body := Clean(text)
	if body == "" {
		return nil, errors.New("no response from AI")
	}
	if !json.Valid([]byte(body)) {
		obj, ok := OutermostObject(body)
		if !ok {
			return nil, errors.New("response is not JSON")
		}
		body = obj
	}
	if err := c.validator.Validate([]byte(body)); err != nil {
		return nil, err
	}

	var p domain.Profile
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, err
	}
	p = p.Normalize()
	return &p, nil
}

// Clean removes markdown code fences and surrounding whitespace.
func Clean(text string) string {
	return strings.TrimSpace(fence.ReplaceAllString(text, ""))
}

// OutermostObject returns the text between the first '{' and the last '}'.
func OutermostObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", false
	}
	return candidate, true
}
