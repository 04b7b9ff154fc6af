package extraction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// Request is one multimodal generation call.
type Request struct {
	Data        []byte
	MediaType   string
	Instruction string
	Schema      map[string]any
}

// Model produces the raw text of a structured response.
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeminiModel calls the Gemini API with the recording inlined.
type GeminiModel struct {
	apiKey      string
	model       string
	temperature float32

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiModel(apiKey, model string) *GeminiModel {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiModel{apiKey: apiKey, model: model, temperature: 0.2}
}

func (g *GeminiModel) connect(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	if g.apiKey == "" {
		return nil, ErrCredentialMissing
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	g.client = client
	return client, nil
}

func (g *GeminiModel) Generate(ctx context.Context, req Request) (string, error) {
	client, err := g.connect(ctx)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Data, req.MediaType),
			genai.NewPartFromText(req.Instruction),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(g.temperature),
	}
	if req.Schema != nil {
		schema, err := toGenaiSchema(req.Schema)
		if err != nil {
			return "", err
		}
		cfg.ResponseSchema = schema
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}

// toGenaiSchema converts the JSON-schema subset used by ProfileSchema.
func toGenaiSchema(m map[string]any) (*genai.Schema, error) {
	s := &genai.Schema{}
	switch m["type"] {
	case "object":
		s.Type = genai.TypeObject
	case "array":
		s.Type = genai.TypeArray
	case "string":
		s.Type = genai.TypeString
	default:
		return nil, fmt.Errorf("unsupported schema type %v", m["type"])
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for _, name := range propertyOrder {
			if _, ok := props[name]; ok {
				s.PropertyOrdering = append(s.PropertyOrdering, name)
			}
		}
		for name, raw := range props {
			child, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("property %q is not a schema", name)
			}
			converted, err := toGenaiSchema(child)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			s.Properties[name] = converted
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		converted, err := toGenaiSchema(items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		s.Items = converted
	}
	if req, ok := m["required"].([]any); ok {
		for _, r := range req {
			name, ok := r.(string)
			if !ok {
				return nil, errors.New("required entries must be strings")
			}
			s.Required = append(s.Required, name)
		}
	}
	return s, nil
}

// credentialRejected reports whether err is the API refusing the key:
// 401/403, or 400 with reason API_KEY_INVALID.
func credentialRejected(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return false
		}
		apiErr = *ptr
	}
	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	case http.StatusBadRequest:
		for _, d := range apiErr.Details {
			if reason, _ := d["reason"].(string); reason == "API_KEY_INVALID" {
				return true
			}
		}
		return strings.Contains(strings.ToLower(apiErr.Message), "api key not valid")
	}
	return false
}
