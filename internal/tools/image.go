package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"pkdindustries/retort/internal/config"
)

// GenerateImageTool posts a prompt to an image generation endpoint and
// returns the resulting artifact URL. The reply pipeline re-attaches these
// URLs if a later round drops them.
type GenerateImageTool struct {
	BaseNativeTool
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewGenerateImageTool(cfg config.ToolsConfig) *GenerateImageTool {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GenerateImageTool{
		endpoint: cfg.ImageURL,
		apiKey:   cfg.ImageKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (t *GenerateImageTool) GetSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Title:       "generate_image",
		Description: "Generate an image from a text prompt and return its URL",
		Type:        "object",
		Properties: map[string]*jsonschema.Schema{
			"prompt": {
				Type:        "string",
				Description: "Description of the image to generate",
			},
		},
		Required: []string{"prompt"},
	}
}

func (t *GenerateImageTool) GetName() string {
	return "generate_image"
}

func (t *GenerateImageTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	prompt, ok := args["prompt"].(string)
	if !ok {
		return "", fmt.Errorf("prompt must be a string")
	}
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image api returned %s", resp.Status)
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode image response: %w", err)
	}
	if payload.URL == "" {
		return "", fmt.Errorf("image api returned no url")
	}
	return fmt.Sprintf("Image generated: %s", payload.URL), nil
}
