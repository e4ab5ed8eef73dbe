package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"pkdindustries/retort/internal/memory"
)

// RememberUserInfoTool stores a fact about the requesting user. The user
// identity comes from the request context, not the model, so the model
// cannot write facts for other users.
type RememberUserInfoTool struct {
	BaseNativeTool
	facts *memory.Facts
}

func (t *RememberUserInfoTool) GetSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Title:       "remember_user_info",
		Description: "Remember a fact about the current user for future conversations",
		Type:        "object",
		Properties: map[string]*jsonschema.Schema{
			"fact": {
				Type:        "string",
				Description: "The fact to remember, e.g. 'prefers short answers'",
			},
		},
		Required: []string{"fact"},
	}
}

func (t *RememberUserInfoTool) GetName() string {
	return "remember_user_info"
}

func (t *RememberUserInfoTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	info, err := GetRequest(ctx)
	if err != nil {
		return "", err
	}
	fact, ok := args["fact"].(string)
	if !ok {
		return "", fmt.Errorf("fact must be a string")
	}
	if fact == "" {
		return "", fmt.Errorf("fact cannot be empty")
	}
	t.facts.Remember(info.User, fact)
	return fmt.Sprintf("Remembered about %s: %s", info.User, fact), nil
}
