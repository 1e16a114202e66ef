// Package llm talks to a local Ollama-compatible tool-calling endpoint as a
// fallback intent classifier when the pattern router can't name an intent.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hashing-labs/voxd/pkg/intent"
)

const systemPrompt = "You are a command classifier for a voice assistant. " +
	"Call exactly one of the provided tools that matches the user's request. " +
	"If none apply, do not call any tool."

// knownKinds is every intent.Kind the tool schema exposes, in the fixed
// order the schema is built in. Unknown is deliberately excluded: the LLM
// has nothing useful to "call" for it.
var knownKinds = []intent.Kind{
	intent.PlayMedia, intent.Pause, intent.Resume,
	intent.VolumeUp, intent.VolumeDown, intent.VolumeSet,
	intent.Shutdown, intent.Reboot, intent.Fullscreen, intent.Close,
	intent.NextTrack, intent.PrevTrack,
}

// FallbackRouter calls a local LLM's tool-calling chat endpoint and maps the
// chosen tool back into an intent.Intent.
type FallbackRouter struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewFallbackRouter builds a router against baseURL (e.g.
// http://127.0.0.1:11434).
func NewFallbackRouter(baseURL, model string) *FallbackRouter {
	return &FallbackRouter{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type toolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type tool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []tool        `json:"tools"`
	Stream   bool          `json:"stream"`
}

type toolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type chatResponse struct {
	Message struct {
		ToolCalls []toolCall `json:"tool_calls"`
	} `json:"message"`
}

func buildTools() []tool {
	tools := make([]tool, 0, len(knownKinds))
	for _, k := range knownKinds {
		params := map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		if k == intent.PlayMedia {
			params["properties"] = map[string]interface{}{
				"query": map[string]interface{}{"type": "string"},
			}
		}
		if k == intent.VolumeSet {
			params["properties"] = map[string]interface{}{
				"level": map[string]interface{}{"type": "integer"},
			}
		}
		tools = append(tools, tool{
			Type: "function",
			Function: toolFunction{
				Name:       string(k),
				Parameters: params,
			},
		})
	}
	return tools
}

// Route asks the LLM to classify text into one intent. A connect/timeout
// failure, or a response that calls no recognized tool, both map to Unknown
// rather than propagating an error — a fallback that itself needs error
// handling upstream defeats the point of being a fallback.
func (f *FallbackRouter) Route(ctx context.Context, text string) intent.Intent {
	reqBody := chatRequest{
		Model: f.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Tools:  buildTools(),
		Stream: false,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return intent.Intent{Kind: intent.Unknown, Query: text}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return intent.Intent{Kind: intent.Unknown, Query: text}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return intent.Intent{Kind: intent.Unknown, Query: text}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return intent.Intent{Kind: intent.Unknown, Query: text}
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return intent.Intent{Kind: intent.Unknown, Query: text}
	}
	if len(result.Message.ToolCalls) == 0 {
		return intent.Intent{Kind: intent.Unknown, Query: text}
	}

	call := result.Message.ToolCalls[0]
	kind := intent.Kind(call.Function.Name)
	if !isKnownKind(kind) {
		return intent.Intent{Kind: intent.Unknown, Query: text}
	}

	var args map[string]interface{}
	_ = json.Unmarshal(call.Function.Arguments, &args)

	out := intent.Intent{Kind: kind, Params: args}
	if q, ok := args["query"].(string); ok {
		out.Query = q
	}
	return out
}

func isKnownKind(k intent.Kind) bool {
	for _, known := range knownKinds {
		if known == k {
			return true
		}
	}
	return false
}

// IsAvailable probes the endpoint's health route with a short timeout.
func (f *FallbackRouter) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
