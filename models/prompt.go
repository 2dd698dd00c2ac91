package models

// Prompt kinds. The channel adapter picks the concrete WhatsApp message type
// from the kind; PromptText carries no options.
const (
	PromptText    = "text"
	PromptButtons = "buttons"
	PromptList    = "list"
)

// PromptOption is one selectable entry of an interactive prompt.
type PromptOption struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Prompt is the engine's outbound reply as structured data. Rendering into a
// channel-specific payload is left to the channel adapter.
type Prompt struct {
	Body    string         `json:"body"`
	Kind    string         `json:"kind"`
	Options []PromptOption `json:"options,omitempty"`
}

// TextPrompt wraps a plain body.
func TextPrompt(body string) *Prompt {
	return &Prompt{Body: body, Kind: PromptText}
}
