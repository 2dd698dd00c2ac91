// File: channel/whatsapp/client.go
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"agendabot/config"
	"agendabot/models"
	"agendabot/utils"
)

const defaultBaseURL = "https://graph.facebook.com/v18.0"

// Cloud API limits on interactive messages.
const (
	maxButtons     = 3
	maxListRows    = 10
	maxButtonTitle = 20
	maxRowTitle    = 24
)

// Client talks to the WhatsApp Cloud API messages endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	phoneID    string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		token:      cfg.WhatsAppToken,
		phoneID:    cfg.WhatsAppPhoneID,
	}
}

// Send renders a prompt into the matching Cloud API message type and posts
// it. Prompts that exceed the interactive limits degrade to the next simpler
// type instead of failing.
func (c *Client) Send(ctx context.Context, to string, prompt *models.Prompt) error {
	if prompt == nil || to == "" {
		return fmt.Errorf("whatsapp send: empty target or prompt")
	}
	payload := c.render(to, prompt)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whatsapp send: encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp send: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("whatsapp send: status %d: %s", resp.StatusCode, detail)
	}
	utils.GetLogger().Debug("whatsapp message sent",
		zap.String("to", to),
		zap.String("kind", prompt.Kind))
	return nil
}

func (c *Client) render(to string, prompt *models.Prompt) map[string]interface{} {
	base := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
	}

	kind := prompt.Kind
	if len(prompt.Options) == 0 {
		kind = models.PromptText
	}
	if kind == models.PromptButtons && len(prompt.Options) > maxButtons {
		kind = models.PromptList
	}

	switch kind {
	case models.PromptButtons:
		buttons := make([]map[string]interface{}, 0, len(prompt.Options))
		for _, opt := range prompt.Options {
			buttons = append(buttons, map[string]interface{}{
				"type": "reply",
				"reply": map[string]string{
					"id":    opt.ID,
					"title": clamp(opt.Title, maxButtonTitle),
				},
			})
		}
		base["type"] = "interactive"
		base["interactive"] = map[string]interface{}{
			"type":   "button",
			"body":   map[string]string{"text": prompt.Body},
			"action": map[string]interface{}{"buttons": buttons},
		}
	case models.PromptList:
		opts := prompt.Options
		if len(opts) > maxListRows {
			opts = opts[:maxListRows]
		}
		rows := make([]map[string]string, 0, len(opts))
		for _, opt := range opts {
			row := map[string]string{
				"id":    opt.ID,
				"title": clamp(opt.Title, maxRowTitle),
			}
			if opt.Description != "" {
				row["description"] = opt.Description
			}
			rows = append(rows, row)
		}
		base["type"] = "interactive"
		base["interactive"] = map[string]interface{}{
			"type": "list",
			"body": map[string]string{"text": prompt.Body},
			"action": map[string]interface{}{
				"button": "Choose",
				"sections": []map[string]interface{}{
					{"rows": rows},
				},
			},
		}
	default:
		base["type"] = "text"
		base["text"] = map[string]string{"body": prompt.Body}
	}
	return base
}

func clamp(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
