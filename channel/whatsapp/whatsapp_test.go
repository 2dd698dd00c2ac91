// File: channel/whatsapp/whatsapp_test.go
package whatsapp

import (
	"encoding/json"
	"strings"
	"testing"

	"agendabot/config"
	"agendabot/models"
)

const samplePayload = `{
  "entry": [{
    "changes": [{
      "value": {
        "contacts": [{"wa_id": "5511999", "profile": {"name": "Ana"}}],
        "messages": [
          {"from": "5511999", "type": "text", "text": {"body": " hello "}},
          {"from": "5511999", "type": "interactive",
           "interactive": {"type": "button_reply", "button_reply": {"id": "1", "title": "Book"}}},
          {"from": "5511999", "type": "interactive",
           "interactive": {"type": "list_reply", "list_reply": {"id": "3", "title": "Wednesday"}}},
          {"from": "5511999", "type": "image"}
        ]
      }
    }]
  }]
}`

func TestNormalizeCollapsesInteractiveReplies(t *testing.T) {
	var payload WebhookPayload
	if err := json.Unmarshal([]byte(samplePayload), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	msgs := payload.Normalize()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 inbound messages, got %d: %+v", len(msgs), msgs)
	}
	want := []string{"hello", "1", "3"}
	for i, msg := range msgs {
		if msg.Input != want[i] {
			t.Fatalf("message %d: expected input %q, got %q", i, want[i], msg.Input)
		}
		if msg.ContactID != "5511999" || msg.ProfileName != "Ana" {
			t.Fatalf("message %d: wrong sender: %+v", i, msg)
		}
	}
}

func newRenderClient() *Client {
	return NewClient(&config.Config{WhatsAppToken: "t", WhatsAppPhoneID: "123"})
}

func TestRenderMessageTypes(t *testing.T) {
	c := newRenderClient()

	text := c.render("5511999", models.TextPrompt("hi"))
	if text["type"] != "text" {
		t.Fatalf("expected text payload, got %v", text["type"])
	}

	buttons := c.render("5511999", &models.Prompt{
		Body: "menu",
		Kind: models.PromptButtons,
		Options: []models.PromptOption{
			{ID: "1", Title: "Book"}, {ID: "2", Title: "Cancel"},
		},
	})
	interactive := buttons["interactive"].(map[string]interface{})
	if interactive["type"] != "button" {
		t.Fatalf("expected button payload, got %v", interactive["type"])
	}

	// Options without a kind degrade to text; oversized button sets degrade
	// to a list.
	degraded := c.render("5511999", &models.Prompt{
		Body: "weeks",
		Kind: models.PromptButtons,
		Options: []models.PromptOption{
			{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}, {ID: "5"},
		},
	})
	interactive = degraded["interactive"].(map[string]interface{})
	if interactive["type"] != "list" {
		t.Fatalf("expected oversized buttons to render as list, got %v", interactive["type"])
	}
}

func TestClampKeepsShortTitles(t *testing.T) {
	if got := clamp("Monday 02/03/2026", maxRowTitle); got != "Monday 02/03/2026" {
		t.Fatalf("short title changed: %q", got)
	}
	long := strings.Repeat("x", 40)
	got := clamp(long, maxRowTitle)
	if len([]rune(got)) != maxRowTitle {
		t.Fatalf("clamped title has %d runes", len([]rune(got)))
	}
}
