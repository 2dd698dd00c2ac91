// File: channel/whatsapp/webhook.go
package whatsapp

import "strings"

// WebhookPayload mirrors the Cloud API webhook envelope, trimmed to the
// fields the bot reads.
type WebhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
					Interactive struct {
						Type        string `json:"type"`
						ButtonReply struct {
							ID string `json:"id"`
						} `json:"button_reply"`
						ListReply struct {
							ID string `json:"id"`
						} `json:"list_reply"`
					} `json:"interactive"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// InboundMessage is one user turn, normalized: interactive replies collapse
// to their option ID so the flow engine only ever sees plain input strings.
type InboundMessage struct {
	ContactID   string
	ProfileName string
	Input       string
}

// Normalize flattens a webhook payload into inbound messages, skipping
// status-only notifications and unsupported message types.
func (p WebhookPayload) Normalize() []InboundMessage {
	var out []InboundMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			profile := ""
			if len(change.Value.Contacts) > 0 {
				profile = change.Value.Contacts[0].Profile.Name
			}
			for _, msg := range change.Value.Messages {
				input := ""
				switch msg.Type {
				case "text":
					input = strings.TrimSpace(msg.Text.Body)
				case "interactive":
					switch msg.Interactive.Type {
					case "button_reply":
						input = msg.Interactive.ButtonReply.ID
					case "list_reply":
						input = msg.Interactive.ListReply.ID
					}
				}
				if input == "" || msg.From == "" {
					continue
				}
				out = append(out, InboundMessage{
					ContactID:   msg.From,
					ProfileName: profile,
					Input:       input,
				})
			}
		}
	}
	return out
}
