// File: handlers/webhook.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agendabot/channel/whatsapp"
	"agendabot/utils"
)

// WebhookVerifyHandler answers the Cloud API subscription handshake.
func (hb *HandlerBundle) WebhookVerifyHandler(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == hb.Cfg.VerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	utils.JSONError(c, http.StatusForbidden, "webhook verification failed", "")
}

// WebhookReceiveHandler ingests inbound messages. The webhook is acked
// immediately; replies go out asynchronously so a slow WhatsApp API call
// never makes the platform redeliver the event.
func (hb *HandlerBundle) WebhookReceiveHandler(c *gin.Context) {
	var payload whatsapp.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid webhook payload", err.Error())
		return
	}

	msgs := payload.Normalize()
	c.JSON(http.StatusOK, gin.H{"received": len(msgs)})
	if len(msgs) == 0 {
		return
	}

	go func() {
		ctx := context.Background()
		logger := utils.GetLogger()
		for _, m := range msgs {
			reply := hb.Flow.HandleMessage(ctx, m.ContactID, m.ProfileName, m.Input)
			if reply == nil {
				continue
			}
			if err := hb.Sender.Send(ctx, m.ContactID, reply); err != nil {
				logger.Error("failed to send reply",
					zap.String("contactId", m.ContactID),
					zap.Error(err))
			}
		}
	}()
}
