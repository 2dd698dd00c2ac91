package models

// TypeMessageSend is the asynq task type for outbound WhatsApp deliveries.
const TypeMessageSend = "message:send"

// OutboundMessage is the payload of a queued delivery task consumed by the
// async send worker.
type OutboundMessage struct {
	To     string  `json:"to"`
	Prompt *Prompt `json:"prompt"`
}
