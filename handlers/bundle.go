// File: handlers/bundle.go
package handlers

import (
	"agendabot/config"
	"agendabot/services/agenda"
	"agendabot/services/flow"
	"agendabot/services/notify"
)

// HandlerBundle groups the endpoint handlers and their dependencies.
type HandlerBundle struct {
	Cfg    *config.Config
	Flow   *flow.Engine
	Agenda agenda.AgendaService
	Notify notify.NotifyService
	Sender notify.Sender
}

func NewHandlerBundle(
	cfg *config.Config,
	flowEngine *flow.Engine,
	agendaSvc agenda.AgendaService,
	notifySvc notify.NotifyService,
	sender notify.Sender,
) *HandlerBundle {
	return &HandlerBundle{
		Cfg:    cfg,
		Flow:   flowEngine,
		Agenda: agendaSvc,
		Notify: notifySvc,
		Sender: sender,
	}
}
