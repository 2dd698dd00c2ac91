// File: services/notify/interface.go
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"agendabot/config"
	reminderRepo "agendabot/database/repository/reminder"
	"agendabot/models"
	"agendabot/services/agenda"
	"agendabot/services/scheduler"
	"agendabot/utils"
)

// Sender delivers a prompt to a WhatsApp contact.
type Sender interface {
	Send(ctx context.Context, to string, prompt *models.Prompt) error
}

// Enqueuer hands an outbound message to the delivery queue.
type Enqueuer interface {
	EnqueueMessage(ctx context.Context, msg models.OutboundMessage) error
}

// NotifyService owns the deferred-notification lifecycle: patient reminders,
// owner notices, and the daily agenda summary.
type NotifyService interface {
	ScheduleReminder(ctx context.Context, slot models.Slot) error
	CancelReminders(ctx context.Context, contactID string, appointmentAt time.Time) error
	RestoreReminders(ctx context.Context) error
	NotifyOwnerBooked(ctx context.Context, slot models.Slot) error
	NotifyOwnerCancelled(ctx context.Context, slot models.Slot) error
	NotifyOwnerRescheduled(ctx context.Context, released, booked models.Slot) error
	SendDailySummary(ctx context.Context) error
	ScheduleDailySummary()
	CatchUpDailySummary(ctx context.Context)
}

// DefaultNotifyService is the production implementation. Sends go through the
// delivery queue when one is configured and fall back to the direct sender.
type DefaultNotifyService struct {
	Reminders reminderRepo.ReminderRepository
	Agenda    agenda.AgendaService
	Sched     *scheduler.Scheduler
	Queue     Enqueuer
	Sender    Sender
	Cache     *redis.Client
	Cfg       *config.Config
	Clock     utils.Clock
}

func NewDefaultNotifyService(
	reminders reminderRepo.ReminderRepository,
	agendaSvc agenda.AgendaService,
	sched *scheduler.Scheduler,
	queue Enqueuer,
	sender Sender,
	cache *redis.Client,
	cfg *config.Config,
) (*DefaultNotifyService, error) {
	if reminders == nil || agendaSvc == nil || sched == nil || sender == nil {
		return nil, fmt.Errorf("notify service initialization error: missing dependency")
	}
	return &DefaultNotifyService{
		Reminders: reminders,
		Agenda:    agendaSvc,
		Sched:     sched,
		Queue:     queue,
		Sender:    sender,
		Cache:     cache,
		Cfg:       cfg,
		Clock:     utils.NewClock(cfg.Location()),
	}, nil
}
