// File: services/notify/notify.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"agendabot/models"
	"agendabot/utils"
)

// deliver routes a prompt through the delivery queue when available, falling
// back to a direct send so a broken queue never swallows a message.
func (s *DefaultNotifyService) deliver(ctx context.Context, to string, prompt *models.Prompt) error {
	if s.Queue != nil {
		err := s.Queue.EnqueueMessage(ctx, models.OutboundMessage{To: to, Prompt: prompt})
		if err == nil {
			return nil
		}
		utils.GetLogger().Warn("delivery queue unavailable, sending directly",
			zap.String("to", to),
			zap.Error(err))
	}
	return s.Sender.Send(ctx, to, prompt)
}

// ScheduleReminder persists a reminder row for a booking and arms its timer.
// The row is written before the timer exists, so a crash between the two is
// repaired by RestoreReminders on the next boot. A booking closer than the
// lead time gets its reminder immediately through the same path.
func (s *DefaultNotifyService) ScheduleReminder(ctx context.Context, slot models.Slot) error {
	appointmentAt, err := slot.Instant(s.Cfg.Location())
	if err != nil {
		return err
	}
	runAt := appointmentAt.Add(-time.Duration(s.Cfg.ReminderLeadHours) * time.Hour)

	job := models.ReminderJob{
		ID:            uuid.New().String(),
		ScheduledAt:   runAt,
		AppointmentAt: appointmentAt,
		ContactID:     slot.ContactID,
		PatientName:   slot.PatientName,
		Kind:          models.KindPatientReminder,
		CreatedAt:     s.Clock.Now(),
	}
	if err := s.Reminders.Create(ctx, job); err != nil {
		return fmt.Errorf("failed to persist reminder: %w", err)
	}
	s.arm(job)
	return nil
}

// arm enrolls the timer for a persisted reminder. Firing claims the row
// first; a row already claimed or cancelled means the timer stays silent, so
// each reminder is sent at most once across restarts and double arms.
func (s *DefaultNotifyService) arm(job models.ReminderJob) {
	id := job.ID
	s.Sched.ScheduleAt(job.ScheduledAt, "reminder:"+id, func(ctx context.Context) error {
		claimed, err := s.Reminders.ClaimPending(ctx, id)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to claim reminder %s: %w", id, err)
		}
		return s.deliver(ctx, claimed.ContactID, models.TextPrompt(reminderBody(*claimed)))
	})
}

func reminderBody(job models.ReminderJob) string {
	when := job.AppointmentAt
	return fmt.Sprintf("Hi %s! Reminder: you have an appointment on %s at %s. Reply here if you need to reschedule.",
		firstName(job.PatientName),
		when.Format(models.DateLayout),
		when.Format(models.TimeLayout))
}

func firstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}

// CancelReminders drops the pending reminders of a cancelled or moved
// appointment. The orphaned heap entries no-op when they fire.
func (s *DefaultNotifyService) CancelReminders(ctx context.Context, contactID string, appointmentAt time.Time) error {
	removed, err := s.Reminders.RemovePending(ctx, contactID, appointmentAt)
	if err != nil {
		return fmt.Errorf("failed to cancel reminders: %w", err)
	}
	if removed > 0 {
		utils.GetLogger().Info("reminders cancelled",
			zap.String("contactId", contactID),
			zap.Time("appointmentAt", appointmentAt),
			zap.Int64("removed", removed))
	}
	return nil
}

// RestoreReminders re-arms every pending reminder after a restart. Overdue
// rows fire on the first poll.
func (s *DefaultNotifyService) RestoreReminders(ctx context.Context) error {
	jobs, err := s.Reminders.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore reminders: %w", err)
	}
	for _, job := range jobs {
		s.arm(job)
	}
	utils.GetLogger().Info("pending reminders restored", zap.Int("count", len(jobs)))
	return nil
}

// deliverToOwner skips with a log line when no owner phone is configured, so
// a half-configured deployment still serves patients.
func (s *DefaultNotifyService) deliverToOwner(ctx context.Context, prompt *models.Prompt) error {
	if s.Cfg.OwnerPhone == "" {
		utils.GetLogger().Warn("owner phone not configured, skipping owner notice")
		return nil
	}
	return s.deliver(ctx, s.Cfg.OwnerPhone, prompt)
}

func (s *DefaultNotifyService) NotifyOwnerBooked(ctx context.Context, slot models.Slot) error {
	body := fmt.Sprintf("New appointment: %s on %s at %s (%s).",
		slot.PatientName, slot.Date, slot.StartTime, slot.ContactID)
	return s.deliverToOwner(ctx, models.TextPrompt(body))
}

func (s *DefaultNotifyService) NotifyOwnerCancelled(ctx context.Context, slot models.Slot) error {
	body := fmt.Sprintf("Cancelled: %s on %s at %s is free again.",
		slot.PatientName, slot.Date, slot.StartTime)
	return s.deliverToOwner(ctx, models.TextPrompt(body))
}

func (s *DefaultNotifyService) NotifyOwnerRescheduled(ctx context.Context, released, booked models.Slot) error {
	body := fmt.Sprintf("Rescheduled: %s moved from %s %s to %s %s.",
		booked.PatientName, released.Date, released.StartTime, booked.Date, booked.StartTime)
	return s.deliverToOwner(ctx, models.TextPrompt(body))
}

func summaryDedupKey(date string) string {
	return "summary:sent:" + date
}

// SendDailySummary sends the owner today's booking list. A Redis marker keyed
// by date keeps the startup catch-up and the daily timer from sending twice.
func (s *DefaultNotifyService) SendDailySummary(ctx context.Context) error {
	today := s.Clock.Now().Format(models.DateLayout)

	if s.Cache != nil {
		set, err := s.Cache.SetNX(ctx, summaryDedupKey(today), "1", 48*time.Hour).Result()
		if err != nil {
			utils.GetLogger().Warn("summary dedup marker unavailable", zap.Error(err))
		} else if !set {
			return nil
		}
	}

	bookings, err := s.Agenda.BookingsOn(ctx, s.Clock.Now())
	if err != nil {
		s.clearSummaryMarker(ctx, today)
		return fmt.Errorf("failed to build daily summary: %w", err)
	}

	body := summaryBody(today, bookings)
	if err := s.deliverToOwner(ctx, models.TextPrompt(body)); err != nil {
		s.clearSummaryMarker(ctx, today)
		return err
	}
	utils.GetLogger().Info("daily summary sent",
		zap.String("date", today),
		zap.Int("bookings", len(bookings)))
	return nil
}

func (s *DefaultNotifyService) clearSummaryMarker(ctx context.Context, date string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, summaryDedupKey(date)).Err(); err != nil {
		utils.GetLogger().Warn("failed to clear summary marker", zap.Error(err))
	}
}

func summaryBody(date string, bookings []models.Slot) string {
	if len(bookings) == 0 {
		return fmt.Sprintf("Agenda for %s: no appointments scheduled.", date)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Agenda for %s (%d appointment%s):", date, len(bookings), plural(len(bookings)))
	for _, slot := range bookings {
		fmt.Fprintf(&b, "\n%s - %s (%s)", slot.StartTime, slot.PatientName, slot.ContactID)
	}
	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// ScheduleDailySummary enrolls the summary at the configured hour, every day.
func (s *DefaultNotifyService) ScheduleDailySummary() {
	s.Sched.ScheduleDaily(s.Cfg.SummaryHour, 0, "daily-summary", s.SendDailySummary)
}

// CatchUpDailySummary sends today's summary at startup when the configured
// hour has already passed; the dedup marker makes a same-day restart a no-op.
func (s *DefaultNotifyService) CatchUpDailySummary(ctx context.Context) {
	if s.Clock.Now().Hour() < s.Cfg.SummaryHour {
		return
	}
	if err := s.SendDailySummary(ctx); err != nil {
		utils.GetLogger().Error("daily summary catch-up failed", zap.Error(err))
	}
}
