// File: services/flow/engine.go
package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"agendabot/config"
	registryRepo "agendabot/database/repository/registry"
	"agendabot/models"
	"agendabot/services/agenda"
	"agendabot/services/notify"
	"agendabot/utils"
)

// Engine drives the WhatsApp conversation. Every inbound message maps to
// exactly one reply prompt; service failures turn into an apology reply
// instead of silence.
type Engine struct {
	Agenda   agenda.AgendaService
	Notify   notify.NotifyService
	Registry registryRepo.RegistryRepository
	Sessions *SessionStore
	Cfg      *config.Config
	Clock    utils.Clock
}

func NewEngine(
	agendaSvc agenda.AgendaService,
	notifySvc notify.NotifyService,
	registry registryRepo.RegistryRepository,
	cfg *config.Config,
) *Engine {
	return &Engine{
		Agenda:   agendaSvc,
		Notify:   notifySvc,
		Registry: registry,
		Sessions: NewSessionStore(),
		Cfg:      cfg,
		Clock:    utils.NewClock(cfg.Location()),
	}
}

// HandleMessage advances the contact's conversation by one inbound message
// and returns the reply. Messages from the same contact are serialized.
func (e *Engine) HandleMessage(ctx context.Context, contactID, profileName, input string) *models.Prompt {
	input = strings.TrimSpace(input)
	var reply *models.Prompt
	e.Sessions.With(contactID, e.Clock.Now(), func(sess *Session) {
		reply = e.step(ctx, contactID, input, sess)
	})
	return reply
}

func (e *Engine) step(ctx context.Context, contactID, input string, sess *Session) *models.Prompt {
	if sess.Name == "" && sess.State != StateAwaitName {
		reg, err := e.Registry.FindByContact(ctx, contactID)
		if err == nil {
			sess.Name = reg.FirstName()
		} else if errors.Is(err, mongo.ErrNoDocuments) {
			sess.State = StateAwaitName
			return models.TextPrompt(msgAskName)
		} else {
			utils.GetLogger().Error("registry lookup failed",
				zap.String("contactId", contactID),
				zap.Error(err))
			return e.failure(sess)
		}
	}

	if sess.State == StateAwaitName {
		return e.handleAwaitName(ctx, contactID, input, sess)
	}

	// Universal controls work from every registered state. Word aliases are
	// accepted alongside the numeric codes.
	switch strings.ToLower(input) {
	case "9", "cancel":
		sess.resetChoices()
		sess.State = StateMainMenu
		return withNotice(msgCancelled, menuPrompt(sess.Name))
	case "0", "back":
		return e.stepBack(sess)
	}

	switch sess.State {
	case StateMainMenu:
		return e.handleMainMenu(ctx, contactID, input, sess)
	case StatePickWeek:
		return e.handlePickWeek(ctx, input, sess)
	case StatePickDay:
		return e.handlePickDay(ctx, input, sess)
	case StatePickTime:
		return e.handlePickTime(input, sess)
	case StateConfirmBook:
		return e.handleConfirmBook(ctx, contactID, input, sess)
	case StateListForReschedule:
		return e.handleListForReschedule(input, sess)
	case StateListForCancel:
		return e.handleListForCancel(input, sess)
	case StateConfirmCancel:
		return e.handleConfirmCancel(ctx, contactID, input, sess)
	default:
		sess.resetChoices()
		sess.State = StateMainMenu
		return menuPrompt(sess.Name)
	}
}

func (e *Engine) stepBack(sess *Session) *models.Prompt {
	switch sess.State {
	case StatePickWeek:
		if sess.Rescheduling && len(sess.Bookings) > 0 {
			sess.State = StateListForReschedule
			return bookingListPrompt(msgPickReschedule, sess.Bookings)
		}
		sess.State = StateMainMenu
		return menuPrompt(sess.Name)
	case StateListForReschedule, StateListForCancel:
		sess.resetChoices()
		sess.State = StateMainMenu
		return menuPrompt(sess.Name)
	case StateConfirmCancel:
		if len(sess.Bookings) > 0 {
			sess.State = StateListForCancel
			return bookingListPrompt(msgPickCancel, sess.Bookings)
		}
		sess.State = StateMainMenu
		return menuPrompt(sess.Name)
	case StatePickDay:
		sess.State = StatePickWeek
		return weekPrompt(e.Agenda.MaxWeeks())
	case StatePickTime:
		sess.State = StatePickDay
		return dayPrompt(sess.Days, e.Cfg.Location())
	case StateConfirmBook:
		sess.State = StatePickTime
		return timePrompt(sess.Date, sess.Times)
	default:
		return menuPrompt(sess.Name)
	}
}

func (e *Engine) handleAwaitName(ctx context.Context, contactID, input string, sess *Session) *models.Prompt {
	name := strings.TrimSpace(input)
	if len([]rune(name)) < 2 {
		return models.TextPrompt(msgNameTooShort)
	}
	reg := models.Registration{
		ContactID: contactID,
		Name:      name,
		Origin:    "whatsapp",
	}
	if err := e.Registry.Upsert(ctx, reg); err != nil {
		utils.GetLogger().Error("registration failed",
			zap.String("contactId", contactID),
			zap.Error(err))
		// Stay in AwaitName so the next message retries the registration.
		return models.TextPrompt(msgSomethingWrong)
	}
	sess.Name = reg.FirstName()
	sess.State = StateMainMenu
	return withNotice(fmt.Sprintf("Nice to meet you, %s!", sess.Name), menuPrompt(""))
}

func (e *Engine) handleMainMenu(ctx context.Context, contactID, input string, sess *Session) *models.Prompt {
	switch input {
	case "1":
		sess.resetChoices()
		sess.State = StatePickWeek
		return weekPrompt(e.Agenda.MaxWeeks())
	case "2":
		bookings, err := e.Agenda.BookingsFor(ctx, contactID)
		if err != nil {
			utils.GetLogger().Error("booking lookup failed", zap.Error(err))
			return e.failure(sess)
		}
		if len(bookings) == 0 {
			return withNotice(msgNoUpcoming, menuPrompt(sess.Name))
		}
		sess.resetChoices()
		sess.Bookings = bookings
		sess.State = StateListForReschedule
		return bookingListPrompt(msgPickReschedule, bookings)
	case "3":
		bookings, err := e.Agenda.BookingsFor(ctx, contactID)
		if err != nil {
			utils.GetLogger().Error("booking lookup failed", zap.Error(err))
			return e.failure(sess)
		}
		if len(bookings) == 0 {
			return withNotice(msgNoUpcoming, menuPrompt(sess.Name))
		}
		sess.resetChoices()
		sess.Bookings = bookings
		sess.State = StateListForCancel
		return bookingListPrompt(msgPickCancel, bookings)
	case "4":
		return models.TextPrompt(msgPrices)
	default:
		return withNotice(msgInvalidOption, menuPrompt(sess.Name))
	}
}

func (e *Engine) handleListForReschedule(input string, sess *Session) *models.Prompt {
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(sess.Bookings) {
		return withNotice(msgInvalidOption, bookingListPrompt(msgPickReschedule, sess.Bookings))
	}
	old := sess.Bookings[n-1]
	sess.Rescheduling = true
	sess.OldDate = old.Date
	sess.OldTime = old.StartTime
	sess.State = StatePickWeek
	notice := fmt.Sprintf("Okay, let's move your appointment on %s at %s.", old.Date, old.StartTime)
	return withNotice(notice, weekPrompt(e.Agenda.MaxWeeks()))
}

func (e *Engine) handleListForCancel(input string, sess *Session) *models.Prompt {
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(sess.Bookings) {
		return withNotice(msgInvalidOption, bookingListPrompt(msgPickCancel, sess.Bookings))
	}
	chosen := sess.Bookings[n-1]
	sess.Date = chosen.Date
	sess.Time = chosen.StartTime
	sess.State = StateConfirmCancel
	return confirmCancelPrompt(chosen.Date, chosen.StartTime)
}

func (e *Engine) handlePickWeek(ctx context.Context, input string, sess *Session) *models.Prompt {
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > e.Agenda.MaxWeeks() {
		return withNotice(msgInvalidOption, weekPrompt(e.Agenda.MaxWeeks()))
	}
	week := n - 1

	days, err := e.Agenda.AvailableDays(ctx, week)
	if err != nil {
		utils.GetLogger().Error("availability lookup failed", zap.Error(err))
		return e.failure(sess)
	}
	if len(days) == 0 {
		return withNotice(msgNoWeekSlots, weekPrompt(e.Agenda.MaxWeeks()))
	}
	sess.Week = week
	sess.Days = days
	sess.State = StatePickDay
	return dayPrompt(days, e.Cfg.Location())
}

func (e *Engine) handlePickDay(ctx context.Context, input string, sess *Session) *models.Prompt {
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(sess.Days) {
		return withNotice(msgInvalidOption, dayPrompt(sess.Days, e.Cfg.Location()))
	}
	date := sess.Days[n-1]

	times, err := e.availableTimes(ctx, date)
	if err != nil {
		return e.failure(sess)
	}
	if len(times) == 0 {
		return withNotice("No times left on that day. Please pick another day.", dayPrompt(sess.Days, e.Cfg.Location()))
	}
	sess.Date = date
	sess.Times = times
	sess.State = StatePickTime
	return timePrompt(date, times)
}

func (e *Engine) handlePickTime(input string, sess *Session) *models.Prompt {
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(sess.Times) {
		return withNotice(msgInvalidOption, timePrompt(sess.Date, sess.Times))
	}
	sess.Time = sess.Times[n-1]
	sess.State = StateConfirmBook
	return confirmBookPrompt(sess.Date, sess.Time, sess.Rescheduling)
}

func (e *Engine) handleConfirmBook(ctx context.Context, contactID, input string, sess *Session) *models.Prompt {
	if input != "1" {
		return withNotice(msgInvalidOption, confirmBookPrompt(sess.Date, sess.Time, sess.Rescheduling))
	}

	at, err := e.instant(sess.Date, sess.Time)
	if err != nil {
		utils.GetLogger().Error("malformed session slot", zap.Error(err))
		return e.failure(sess)
	}

	// On a reschedule the old slot and its reminders go first, so the contact
	// never holds two bookings.
	var released *models.Slot
	if sess.Rescheduling {
		released = e.releaseOldBooking(ctx, contactID, sess)
	}

	booked, err := e.Agenda.Book(ctx, agenda.BookRequest{
		ContactID:   contactID,
		PatientName: sess.Name,
		At:          at,
		Origin:      "whatsapp",
	})
	if err != nil {
		if released != nil {
			if nerr := e.Notify.NotifyOwnerCancelled(ctx, *released); nerr != nil {
				utils.GetLogger().Warn("owner notice failed", zap.Error(nerr))
			}
		}
		if errors.Is(err, agenda.ErrSlotConflict) || errors.Is(err, agenda.ErrSlotNotFound) {
			sess.resetChoices()
			sess.State = StateMainMenu
			return withNotice(msgSlotJustTaken, menuPrompt(sess.Name))
		}
		utils.GetLogger().Error("booking failed", zap.Error(err))
		return e.failure(sess)
	}

	if released != nil {
		if nerr := e.Notify.NotifyOwnerRescheduled(ctx, *released, *booked); nerr != nil {
			utils.GetLogger().Warn("owner notice failed", zap.Error(nerr))
		}
	} else if nerr := e.Notify.NotifyOwnerBooked(ctx, *booked); nerr != nil {
		utils.GetLogger().Warn("owner notice failed", zap.Error(nerr))
	}
	if rerr := e.Notify.ScheduleReminder(ctx, *booked); rerr != nil {
		utils.GetLogger().Warn("reminder scheduling failed", zap.Error(rerr))
	}

	reply := bookedPrompt(booked.Date, booked.StartTime, sess.Rescheduling)
	sess.resetChoices()
	sess.State = StateMainMenu
	return reply
}

// releaseOldBooking cancels the appointment being moved away from and drops
// its pending reminders. Returns nil when nothing was released; the new
// booking then reads as a plain new appointment.
func (e *Engine) releaseOldBooking(ctx context.Context, contactID string, sess *Session) *models.Slot {
	logger := utils.GetLogger()

	oldAt, err := e.instant(sess.OldDate, sess.OldTime)
	if err != nil {
		logger.Warn("malformed old booking in session", zap.Error(err))
		return nil
	}
	released, err := e.Agenda.Cancel(ctx, contactID, oldAt)
	if err != nil {
		logger.Warn("failed to release old booking",
			zap.String("contactId", contactID),
			zap.Error(err))
		return nil
	}
	if err := e.Notify.CancelReminders(ctx, contactID, oldAt); err != nil {
		logger.Warn("failed to drop old reminders", zap.Error(err))
	}
	return released
}

func (e *Engine) handleConfirmCancel(ctx context.Context, contactID, input string, sess *Session) *models.Prompt {
	if input != "1" {
		return withNotice(msgInvalidOption, confirmCancelPrompt(sess.Date, sess.Time))
	}

	at, err := e.instant(sess.Date, sess.Time)
	if err != nil {
		utils.GetLogger().Error("malformed session slot", zap.Error(err))
		return e.failure(sess)
	}

	released, err := e.Agenda.Cancel(ctx, contactID, at)
	if errors.Is(err, agenda.ErrNothingToCancel) || errors.Is(err, agenda.ErrNotSlotOwner) {
		sess.resetChoices()
		sess.State = StateMainMenu
		return withNotice(msgNoUpcoming, menuPrompt(sess.Name))
	}
	if err != nil {
		utils.GetLogger().Error("cancellation failed", zap.Error(err))
		return e.failure(sess)
	}

	if cerr := e.Notify.CancelReminders(ctx, contactID, at); cerr != nil {
		utils.GetLogger().Warn("failed to drop reminders", zap.Error(cerr))
	}
	if nerr := e.Notify.NotifyOwnerCancelled(ctx, *released); nerr != nil {
		utils.GetLogger().Warn("owner notice failed", zap.Error(nerr))
	}

	reply := models.TextPrompt(fmt.Sprintf("Your appointment on %s at %s was cancelled. %s", released.Date, released.StartTime, msgOperationDone))
	sess.resetChoices()
	sess.State = StateMainMenu
	return reply
}

func (e *Engine) availableTimes(ctx context.Context, date string) ([]string, error) {
	slots, err := e.Agenda.AvailableTimesOn(ctx, date)
	if err != nil {
		utils.GetLogger().Error("availability lookup failed", zap.Error(err))
		return nil, err
	}
	times := make([]string, 0, len(slots))
	for _, s := range slots {
		times = append(times, s.StartTime)
	}
	return times, nil
}

func (e *Engine) instant(date, startTime string) (time.Time, error) {
	return time.ParseInLocation(models.DateLayout+" "+models.TimeLayout, date+" "+startTime, e.Cfg.Location())
}

func (e *Engine) failure(sess *Session) *models.Prompt {
	sess.resetChoices()
	sess.State = StateMainMenu
	return models.TextPrompt(msgSomethingWrong)
}

func withNotice(notice string, p *models.Prompt) *models.Prompt {
	if notice != "" {
		p.Body = notice + "\n\n" + p.Body
	}
	return p
}
