// File: services/flow/flow_test.go
package flow

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"agendabot/config"
	"agendabot/models"
	"agendabot/services/agenda"
	"agendabot/utils"
)

// fakeAgenda is a scripted AgendaService with a tiny fixed availability map.
type fakeAgenda struct {
	days    map[int][]string
	times   map[string][]string
	booked  map[string]models.Slot
	bookErr error
}

func newFakeAgenda() *fakeAgenda {
	return &fakeAgenda{
		days: map[int][]string{
			0: {"02/03/2026", "03/03/2026"},
			1: {"09/03/2026"},
		},
		times: map[string][]string{
			"02/03/2026": {"08:00", "09:00"},
			"03/03/2026": {"10:00"},
			"09/03/2026": {"14:00"},
		},
		booked: make(map[string]models.Slot),
	}
}

func (f *fakeAgenda) GenerateHorizon(ctx context.Context) (int, error)       { return 0, nil }
func (f *fakeAgenda) ExtendHorizonByOneDay(ctx context.Context) (int, error) { return 0, nil }
func (f *fakeAgenda) MarkDayOff(ctx context.Context, date string) (int64, error) {
	return 0, nil
}
func (f *fakeAgenda) MaxWeeks() int { return 2 }

func (f *fakeAgenda) ListAvailable(ctx context.Context, week int) ([]models.Slot, error) {
	var out []models.Slot
	for _, date := range f.days[week] {
		for _, t := range f.times[date] {
			out = append(out, models.Slot{Date: date, StartTime: t, Status: models.SlotAvailable})
		}
	}
	return out, nil
}

func (f *fakeAgenda) AvailableDays(ctx context.Context, week int) ([]string, error) {
	var days []string
	for _, date := range f.days[week] {
		if len(f.times[date]) > 0 {
			days = append(days, date)
		}
	}
	return days, nil
}

func (f *fakeAgenda) AvailableTimesOn(ctx context.Context, date string) ([]models.Slot, error) {
	var out []models.Slot
	for _, t := range f.times[date] {
		out = append(out, models.Slot{Date: date, StartTime: t, Status: models.SlotAvailable})
	}
	return out, nil
}

func (f *fakeAgenda) Book(ctx context.Context, req agenda.BookRequest) (*models.Slot, error) {
	if f.bookErr != nil {
		err := f.bookErr
		f.bookErr = nil
		return nil, err
	}
	date, startTime := models.SlotKey(req.At)
	key := date + "|" + startTime
	if _, taken := f.booked[key]; taken {
		return nil, agenda.ErrSlotConflict
	}
	slot := models.Slot{
		Date:        date,
		StartTime:   startTime,
		StartAt:     req.At,
		PatientName: req.PatientName,
		ContactID:   req.ContactID,
		Status:      models.SlotBooked,
		Origin:      req.Origin,
	}
	f.booked[key] = slot

	remaining := f.times[date][:0]
	for _, t := range f.times[date] {
		if t != startTime {
			remaining = append(remaining, t)
		}
	}
	f.times[date] = remaining
	return &slot, nil
}

func (f *fakeAgenda) Cancel(ctx context.Context, contactID string, at time.Time) (*models.Slot, error) {
	date, startTime := models.SlotKey(at)
	key := date + "|" + startTime
	slot, ok := f.booked[key]
	if !ok {
		return nil, agenda.ErrNothingToCancel
	}
	if slot.ContactID != contactID {
		return nil, agenda.ErrNotSlotOwner
	}
	delete(f.booked, key)
	f.times[date] = append(f.times[date], startTime)
	return &slot, nil
}

func (f *fakeAgenda) BookingsFor(ctx context.Context, contactID string) ([]models.Slot, error) {
	var out []models.Slot
	for _, s := range f.booked {
		if s.ContactID == contactID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (f *fakeAgenda) NextBookingFor(ctx context.Context, contactID string) (*models.Slot, error) {
	bookings, _ := f.BookingsFor(ctx, contactID)
	if len(bookings) == 0 {
		return nil, agenda.ErrNoUpcoming
	}
	return &bookings[0], nil
}

func (f *fakeAgenda) CancelNextBookingFor(ctx context.Context, contactID string) (*models.Slot, error) {
	next, err := f.NextBookingFor(ctx, contactID)
	if err != nil {
		return nil, agenda.ErrNothingToCancel
	}
	at, _ := next.Instant(time.UTC)
	return f.Cancel(ctx, contactID, at)
}

func (f *fakeAgenda) BookingsOn(ctx context.Context, day time.Time) ([]models.Slot, error) {
	return nil, nil
}

// recordingNotify counts the notification hooks the flow fires.
type recordingNotify struct {
	reminders    []models.Slot
	cancelled    []time.Time
	ownerBooked  int
	ownerCancels int
	ownerMoves   int
}

func (r *recordingNotify) ScheduleReminder(ctx context.Context, slot models.Slot) error {
	r.reminders = append(r.reminders, slot)
	return nil
}
func (r *recordingNotify) CancelReminders(ctx context.Context, contactID string, appointmentAt time.Time) error {
	r.cancelled = append(r.cancelled, appointmentAt)
	return nil
}
func (r *recordingNotify) RestoreReminders(ctx context.Context) error { return nil }
func (r *recordingNotify) NotifyOwnerBooked(ctx context.Context, slot models.Slot) error {
	r.ownerBooked++
	return nil
}
func (r *recordingNotify) NotifyOwnerCancelled(ctx context.Context, slot models.Slot) error {
	r.ownerCancels++
	return nil
}
func (r *recordingNotify) NotifyOwnerRescheduled(ctx context.Context, released, booked models.Slot) error {
	r.ownerMoves++
	return nil
}
func (r *recordingNotify) SendDailySummary(ctx context.Context) error { return nil }
func (r *recordingNotify) ScheduleDailySummary()                      {}
func (r *recordingNotify) CatchUpDailySummary(ctx context.Context)    {}

type fakeRegistry struct {
	regs map[string]models.Registration
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{regs: make(map[string]models.Registration)}
}

func (f *fakeRegistry) FindByContact(ctx context.Context, contactID string) (*models.Registration, error) {
	reg, ok := f.regs[contactID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &reg, nil
}

func (f *fakeRegistry) Upsert(ctx context.Context, reg models.Registration) error {
	f.regs[reg.ContactID] = reg
	return nil
}

func flowConfig() *config.Config {
	return &config.Config{Timezone: "UTC", HorizonDays: 14}
}

type fixture struct {
	engine   *Engine
	agenda   *fakeAgenda
	notify   *recordingNotify
	registry *fakeRegistry
}

func newFixture(registered bool) *fixture {
	ag := newFakeAgenda()
	nt := &recordingNotify{}
	rg := newFakeRegistry()
	if registered {
		rg.regs["5511999"] = models.Registration{ContactID: "5511999", Name: "Ana Souza"}
	}
	eng := NewEngine(ag, nt, rg, flowConfig())
	eng.Clock = utils.FixedClock{T: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	return &fixture{engine: eng, agenda: ag, notify: nt, registry: rg}
}

func (fx *fixture) send(t *testing.T, input string) *models.Prompt {
	t.Helper()
	reply := fx.engine.HandleMessage(context.Background(), "5511999", "Ana", input)
	if reply == nil {
		t.Fatalf("no reply for input %q", input)
	}
	return reply
}

func TestFirstContactRegistersName(t *testing.T) {
	fx := newFixture(false)

	reply := fx.send(t, "hello")
	if !strings.Contains(reply.Body, "your name") {
		t.Fatalf("expected name question, got %q", reply.Body)
	}

	reply = fx.send(t, "A")
	if !strings.Contains(reply.Body, "full name") {
		t.Fatalf("expected name re-prompt, got %q", reply.Body)
	}

	reply = fx.send(t, "Ana Souza")
	if !strings.Contains(reply.Body, "Ana") || reply.Kind != models.PromptButtons {
		t.Fatalf("expected greeting menu, got %+v", reply)
	}
	if reg, err := fx.registry.FindByContact(context.Background(), "5511999"); err != nil || reg.Name != "Ana Souza" {
		t.Fatalf("registration not stored: %v %+v", err, reg)
	}
}

func TestBookingHappyPath(t *testing.T) {
	fx := newFixture(true)

	reply := fx.send(t, "hi")
	if reply.Kind != models.PromptButtons {
		t.Fatalf("expected main menu, got %+v", reply)
	}

	reply = fx.send(t, "1")
	if reply.Kind != models.PromptList || len(reply.Options) != 2 {
		t.Fatalf("expected week list, got %+v", reply)
	}

	reply = fx.send(t, "1")
	if !strings.Contains(reply.Options[0].Title, "02/03/2026") {
		t.Fatalf("expected day list, got %+v", reply)
	}

	reply = fx.send(t, "1")
	if reply.Options[1].Title != "09:00" {
		t.Fatalf("expected time list, got %+v", reply)
	}

	reply = fx.send(t, "2")
	if !strings.Contains(reply.Body, "09:00") || reply.Options[0].Title != "Confirm" {
		t.Fatalf("expected confirmation, got %+v", reply)
	}

	reply = fx.send(t, "1")
	if !strings.Contains(reply.Body, "booked for 02/03/2026 at 09:00") {
		t.Fatalf("expected booking confirmation, got %q", reply.Body)
	}

	booked, ok := fx.agenda.booked["02/03/2026|09:00"]
	if !ok || booked.PatientName != "Ana" {
		t.Fatalf("slot not booked: %+v", fx.agenda.booked)
	}
	if len(fx.notify.reminders) != 1 || fx.notify.ownerBooked != 1 {
		t.Fatalf("expected reminder and owner notice, got %+v", fx.notify)
	}
}

func TestBackAndCancelAreUniversal(t *testing.T) {
	fx := newFixture(true)

	fx.send(t, "hi")
	fx.send(t, "1")
	fx.send(t, "1") // day list

	reply := fx.send(t, "0")
	if !strings.Contains(reply.Body, msgPickWeekBody) {
		t.Fatalf("expected week prompt after back, got %q", reply.Body)
	}

	fx.send(t, "1") // day list again
	reply = fx.send(t, "back")
	if !strings.Contains(reply.Body, msgPickWeekBody) {
		t.Fatalf("expected word alias to go back, got %q", reply.Body)
	}

	reply = fx.send(t, "cancel")
	if !strings.Contains(reply.Body, msgCancelled) || reply.Kind != models.PromptButtons {
		t.Fatalf("expected cancel back to menu, got %+v", reply)
	}
}

func TestInvalidInputReprompts(t *testing.T) {
	fx := newFixture(true)

	fx.send(t, "hi")
	fx.send(t, "1")

	reply := fx.send(t, "banana")
	if !strings.Contains(reply.Body, "not one of the options") {
		t.Fatalf("expected re-prompt, got %q", reply.Body)
	}
	if reply.Kind != models.PromptList {
		t.Fatalf("re-prompt should repeat the week list, got %+v", reply)
	}
}

func TestCancelFlow(t *testing.T) {
	fx := newFixture(true)
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if _, err := fx.agenda.Book(context.Background(), agenda.BookRequest{ContactID: "5511999", PatientName: "Ana", At: at}); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	fx.send(t, "hi")
	reply := fx.send(t, "3")
	if reply.Kind != models.PromptList || len(reply.Options) != 1 || reply.Options[0].Title != "02/03/2026 at 08:00" {
		t.Fatalf("expected booking list, got %+v", reply)
	}

	reply = fx.send(t, "1")
	if !strings.Contains(reply.Body, "Cancel your appointment on 02/03/2026 at 08:00") {
		t.Fatalf("expected cancel confirmation, got %q", reply.Body)
	}

	// Back from the confirmation returns to the booking list.
	reply = fx.send(t, "0")
	if !strings.Contains(reply.Body, msgPickCancel) {
		t.Fatalf("expected booking list after back, got %q", reply.Body)
	}

	fx.send(t, "1")
	reply = fx.send(t, "1")
	if !strings.Contains(reply.Body, "was cancelled") {
		t.Fatalf("expected cancelled notice, got %q", reply.Body)
	}
	if len(fx.agenda.booked) != 0 {
		t.Fatalf("booking not released: %+v", fx.agenda.booked)
	}
	if len(fx.notify.cancelled) != 1 || fx.notify.ownerCancels != 1 {
		t.Fatalf("expected reminder cleanup and owner notice, got %+v", fx.notify)
	}
}

func TestCancelWithNoBooking(t *testing.T) {
	fx := newFixture(true)

	fx.send(t, "hi")
	reply := fx.send(t, "3")
	if !strings.Contains(reply.Body, msgNoUpcoming) {
		t.Fatalf("expected no-upcoming notice, got %q", reply.Body)
	}
}

func TestRescheduleFlow(t *testing.T) {
	fx := newFixture(true)
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if _, err := fx.agenda.Book(context.Background(), agenda.BookRequest{ContactID: "5511999", PatientName: "Ana", At: at}); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	fx.send(t, "hi")
	reply := fx.send(t, "2")
	if reply.Kind != models.PromptList || len(reply.Options) != 1 {
		t.Fatalf("expected booking list, got %+v", reply)
	}

	reply = fx.send(t, "1")
	if !strings.Contains(reply.Body, "move your appointment on 02/03/2026 at 08:00") {
		t.Fatalf("expected reschedule notice, got %q", reply.Body)
	}

	fx.send(t, "2") // next week
	fx.send(t, "1") // 09/03/2026
	fx.send(t, "1") // 14:00
	reply = fx.send(t, "1")
	if !strings.Contains(reply.Body, "moved to 09/03/2026 at 14:00") {
		t.Fatalf("expected move confirmation, got %q", reply.Body)
	}

	if _, stillThere := fx.agenda.booked["02/03/2026|08:00"]; stillThere {
		t.Fatal("old booking was not released")
	}
	if _, moved := fx.agenda.booked["09/03/2026|14:00"]; !moved {
		t.Fatal("new booking missing")
	}
	if fx.notify.ownerMoves != 1 || len(fx.notify.cancelled) != 1 || len(fx.notify.reminders) != 1 {
		t.Fatalf("expected move notice, reminder swap, got %+v", fx.notify)
	}
}

func TestConflictDuringConfirmReturnsToMenu(t *testing.T) {
	fx := newFixture(true)

	fx.send(t, "hi")
	fx.send(t, "1")
	fx.send(t, "1")
	fx.send(t, "1") // 08:00 on 02/03

	fx.agenda.bookErr = agenda.ErrSlotConflict
	reply := fx.send(t, "1")
	if !strings.Contains(reply.Body, msgSlotJustTaken) {
		t.Fatalf("expected conflict notice, got %q", reply.Body)
	}
	if reply.Kind != models.PromptButtons {
		t.Fatalf("expected main menu after conflict, got %+v", reply)
	}

	// Scratch is cleared, so the next message starts over from the menu.
	reply = fx.send(t, "1")
	if !strings.Contains(reply.Body, msgPickWeekBody) {
		t.Fatalf("expected a fresh week prompt, got %q", reply.Body)
	}
}

func TestRescheduleReleasesOldBeforeBooking(t *testing.T) {
	fx := newFixture(true)
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if _, err := fx.agenda.Book(context.Background(), agenda.BookRequest{ContactID: "5511999", PatientName: "Ana", At: at}); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	fx.send(t, "hi")
	fx.send(t, "2") // booking list
	fx.send(t, "1") // pick the appointment to move
	fx.send(t, "2") // next week
	fx.send(t, "1") // 09/03/2026
	fx.send(t, "1") // 14:00

	fx.agenda.bookErr = agenda.ErrSlotConflict
	reply := fx.send(t, "1")
	if !strings.Contains(reply.Body, msgSlotJustTaken) {
		t.Fatalf("expected conflict notice, got %q", reply.Body)
	}

	// The old slot was freed and its reminders dropped before the new claim
	// was attempted.
	if _, stillThere := fx.agenda.booked["02/03/2026|08:00"]; stillThere {
		t.Fatal("old booking should be released before the new one is claimed")
	}
	if len(fx.notify.cancelled) != 1 {
		t.Fatalf("expected old reminders dropped, got %+v", fx.notify.cancelled)
	}
	if fx.notify.ownerCancels != 1 {
		t.Fatalf("expected owner cancellation notice, got %d", fx.notify.ownerCancels)
	}
	if len(fx.notify.reminders) != 0 {
		t.Fatalf("no new reminder should exist after a failed claim, got %+v", fx.notify.reminders)
	}
}
