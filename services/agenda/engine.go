// File: services/agenda/engine.go
package agenda

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"agendabot/models"
	"agendabot/utils"
)

// blocks resolves the configured consultation blocks for a working day.
func (s *DefaultAgendaService) blocks() ([]dayBlock, error) {
	morning, err := newDayBlock(s.Cfg.MorningStart, s.Cfg.MorningEnd)
	if err != nil {
		return nil, fmt.Errorf("morning block: %w", err)
	}
	afternoon, err := newDayBlock(s.Cfg.AfternoonStart, s.Cfg.AfternoonEnd)
	if err != nil {
		return nil, fmt.Errorf("afternoon block: %w", err)
	}
	return []dayBlock{morning, afternoon}, nil
}

// daySlots materializes every slot of one working day; nil on non-business
// days.
func (s *DefaultAgendaService) daySlots(d time.Time, blocks []dayBlock, workdays map[time.Weekday]bool) []models.Slot {
	if !workdays[d.Weekday()] {
		return nil
	}
	var slots []models.Slot
	for _, b := range blocks {
		for _, start := range b.slotStarts(d, s.Cfg.SlotMinutes, s.Cfg.RestMinutes) {
			slots = append(slots, models.NewSlotAt(start))
		}
	}
	return slots
}

// horizonSlots materializes every slot of the rolling horizon starting today.
func (s *DefaultAgendaService) horizonSlots() ([]models.Slot, error) {
	blocks, err := s.blocks()
	if err != nil {
		return nil, err
	}
	workdays := s.Cfg.BusinessWeekdays()

	now := s.Clock.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var slots []models.Slot
	for i := 0; i < s.Cfg.HorizonDays; i++ {
		slots = append(slots, s.daySlots(day.AddDate(0, 0, i), blocks, workdays)...)
	}
	return slots, nil
}

// GenerateHorizon materializes the rolling slot horizon. Rows that already
// exist keep their state, so bookings and day-off markings survive every run.
func (s *DefaultAgendaService) GenerateHorizon(ctx context.Context) (int, error) {
	logger := utils.GetLogger()

	slots, err := s.horizonSlots()
	if err != nil {
		return 0, err
	}
	inserted, err := s.Repo.InsertMissing(ctx, slots)
	if err != nil {
		return inserted, fmt.Errorf("failed to materialize horizon: %w", err)
	}
	if inserted > 0 {
		s.invalidateListings(ctx)
	}
	logger.Info("agenda horizon generated",
		zap.Int("candidates", len(slots)),
		zap.Int("inserted", inserted))
	return inserted, nil
}

// ExtendHorizonByOneDay runs once a day and materializes only the day that
// just rolled into the horizon. Insert-only, so reruns and overlaps with
// GenerateHorizon are harmless.
func (s *DefaultAgendaService) ExtendHorizonByOneDay(ctx context.Context) (int, error) {
	blocks, err := s.blocks()
	if err != nil {
		return 0, err
	}
	now := s.Clock.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, s.Cfg.HorizonDays)

	slots := s.daySlots(day, blocks, s.Cfg.BusinessWeekdays())
	if len(slots) == 0 {
		return 0, nil
	}
	inserted, err := s.Repo.InsertMissing(ctx, slots)
	if err != nil {
		return inserted, fmt.Errorf("failed to extend horizon: %w", err)
	}
	if inserted > 0 {
		s.invalidateListings(ctx)
	}
	utils.GetLogger().Info("agenda horizon extended",
		zap.String("date", day.Format(models.DateLayout)),
		zap.Int("inserted", inserted))
	return inserted, nil
}

// AvailableDays lists the distinct dates of a week window that still have at
// least one open slot, in chronological order.
func (s *DefaultAgendaService) AvailableDays(ctx context.Context, week int) ([]string, error) {
	slots, err := s.ListAvailable(ctx, week)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, 7)
	var days []string
	for _, slot := range slots {
		if !seen[slot.Date] {
			seen[slot.Date] = true
			days = append(days, slot.Date)
		}
	}
	return days, nil
}

// AvailableTimesOn lists the open slots of a single date, soonest first.
func (s *DefaultAgendaService) AvailableTimesOn(ctx context.Context, date string) ([]models.Slot, error) {
	day, err := time.ParseInLocation(models.DateLayout, date, s.Cfg.Location())
	if err != nil {
		return nil, fmt.Errorf("malformed date %q: %w", date, err)
	}
	from := day
	if now := s.Clock.Now(); now.After(from) {
		from = now
	}
	return s.Repo.ListAvailableInRange(ctx, from, day.AddDate(0, 0, 1))
}

// MarkDayOff blocks all remaining open slots of a date. Existing bookings on
// that date are left alone and must be cancelled individually.
func (s *DefaultAgendaService) MarkDayOff(ctx context.Context, date string) (int64, error) {
	if _, err := time.ParseInLocation(models.DateLayout, date, s.Cfg.Location()); err != nil {
		return 0, fmt.Errorf("malformed date %q: %w", date, err)
	}
	blocked, err := s.Repo.MarkDayOff(ctx, date)
	if err != nil {
		return 0, err
	}
	if blocked > 0 {
		s.invalidateListings(ctx)
	}
	return blocked, nil
}
