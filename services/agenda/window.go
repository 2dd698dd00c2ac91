// File: services/agenda/window.go
package agenda

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScheduleWindow is a half-open [From, To) interval covering one calendar
// week of the booking horizon. Weeks start on Monday; week 0 is the current
// week with its lower bound clamped to now, so past slots never surface.
type ScheduleWindow struct {
	From time.Time
	To   time.Time
}

// WindowForWeek computes the listing window for a week offset from now.
func WindowForWeek(now time.Time, week int) ScheduleWindow {
	monday := startOfWeek(now)
	from := monday.AddDate(0, 0, 7*week)
	to := from.AddDate(0, 0, 7)
	if from.Before(now) {
		from = now
	}
	return ScheduleWindow{From: from, To: to}
}

func startOfWeek(t time.Time) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := int(midnight.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return midnight.AddDate(0, 0, -offset)
}

// dayBlock is one contiguous run of consultation time within a working day.
type dayBlock struct {
	startHour, startMin int
	endHour, endMin     int
}

func parseHHMM(s string) (hour, min int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed clock time %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed clock time %q", s)
	}
	min, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed clock time %q", s)
	}
	return hour, min, nil
}

func newDayBlock(start, end string) (dayBlock, error) {
	var b dayBlock
	var err error
	if b.startHour, b.startMin, err = parseHHMM(start); err != nil {
		return b, err
	}
	if b.endHour, b.endMin, err = parseHHMM(end); err != nil {
		return b, err
	}
	return b, nil
}

// slotStarts walks the block in slot+rest strides and yields every start that
// still fits a whole slot before the block closes.
func (b dayBlock) slotStarts(day time.Time, slotMinutes, restMinutes int) []time.Time {
	start := time.Date(day.Year(), day.Month(), day.Day(), b.startHour, b.startMin, 0, 0, day.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), b.endHour, b.endMin, 0, 0, day.Location())

	var starts []time.Time
	for t := start; !t.Add(time.Duration(slotMinutes) * time.Minute).After(end); t = t.Add(time.Duration(slotMinutes+restMinutes) * time.Minute) {
		starts = append(starts, t)
	}
	return starts
}
