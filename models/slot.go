package models

import (
	"fmt"
	"time"
)

// Wire layouts for the slot identity columns. The pair (Date, StartTime)
// uniquely identifies a slot.
const (
	DateLayout = "02/01/2006"
	TimeLayout = "15:04"
)

// Slot statuses.
const (
	SlotAvailable = "AVAILABLE"
	SlotBooked    = "BOOKED"
	SlotDayOff    = "DAY_OFF"
)

// Slot is one bookable (or blocked) unit of time. StartAt duplicates the
// (Date, StartTime) pair as a real instant so range queries and sorting stay
// on the database side.
type Slot struct {
	Date        string    `bson:"date" json:"date"`
	StartTime   string    `bson:"startTime" json:"startTime"`
	StartAt     time.Time `bson:"startAt" json:"startAt"`
	PatientName string    `bson:"patientName,omitempty" json:"patientName,omitempty"`
	ContactID   string    `bson:"contactId,omitempty" json:"contactId,omitempty"`
	Status      string    `bson:"status" json:"status"`
	Origin      string    `bson:"origin,omitempty" json:"origin,omitempty"`
	Notes       string    `bson:"notes,omitempty" json:"notes,omitempty"`
}

// NewSlotAt builds an AVAILABLE slot for the given instant.
func NewSlotAt(at time.Time) Slot {
	return Slot{
		Date:      at.Format(DateLayout),
		StartTime: at.Format(TimeLayout),
		StartAt:   at,
		Status:    SlotAvailable,
	}
}

// Instant resolves the slot's start as a time.Time in the given location.
func (s Slot) Instant(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.StartTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("slot %s %s has malformed identity: %w", s.Date, s.StartTime, err)
	}
	return t, nil
}

// SlotKey formats an instant into the (date, startTime) identity pair.
func SlotKey(at time.Time) (date, startTime string) {
	return at.Format(DateLayout), at.Format(TimeLayout)
}
