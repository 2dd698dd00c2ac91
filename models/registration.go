package models

import (
	"strings"
	"time"
)

// Registration is a first-contact patient profile, keyed by the WhatsApp
// sender phone number.
type Registration struct {
	ContactID    string    `bson:"_id" json:"contactId"`
	Name         string    `bson:"name" json:"name"`
	RegisteredAt time.Time `bson:"registeredAt" json:"registeredAt"`
	Origin       string    `bson:"origin,omitempty" json:"origin,omitempty"`
	Notes        string    `bson:"notes,omitempty" json:"notes,omitempty"`
}

// FirstName returns the leading name token, used for greetings.
func (r Registration) FirstName() string {
	fields := strings.Fields(r.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
