package models

import "time"

// KindPatientReminder is the only job kind persisted to the reminder log;
// owner notices and the daily summary deliver immediately through the queue.
const KindPatientReminder = "patient_reminder"

// ReminderJob is a persisted, time-triggered notification task. A nil SentAt
// means the job is still pending; fired jobs are removed from the log.
type ReminderJob struct {
	ID            string     `bson:"_id" json:"id"`
	ScheduledAt   time.Time  `bson:"scheduledAt" json:"scheduledAt"`
	AppointmentAt time.Time  `bson:"appointmentAt" json:"appointmentAt"`
	ContactID     string     `bson:"contactId" json:"contactId"`
	PatientName   string     `bson:"patientName" json:"patientName"`
	Kind          string     `bson:"kind" json:"kind"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	SentAt        *time.Time `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
}
