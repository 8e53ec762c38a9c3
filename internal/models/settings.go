package models

import "time"

// ReminderFrequency controls how many lead-up reminders a bill gets.
type ReminderFrequency string

const (
	ReminderFrequencyOff       ReminderFrequency = "off"
	ReminderFrequencyDueOnly   ReminderFrequency = "due-only"
	ReminderFrequencyUrgentDue ReminderFrequency = "urgent-due"
	ReminderFrequencyThreeDay  ReminderFrequency = "3-day"
	ReminderFrequencyFiveDay   ReminderFrequency = "5-day"
)

// Valid reports whether f is one of the known frequencies.
func (f ReminderFrequency) Valid() bool {
	switch f {
	case ReminderFrequencyOff, ReminderFrequencyDueOnly, ReminderFrequencyUrgentDue,
		ReminderFrequencyThreeDay, ReminderFrequencyFiveDay:
		return true
	}
	return false
}

// NotificationSettings is the per-device notification preference object.
// A nil or zero-valued settings object means notifications are disabled;
// the scheduler never fires without explicit, well-formed settings.
type NotificationSettings struct {
	Enabled   bool              `json:"enabled"`
	Frequency ReminderFrequency `json:"frequency"`
}

// AppSettings is the per-device settings singleton.
type AppSettings struct {
	Notifications *NotificationSettings `json:"notifications,omitempty"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// NotificationsActive reports whether reminders may be scheduled at all.
func (s *AppSettings) NotificationsActive() bool {
	if s == nil || s.Notifications == nil {
		return false
	}
	return s.Notifications.Enabled && s.Notifications.Frequency != ReminderFrequencyOff
}
