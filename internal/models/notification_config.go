package models

import "time"

// NotificationConfig holds server-wide notification defaults applied to
// devices that have not saved their own settings yet.
type NotificationConfig struct {
	ConfigKey        string            `json:"config_key"`
	DefaultFrequency ReminderFrequency `json:"default_frequency"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}
