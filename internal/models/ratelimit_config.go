package models

import "time"

// RatelimitConfig is the single-row rate limit setting. Rate uses the
// ulule/limiter formatted syntax, e.g. "5-S" or "100-M".
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key"`
	Rate      string    `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
