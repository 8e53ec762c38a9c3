package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/billminder/billminder/internal/models"
)

const defaultNotificationConfigKey = "default"

// NotificationConfigRepository handles the server-wide notification
// defaults in the database.
type NotificationConfigRepository struct {
	db *DB
}

// NewNotificationConfigRepository creates a new notification config repository.
func NewNotificationConfigRepository(db *DB) *NotificationConfigRepository {
	return &NotificationConfigRepository{db: db}
}

// Get retrieves the default notification config.
func (r *NotificationConfigRepository) Get(ctx context.Context) (*models.NotificationConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT config_key, default_frequency, created_at, updated_at
		FROM notification_config WHERE config_key = $1
	`, defaultNotificationConfigKey)
	c := &models.NotificationConfig{}
	err := row.Scan(&c.ConfigKey, &c.DefaultFrequency, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification config: %w", err)
	}
	return c, nil
}

// Set upserts the default notification config.
func (r *NotificationConfigRepository) Set(ctx context.Context, c *models.NotificationConfig) error {
	if !c.DefaultFrequency.Valid() {
		return fmt.Errorf("invalid default frequency %q", c.DefaultFrequency)
	}
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_config (config_key, default_frequency, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (config_key) DO UPDATE SET
			default_frequency = EXCLUDED.default_frequency,
			updated_at = EXCLUDED.updated_at
	`, defaultNotificationConfigKey, c.DefaultFrequency, now, now)
	if err != nil {
		return fmt.Errorf("set notification config: %w", err)
	}
	return nil
}
