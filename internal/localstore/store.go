package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/billminder/billminder/internal/kv"
	"github.com/billminder/billminder/internal/models"
)

// KV is the key-value collaborator the store persists through.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

const (
	keyTasks    = "tasks"
	keyUser     = "user"
	keySettings = "settings"
	keyBudgets  = "budgets"
)

// Store holds a device's four JSON blobs (tasks, user, settings, budgets)
// under fixed keys. Reads are fail-soft: a storage error or malformed blob
// is logged and an empty default is returned, so callers never crash on
// storage trouble. Writes return their errors.
type Store struct {
	kv  KV
	log *zap.Logger
}

// New creates a store over the given key-value collaborator.
func New(kvClient KV, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kvClient, log: log}
}

func deviceKey(deviceID, blob string) string {
	return fmt.Sprintf("device:%s:%s", deviceID, blob)
}

// Tasks returns the device's task list, or an empty list on any failure.
func (s *Store) Tasks(ctx context.Context, deviceID string) []*models.Task {
	var tasks []*models.Task
	if !s.read(ctx, deviceID, keyTasks, &tasks) {
		return []*models.Task{}
	}
	return tasks
}

// SaveTasks replaces the device's task list wholesale.
func (s *Store) SaveTasks(ctx context.Context, deviceID string, tasks []*models.Task) error {
	return s.write(ctx, deviceID, keyTasks, tasks)
}

// Settings returns the device's settings, or nil when absent or malformed.
// A nil settings object means "notifications disabled" downstream.
func (s *Store) Settings(ctx context.Context, deviceID string) *models.AppSettings {
	var settings models.AppSettings
	if !s.read(ctx, deviceID, keySettings, &settings) {
		return nil
	}
	return &settings
}

// SaveSettings replaces the device's settings object.
func (s *Store) SaveSettings(ctx context.Context, deviceID string, settings *models.AppSettings) error {
	return s.write(ctx, deviceID, keySettings, settings)
}

// User returns the device's cached user object, or nil.
func (s *Store) User(ctx context.Context, deviceID string) *models.User {
	var user models.User
	if !s.read(ctx, deviceID, keyUser, &user) {
		return nil
	}
	return &user
}

// SaveUser caches the signed-in user on the device.
func (s *Store) SaveUser(ctx context.Context, deviceID string, user *models.User) error {
	return s.write(ctx, deviceID, keyUser, user)
}

// Budgets returns the device's budget list, or an empty list on any failure.
func (s *Store) Budgets(ctx context.Context, deviceID string) []*models.Budget {
	var budgets []*models.Budget
	if !s.read(ctx, deviceID, keyBudgets, &budgets) {
		return []*models.Budget{}
	}
	return budgets
}

// SaveBudgets replaces the device's budget list wholesale.
func (s *Store) SaveBudgets(ctx context.Context, deviceID string, budgets []*models.Budget) error {
	return s.write(ctx, deviceID, keyBudgets, budgets)
}

// Wipe removes every blob for the device. Called before remote sign-out so a
// previous account's data never leaks into the next session.
func (s *Store) Wipe(ctx context.Context, deviceID string) error {
	keys := []string{
		deviceKey(deviceID, keyTasks),
		deviceKey(deviceID, keyUser),
		deviceKey(deviceID, keySettings),
		deviceKey(deviceID, keyBudgets),
	}
	if err := s.kv.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("wipe device %s: %w", deviceID, err)
	}
	return nil
}

// read unmarshals one blob into out. Returns false (after logging) on any
// miss, storage error, or malformed JSON.
func (s *Store) read(ctx context.Context, deviceID, blob string, out any) bool {
	key := deviceKey(deviceID, blob)
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return false
	}
	if err != nil {
		s.log.Warn("localstore_read_failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.log.Warn("localstore_blob_malformed",
			zap.String("key", key),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (s *Store) write(ctx context.Context, deviceID, blob string, v any) error {
	key := deviceKey(deviceID, blob)
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
