package syncer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/billminder/billminder/internal/models"
)

// Remote is the authoritative store the reconciler pushes to and pulls from.
type Remote interface {
	Upsert(ctx context.Context, tasks []*models.Task) error
	GetByUserID(ctx context.Context, userID uuid.UUID, taskType *models.TaskType, status *models.TaskStatus) ([]*models.Task, error)
}

// Local is the device-side cache of the task list.
type Local interface {
	Tasks(ctx context.Context, deviceID string) []*models.Task
	SaveTasks(ctx context.Context, deviceID string, tasks []*models.Task) error
}

// Reconciler merges a device's cached task list with the remote store.
// Push happens before pull so local edits are never silently discarded by
// an incoming snapshot. Conflict policy is last push wins, row by row.
type Reconciler struct {
	remote Remote
	local  Local
	log    *zap.Logger
}

// New creates a reconciler.
func New(remote Remote, local Local, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{remote: remote, local: local, log: log}
}

// Sync pushes the device's cached tasks to the remote store, then pulls the
// full remote list back and replaces the cache with it. On any remote
// failure the cached list is returned unchanged alongside the error, so the
// device keeps working offline.
func (r *Reconciler) Sync(ctx context.Context, userID uuid.UUID, deviceID string) ([]*models.Task, error) {
	local := r.local.Tasks(ctx, deviceID)

	// An empty cache pushes nothing. Pushing an empty list is a no-op
	// anyway, but skipping it keeps first-sync logs clean.
	if len(local) > 0 {
		if err := r.remote.Upsert(ctx, local); err != nil {
			r.log.Warn("sync_push_failed",
				zap.String("user_id", userID.String()),
				zap.String("device_id", deviceID),
				zap.Int("task_count", len(local)),
				zap.Error(err),
			)
			return local, fmt.Errorf("sync push: %w", err)
		}
	}

	remote, err := r.remote.GetByUserID(ctx, userID, nil, nil)
	if err != nil {
		r.log.Warn("sync_pull_failed",
			zap.String("user_id", userID.String()),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return local, fmt.Errorf("sync pull: %w", err)
	}

	// A cache write failure is not a sync failure. The remote list is
	// already correct; the next sync repairs the cache.
	if err := r.local.SaveTasks(ctx, deviceID, remote); err != nil {
		r.log.Warn("sync_cache_write_failed",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}

	r.log.Info("sync_completed",
		zap.String("user_id", userID.String()),
		zap.String("device_id", deviceID),
		zap.Int("pushed", len(local)),
		zap.Int("pulled", len(remote)),
	)

	return remote, nil
}
