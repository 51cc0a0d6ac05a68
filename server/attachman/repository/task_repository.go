package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskRepository is the narrow slice of the task domain this service
// reads. Tasks are owned and written elsewhere; here they are only
// looked up to confirm an upload or copy target exists. Archived tasks
// still exist, their attachments are retained.
type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) Exists(ctx context.Context, taskID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM tasks WHERE id=$1)
	`, taskID).Scan(&exists)
	return exists, err
}
