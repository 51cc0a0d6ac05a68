package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"task_server/server/attachman/domain"
)

type AttachmentRepository struct {
	pool *pgxpool.Pool
}

func NewAttachmentRepository(pool *pgxpool.Pool) *AttachmentRepository {
	return &AttachmentRepository{pool: pool}
}

func (r *AttachmentRepository) Create(ctx context.Context, item domain.Attachment) (domain.Attachment, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO attachments(task_id, file_name, file_type, file_size, file_locator, uploaded_by)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING id, uploaded_at
	`, item.TaskID, item.FileName, item.FileType, item.FileSize, item.FileLocator, item.UploadedBy).Scan(&item.ID, &item.UploadedAt)
	return item, err
}

func (r *AttachmentRepository) GetByID(ctx context.Context, taskID, attachmentID string) (domain.Attachment, error) {
	var item domain.Attachment
	err := r.pool.QueryRow(ctx, `
		SELECT id, task_id, file_name, file_type, file_size, file_locator, uploaded_by, uploaded_at
		FROM attachments
		WHERE task_id=$1 AND id=$2
	`, taskID, attachmentID).Scan(&item.ID, &item.TaskID, &item.FileName, &item.FileType, &item.FileSize, &item.FileLocator, &item.UploadedBy, &item.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attachment{}, domain.ErrAttachmentNotFound
	}
	if err != nil {
		return domain.Attachment{}, err
	}
	return item, nil
}

func (r *AttachmentRepository) ListByTask(ctx context.Context, taskID string) ([]domain.Attachment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, task_id, file_name, file_type, file_size, file_locator, uploaded_by, uploaded_at
		FROM attachments
		WHERE task_id=$1
		ORDER BY uploaded_at ASC, id ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Attachment, 0)
	for rows.Next() {
		var item domain.Attachment
		if err := rows.Scan(&item.ID, &item.TaskID, &item.FileName, &item.FileType, &item.FileSize, &item.FileLocator, &item.UploadedBy, &item.UploadedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *AttachmentRepository) TotalSizeByTask(ctx context.Context, taskID string) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(file_size), 0)
		FROM attachments
		WHERE task_id=$1
	`, taskID).Scan(&total)
	return total, err
}

func (r *AttachmentRepository) Rename(ctx context.Context, taskID, attachmentID, fileName string) (domain.Attachment, error) {
	var item domain.Attachment
	err := r.pool.QueryRow(ctx, `
		UPDATE attachments
		SET file_name=$3
		WHERE task_id=$1 AND id=$2
		RETURNING id, task_id, file_name, file_type, file_size, file_locator, uploaded_by, uploaded_at
	`, taskID, attachmentID, fileName).Scan(&item.ID, &item.TaskID, &item.FileName, &item.FileType, &item.FileSize, &item.FileLocator, &item.UploadedBy, &item.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attachment{}, domain.ErrAttachmentNotFound
	}
	if err != nil {
		return domain.Attachment{}, err
	}
	return item, nil
}

func (r *AttachmentRepository) DeleteByID(ctx context.Context, taskID, attachmentID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM attachments
		WHERE task_id=$1 AND id=$2
	`, taskID, attachmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttachmentNotFound
	}
	return nil
}

func (r *AttachmentRepository) DeleteByTask(ctx context.Context, taskID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM attachments
		WHERE task_id=$1
	`, taskID)
	return err
}
