package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"task_server/server/attachman/domain"
	commonlog "task_server/server/common/log"
)

// ObjectStore is the durable blob store the service writes file bytes
// to. Put returns the locator under which the object can be fetched,
// copied or deleted later. Get must return domain.ErrObjectNotFound when
// the locator no longer resolves.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, locator string) (io.ReadCloser, error)
	Copy(ctx context.Context, srcLocator, dstKey string) (string, error)
	Delete(ctx context.Context, locator string) error
}

// AttachmentRepository is the relational store for attachment records.
// GetByID, Rename and DeleteByID must return domain.ErrAttachmentNotFound
// when no record matches.
type AttachmentRepository interface {
	Create(ctx context.Context, item domain.Attachment) (domain.Attachment, error)
	GetByID(ctx context.Context, taskID, attachmentID string) (domain.Attachment, error)
	ListByTask(ctx context.Context, taskID string) ([]domain.Attachment, error)
	TotalSizeByTask(ctx context.Context, taskID string) (int64, error)
	Rename(ctx context.Context, taskID, attachmentID, fileName string) (domain.Attachment, error)
	DeleteByID(ctx context.Context, taskID, attachmentID string) error
	DeleteByTask(ctx context.Context, taskID string) error
}

// TaskDirectory is the narrow view of the task domain this service
// needs: whether a task exists at all.
type TaskDirectory interface {
	Exists(ctx context.Context, taskID string) (bool, error)
}

// EventPublisher emits lifecycle events for downstream consumers
// (notifications, activity feeds). Publish failures never fail the
// operation that triggered them.
type EventPublisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

type AttachmentService struct {
	policy domain.Policy
	store  ObjectStore
	repo   AttachmentRepository
	tasks  TaskDirectory
	events EventPublisher
}

func NewAttachmentService(policy domain.Policy, store ObjectStore, repo AttachmentRepository, tasks TaskDirectory, events EventPublisher) *AttachmentService {
	return &AttachmentService{policy: policy, store: store, repo: repo, tasks: tasks, events: events}
}

// Per-item state of an upload batch. Rollback walks the items and undoes
// exactly what each one reached: a recorded item loses its record and
// its object, a stored item only its object.
type uploadState int

const (
	uploadPending uploadState = iota
	uploadStored
	uploadRecorded
)

type uploadItem struct {
	state   uploadState
	locator string
	record  domain.Attachment
}

// Upload accepts a batch of files for a task. The batch is all-or-
// nothing: validation and the quota check run before any write, and a
// mid-batch failure rolls back every object and record this call
// created before propagating the original error. The quota check reads
// the current total fresh and holds no lock, so two concurrent batches
// can together overshoot the quota; the cap is best-effort.
func (s *AttachmentService) Upload(ctx context.Context, taskID string, files []domain.FileUpload, userID string) (domain.AttachmentList, error) {
	if len(files) == 0 {
		return domain.AttachmentList{}, domain.ErrEmptyBatch
	}
	if err := s.ensureTask(ctx, taskID); err != nil {
		return domain.AttachmentList{}, err
	}
	if err := validateTypes(s.policy, files); err != nil {
		return domain.AttachmentList{}, err
	}

	currentTotal, err := s.repo.TotalSizeByTask(ctx, taskID)
	if err != nil {
		return domain.AttachmentList{}, &domain.RepositoryError{Op: "total size", Err: err}
	}
	sizes := make([]int64, 0, len(files))
	for _, f := range files {
		sizes = append(sizes, f.SizeBytes)
	}
	if err := checkQuota(s.policy, currentTotal, sizes); err != nil {
		return domain.AttachmentList{}, err
	}

	items := make([]*uploadItem, 0, len(files))
	for _, f := range files {
		item := &uploadItem{state: uploadPending}
		items = append(items, item)

		locator, err := s.store.Put(ctx, storageKey(f.OriginalName), bytes.NewReader(f.Bytes), f.SizeBytes, f.MediaType)
		if err != nil {
			s.rollback(ctx, items)
			return domain.AttachmentList{}, &domain.StorageError{Op: "put", Err: err}
		}
		item.state = uploadStored
		item.locator = locator

		record, err := s.repo.Create(ctx, domain.Attachment{
			TaskID:      taskID,
			FileName:    f.OriginalName,
			FileType:    f.MediaType,
			FileSize:    f.SizeBytes,
			FileLocator: locator,
			UploadedBy:  userID,
		})
		if err != nil {
			s.rollback(ctx, items)
			return domain.AttachmentList{}, &domain.RepositoryError{Op: "create", Err: err}
		}
		item.state = uploadRecorded
		item.record = record
	}

	result := domain.AttachmentList{Attachments: make([]domain.Attachment, 0, len(items))}
	for _, item := range items {
		result.Attachments = append(result.Attachments, item.record)
		result.TotalSize += item.record.FileSize
	}
	s.publish(ctx, "attachment.uploaded", result)
	return result, nil
}

// rollback undoes, best-effort, everything a failed batch managed to
// create. Cleanup failures are logged and swallowed so the original
// error is what the caller sees.
func (s *AttachmentService) rollback(ctx context.Context, items []*uploadItem) {
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if item.state >= uploadRecorded {
			if err := s.repo.DeleteByID(ctx, item.record.TaskID, item.record.ID); err != nil {
				commonlog.Errorf("rollback attachment record %s: %v", item.record.ID, err)
			}
		}
		if item.state >= uploadStored {
			if err := s.store.Delete(ctx, item.locator); err != nil {
				commonlog.Errorf("rollback stored object %s: %v", item.locator, err)
			}
		}
	}
}

// Get lists a task's attachments. The total is summed over the returned
// records, not fetched with a separate aggregate query.
func (s *AttachmentService) Get(ctx context.Context, taskID string) (domain.AttachmentList, error) {
	records, err := s.repo.ListByTask(ctx, taskID)
	if err != nil {
		return domain.AttachmentList{}, &domain.RepositoryError{Op: "list", Err: err}
	}
	result := domain.AttachmentList{Attachments: records}
	if result.Attachments == nil {
		result.Attachments = []domain.Attachment{}
	}
	for _, item := range records {
		result.TotalSize += item.FileSize
	}
	return result, nil
}

// Delete removes a single attachment. Only the uploader may delete.
// The object goes first: if its removal fails the record stays intact,
// so metadata never points nowhere because of this path. If the record
// delete fails after the object is gone, the dangling record is an
// accepted inconsistency; no retry happens here.
func (s *AttachmentService) Delete(ctx context.Context, taskID, attachmentID, userID string) error {
	att, err := s.repo.GetByID(ctx, taskID, attachmentID)
	if err != nil {
		if errors.Is(err, domain.ErrAttachmentNotFound) {
			return err
		}
		return &domain.RepositoryError{Op: "get", Err: err}
	}
	if att.UploadedBy != userID {
		return domain.ErrForbidden
	}
	if err := s.store.Delete(ctx, att.FileLocator); err != nil {
		return &domain.StorageError{Op: "delete", Err: err}
	}
	if err := s.repo.DeleteByID(ctx, taskID, attachmentID); err != nil {
		return &domain.RepositoryError{Op: "delete", Err: err}
	}
	s.publish(ctx, "attachment.deleted", att)
	return nil
}

// DeleteAllForTask clears a deleted task's attachments. Object removals
// are best-effort per item; the metadata is then dropped in one bulk
// delete. Objects whose removal failed become store garbage.
func (s *AttachmentService) DeleteAllForTask(ctx context.Context, taskID string) error {
	records, err := s.repo.ListByTask(ctx, taskID)
	if err != nil {
		return &domain.RepositoryError{Op: "list", Err: err}
	}
	for _, att := range records {
		if err := s.store.Delete(ctx, att.FileLocator); err != nil {
			commonlog.Warnf("delete object %s for task %s: %v", att.FileLocator, taskID, err)
		}
	}
	if err := s.repo.DeleteByTask(ctx, taskID); err != nil {
		return &domain.RepositoryError{Op: "delete by task", Err: err}
	}
	if len(records) > 0 {
		s.publish(ctx, "attachment.task_cleared", map[string]any{"task_id": taskID, "count": len(records)})
	}
	return nil
}

// CopyAllForTask copies every attachment of the source task onto the
// destination task, with the triggering user recorded as uploader. The
// destination quota is checked once, up front, against the whole source
// total; nothing is copied when it does not fit. After that the copy is
// best-effort per item: individual failures are logged and skipped, and
// only the items that made it are returned. This is a deliberate
// asymmetry with Upload's all-or-nothing batch.
func (s *AttachmentService) CopyAllForTask(ctx context.Context, sourceTaskID, destinationTaskID, userID string) (domain.AttachmentList, error) {
	if err := s.ensureTask(ctx, destinationTaskID); err != nil {
		return domain.AttachmentList{}, err
	}
	sources, err := s.repo.ListByTask(ctx, sourceTaskID)
	if err != nil {
		return domain.AttachmentList{}, &domain.RepositoryError{Op: "list", Err: err}
	}
	result := domain.AttachmentList{Attachments: []domain.Attachment{}}
	if len(sources) == 0 {
		return result, nil
	}

	currentTotal, err := s.repo.TotalSizeByTask(ctx, destinationTaskID)
	if err != nil {
		return domain.AttachmentList{}, &domain.RepositoryError{Op: "total size", Err: err}
	}
	sizes := make([]int64, 0, len(sources))
	for _, src := range sources {
		sizes = append(sizes, src.FileSize)
	}
	if err := checkQuota(s.policy, currentTotal, sizes); err != nil {
		return domain.AttachmentList{}, err
	}

	for _, src := range sources {
		locator, err := s.store.Copy(ctx, src.FileLocator, storageKey(src.FileName))
		if err != nil {
			commonlog.Warnf("copy object %s to task %s: %v", src.FileLocator, destinationTaskID, err)
			continue
		}
		record, err := s.repo.Create(ctx, domain.Attachment{
			TaskID:      destinationTaskID,
			FileName:    src.FileName,
			FileType:    src.FileType,
			FileSize:    src.FileSize,
			FileLocator: locator,
			UploadedBy:  userID,
		})
		if err != nil {
			commonlog.Warnf("record copied attachment %s on task %s: %v", src.ID, destinationTaskID, err)
			if cleanupErr := s.store.Delete(ctx, locator); cleanupErr != nil {
				commonlog.Warnf("remove orphaned copy %s: %v", locator, cleanupErr)
			}
			continue
		}
		result.Attachments = append(result.Attachments, record)
		result.TotalSize += record.FileSize
	}
	if len(result.Attachments) > 0 {
		s.publish(ctx, "attachment.copied", result)
	}
	return result, nil
}

// Download resolves an attachment's locator and opens the stored bytes.
// A missing record and a missing underlying object both come back as
// not-found; the caller cannot tell them apart.
func (s *AttachmentService) Download(ctx context.Context, taskID, attachmentID string) (io.ReadCloser, domain.Attachment, error) {
	att, err := s.repo.GetByID(ctx, taskID, attachmentID)
	if err != nil {
		if errors.Is(err, domain.ErrAttachmentNotFound) {
			return nil, domain.Attachment{}, err
		}
		return nil, domain.Attachment{}, &domain.RepositoryError{Op: "get", Err: err}
	}
	rc, err := s.store.Get(ctx, att.FileLocator)
	if err != nil {
		if errors.Is(err, domain.ErrObjectNotFound) {
			return nil, domain.Attachment{}, err
		}
		return nil, domain.Attachment{}, &domain.StorageError{Op: "get", Err: err}
	}
	return rc, att, nil
}

// Rename changes an attachment's display name. The stored object and
// its locator are untouched; the name only affects listings and the
// download filename.
func (s *AttachmentService) Rename(ctx context.Context, taskID, attachmentID, newName string) (domain.Attachment, error) {
	if strings.TrimSpace(newName) == "" {
		return domain.Attachment{}, errors.New("file name must not be empty")
	}
	att, err := s.repo.Rename(ctx, taskID, attachmentID, newName)
	if err != nil {
		if errors.Is(err, domain.ErrAttachmentNotFound) {
			return domain.Attachment{}, err
		}
		return domain.Attachment{}, &domain.RepositoryError{Op: "rename", Err: err}
	}
	return att, nil
}

func (s *AttachmentService) ensureTask(ctx context.Context, taskID string) error {
	exists, err := s.tasks.Exists(ctx, taskID)
	if err != nil {
		return &domain.RepositoryError{Op: "task lookup", Err: err}
	}
	if !exists {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (s *AttachmentService) publish(ctx context.Context, key string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, key, payload); err != nil {
		commonlog.Warnf("publish %s event: %v", key, err)
	}
}
