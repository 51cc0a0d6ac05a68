package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"task_server/server/attachman/domain"
)

// memStore is an in-memory stand-in for the object store. Failure
// injection is per operation: failPutAt/failCopyAt trip on the Nth call
// (zero-based), failDelete fails every delete.
type memStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	putCalls   int
	copyCalls  int
	failPutAt  int
	failCopyAt int
	failDelete bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, failPutAt: -1, failCopyAt: -1}
}

func (s *memStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := s.putCalls
	s.putCalls++
	if s.failPutAt >= 0 && call == s.failPutAt {
		return "", errors.New("object store is down")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.objects[key] = data
	return key, nil
}

func (s *memStore) Get(ctx context.Context, locator string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[locator]
	if !ok {
		return nil, domain.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) Copy(ctx context.Context, srcLocator, dstKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := s.copyCalls
	s.copyCalls++
	if s.failCopyAt >= 0 && call == s.failCopyAt {
		return "", errors.New("copy failed")
	}
	data, ok := s.objects[srcLocator]
	if !ok {
		return "", domain.ErrObjectNotFound
	}
	s.objects[dstKey] = append([]byte(nil), data...)
	return dstKey, nil
}

func (s *memStore) Delete(ctx context.Context, locator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete {
		return errors.New("delete failed")
	}
	delete(s.objects, locator)
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// memRepo is an in-memory attachment repository keeping insertion
// order, so listings behave like the SQL implementation's uploaded_at
// ordering.
type memRepo struct {
	mu           sync.Mutex
	seq          int
	items        []domain.Attachment
	createCalls  int
	failCreateAt int
}

func newMemRepo() *memRepo {
	return &memRepo{failCreateAt: -1}
}

func (r *memRepo) Create(ctx context.Context, item domain.Attachment) (domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call := r.createCalls
	r.createCalls++
	if r.failCreateAt >= 0 && call == r.failCreateAt {
		return domain.Attachment{}, errors.New("metadata store is down")
	}
	r.seq++
	item.ID = fmt.Sprintf("att-%d", r.seq)
	item.UploadedAt = time.Now()
	r.items = append(r.items, item)
	return item, nil
}

func (r *memRepo) GetByID(ctx context.Context, taskID, attachmentID string) (domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.TaskID == taskID && item.ID == attachmentID {
			return item, nil
		}
	}
	return domain.Attachment{}, domain.ErrAttachmentNotFound
}

func (r *memRepo) ListByTask(ctx context.Context, taskID string) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Attachment, 0)
	for _, item := range r.items {
		if item.TaskID == taskID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memRepo) TotalSizeByTask(ctx context.Context, taskID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, item := range r.items {
		if item.TaskID == taskID {
			total += item.FileSize
		}
	}
	return total, nil
}

func (r *memRepo) Rename(ctx context.Context, taskID, attachmentID, fileName string) (domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, item := range r.items {
		if item.TaskID == taskID && item.ID == attachmentID {
			r.items[i].FileName = fileName
			return r.items[i], nil
		}
	}
	return domain.Attachment{}, domain.ErrAttachmentNotFound
}

func (r *memRepo) DeleteByID(ctx context.Context, taskID, attachmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, item := range r.items {
		if item.TaskID == taskID && item.ID == attachmentID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrAttachmentNotFound
}

func (r *memRepo) DeleteByTask(ctx context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	for _, item := range r.items {
		if item.TaskID != taskID {
			kept = append(kept, item)
		}
	}
	r.items = kept
	return nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type staticTasks struct {
	existing map[string]bool
}

func (t *staticTasks) Exists(ctx context.Context, taskID string) (bool, error) {
	return t.existing[taskID], nil
}

type capturePublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *capturePublisher) Publish(ctx context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}
