package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/vapor-share-api/internal/models"
	"github.com/noah-isme/vapor-share-api/internal/repository"
	"github.com/noah-isme/vapor-share-api/pkg/storage"
)

// memoryFileStore mimics the files table, including the conditional claim update.
type memoryFileStore struct {
	mu        sync.Mutex
	records   map[string]*models.FileRecord
	now       func() time.Time
	createErr error
	listErr   error
}

func newMemoryFileStore() *memoryFileStore {
	return &memoryFileStore{records: map[string]*models.FileRecord{}, now: time.Now}
}

func (s *memoryFileStore) liveLocked(code string) *models.FileRecord {
	for _, r := range s.records {
		if r.AccessCode == code && !r.IsAccessed && r.ExpiresAt.After(s.now()) {
			return r
		}
	}
	return nil
}

func (s *memoryFileStore) CodeInUse(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.AccessCode == code && !r.IsAccessed {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryFileStore) Create(ctx context.Context, rec models.NewFileRecord) (*models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	for _, r := range s.records {
		if r.AccessCode == rec.AccessCode && !r.IsAccessed {
			return nil, repository.ErrDuplicateAccessCode
		}
	}
	now := s.now()
	objectID, url := rec.StorageObjectID, rec.StorageURL
	record := &models.FileRecord{
		ID:               rec.ID,
		UserID:           rec.UserID,
		OriginalFilename: rec.OriginalFilename,
		FileSize:         rec.FileSize,
		MimeType:         rec.MimeType,
		StorageObjectID:  &objectID,
		StorageURL:       &url,
		AccessCode:       rec.AccessCode,
		CreatedAt:        now,
		ExpiresAt:        now.Add(rec.Retention),
		SenderEmail:      rec.SenderEmail,
		RecipientEmail:   rec.RecipientEmail,
	}
	s.records[record.ID] = record
	out := *record
	return &out, nil
}

func (s *memoryFileStore) seed(r models.FileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = &r
}

func (s *memoryFileStore) get(id string) models.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.records[id]
}

func (s *memoryFileStore) FindLiveByCode(ctx context.Context, code string) (*models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.liveLocked(code)
	if r == nil {
		return nil, sql.ErrNoRows
	}
	out := *r
	return &out, nil
}

func (s *memoryFileStore) Claim(ctx context.Context, code string) (*models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.liveLocked(code)
	if r == nil {
		return nil, sql.ErrNoRows
	}
	now := s.now()
	r.IsAccessed = true
	r.AccessedAt = &now
	out := *r
	return &out, nil
}

func (s *memoryFileStore) ListSweepCandidates(ctx context.Context, after models.SweepCursor, limit int) ([]models.SweepCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.SweepCandidate
	for _, r := range s.records {
		if r.StorageObjectID == nil {
			continue
		}
		if !r.IsAccessed && r.ExpiresAt.After(s.now()) {
			continue
		}
		if !after.CreatedAt.IsZero() {
			if r.CreatedAt.Before(after.CreatedAt) || (r.CreatedAt.Equal(after.CreatedAt) && r.ID <= after.ID) {
				continue
			}
		}
		out = append(out, models.SweepCandidate{ID: r.ID, StorageObjectID: *r.StorageObjectID, CreatedAt: r.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryFileStore) ClearBlobReference(ctx context.Context, id, objectID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.StorageObjectID == nil || *r.StorageObjectID != objectID {
		return false, nil
	}
	r.StorageObjectID = nil
	r.StorageURL = nil
	r.Deleted = true
	return true, nil
}

// stubBlobStore keeps blobs in memory and treats deleting an absent blob as success.
type stubBlobStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	puts      []storage.PutInput
	deletes   []string
	putErr    error
	deleteErr map[string]error
}

func newStubBlobStore() *stubBlobStore {
	return &stubBlobStore{objects: map[string][]byte{}, deleteErr: map[string]error{}}
}

func (b *stubBlobStore) Put(ctx context.Context, in storage.PutInput) (storage.Object, error) {
	if b.putErr != nil {
		return storage.Object{}, b.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return storage.Object{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := "raw:" + in.Key
	b.objects[id] = data
	b.puts = append(b.puts, in)
	return storage.Object{ID: id, URL: "https://blobs.example/" + in.Key}, nil
}

func (b *stubBlobStore) Delete(ctx context.Context, objectID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes = append(b.deletes, objectID)
	if err := b.deleteErr[objectID]; err != nil {
		return err
	}
	delete(b.objects, objectID)
	return nil
}

func (b *stubBlobStore) Provider() string { return "stub" }

func (b *stubBlobStore) has(objectID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[objectID]
	return ok
}

func (b *stubBlobStore) deleteCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.deletes)
}

var errStub = errors.New("stub failure")
