package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/share-module/internal/blobstore"
	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/domain/query"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
	"github.com/bigkaa/goartstore/share-module/internal/repository/memstore"
)

// --- Mock repository ---

// mockFileRepo — FileRepository поверх memstore с переопределяемыми
// методами для проверки ошибочных сценариев.
type mockFileRepo struct {
	repository.FileRepository

	createFn       func(ctx context.Context, f *model.FileRecord) error
	findFn         func(ctx context.Context, spec query.Spec) ([]*model.FileRecord, int, error)
	updateFn       func(ctx context.Context, f *model.FileRecord) error
	recordAccessFn func(ctx context.Context, id string, kind model.AccessKind, now time.Time) (*model.FileRecord, error)

	mu        sync.Mutex
	getCalls  int
	findSpecs []query.Spec
}

func newMockRepo() *mockFileRepo {
	return &mockFileRepo{FileRepository: memstore.New(slog.Default())}
}

func (m *mockFileRepo) Create(ctx context.Context, f *model.FileRecord) error {
	if m.createFn != nil {
		return m.createFn(ctx, f)
	}
	return m.FileRepository.Create(ctx, f)
}

func (m *mockFileRepo) GetByID(ctx context.Context, id string) (*model.FileRecord, error) {
	m.mu.Lock()
	m.getCalls++
	m.mu.Unlock()
	return m.FileRepository.GetByID(ctx, id)
}

func (m *mockFileRepo) Find(ctx context.Context, spec query.Spec) ([]*model.FileRecord, int, error) {
	m.mu.Lock()
	m.findSpecs = append(m.findSpecs, spec)
	m.mu.Unlock()
	if m.findFn != nil {
		return m.findFn(ctx, spec)
	}
	return m.FileRepository.Find(ctx, spec)
}

func (m *mockFileRepo) Update(ctx context.Context, f *model.FileRecord) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, f)
	}
	return m.FileRepository.Update(ctx, f)
}

func (m *mockFileRepo) RecordAccess(ctx context.Context, id string, kind model.AccessKind, now time.Time) (*model.FileRecord, error) {
	if m.recordAccessFn != nil {
		return m.recordAccessFn(ctx, id, kind, now)
	}
	return m.FileRepository.RecordAccess(ctx, id, kind, now)
}

// seed сохраняет записи в хранилище.
func (m *mockFileRepo) seed(t *testing.T, recs ...*model.FileRecord) {
	t.Helper()
	for _, r := range recs {
		if err := m.FileRepository.Create(context.Background(), r); err != nil {
			t.Fatalf("seed %s: %v", r.ID, err)
		}
	}
}

// --- Mock blob store ---

// mockBlobs — in-memory blobstore.Store.
type mockBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string

	putErr error
	getErr error
}

func newMockBlobs() *mockBlobs {
	return &mockBlobs{objects: make(map[string][]byte)}
}

func (b *mockBlobs) Put(_ context.Context, container, name string, r io.Reader, _ int64, _ string) (*blobstore.PutResult, error) {
	if b.putErr != nil {
		return nil, b.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.objects[container+"/"+name] = data
	b.mu.Unlock()
	sum := sha256.Sum256(data)
	return &blobstore.PutResult{Size: int64(len(data)), Checksum: hex.EncodeToString(sum[:])}, nil
}

func (b *mockBlobs) Get(_ context.Context, container, name string) (io.ReadCloser, error) {
	if b.getErr != nil {
		return nil, b.getErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[container+"/"+name]
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *mockBlobs) Delete(_ context.Context, container, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, container+"/"+name)
	b.deleted = append(b.deleted, name)
	return nil
}

func (b *mockBlobs) SignedURL(_ context.Context, container, name, downloadName string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://blobs.test/%s/%s?name=%s&ttl=%s", container, name, downloadName, expiry), nil
}

func (b *mockBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// --- Фикстуры ---

var (
	testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	alice = model.Caller{ID: "user-alice", Email: "alice@example.com"}
	bob   = model.Caller{ID: "user-bob", Email: "bob@example.com"}
	carol = model.Caller{ID: "user-carol", Email: "carol@example.com"}
)

// fixedClock возвращает функцию времени с фиксированным значением.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// newRecord создаёт запись владельца с предсказуемыми полями.
func newRecord(id string, owner model.Caller, name, contentType string) *model.FileRecord {
	return &model.FileRecord{
		ID:               id,
		OwnerID:          owner.ID,
		OwnerEmail:       owner.Email,
		FileName:         name,
		OriginalFileName: name,
		ContentType:      contentType,
		FileSize:         100,
		BlobName:         id + ".bin",
		ContainerName:    "files",
		SharedWith:       []string{},
		Tags:             []string{},
		AIKeywords:       []string{},
		CreatedDate:      testNow.Add(-48 * time.Hour),
		UpdatedDate:      testNow.Add(-48 * time.Hour),
	}
}
