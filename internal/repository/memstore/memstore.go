// Пакет memstore — потокобезопасное in-memory хранилище метаданных файлов.
//
// Используется при FS_METADATA_BACKEND=memory (локальная разработка,
// демо-стенды) и в тестах сервисов и обработчиков.
// Не персистентное: содержимое теряется при рестарте.
package memstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/domain/query"
	"github.com/bigkaa/goartstore/share-module/internal/domain/scoring"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
)

// Store — in-memory реализация repository.FileRepository.
// sync.RWMutex: конкурентное чтение, эксклюзивная запись.
type Store struct {
	mu     sync.RWMutex
	files  map[string]*model.FileRecord // file_id → запись
	logger *slog.Logger
}

// New создаёт пустое хранилище.
func New(logger *slog.Logger) *Store {
	return &Store{
		files:  make(map[string]*model.FileRecord),
		logger: logger.With(slog.String("component", "memstore")),
	}
}

// Create добавляет копию записи.
func (s *Store) Create(_ context.Context, f *model.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[f.ID]; ok {
		return repository.ErrAlreadyExists
	}
	if f.Version == 0 {
		f.Version = 1
	}
	s.files[f.ID] = f.Clone()
	return nil
}

// GetByID возвращает копию записи.
func (s *Store) GetByID(_ context.Context, id string) (*model.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return f.Clone(), nil
}

// Find применяет спецификацию к снимку хранилища.
func (s *Store) Find(_ context.Context, spec query.Spec) ([]*model.FileRecord, int, error) {
	s.mu.RLock()
	snapshot := make([]*model.FileRecord, 0, len(s.files))
	for _, f := range s.files {
		if spec.Predicate.Match(f) {
			snapshot = append(snapshot, f.Clone())
		}
	}
	s.mu.RUnlock()

	// Предикат уже проверен, Apply отвечает за порядок и окно
	items, total := query.Apply(query.Spec{
		Predicate: query.Predicate{IncludeArchived: true},
		Order:     spec.Order,
		Offset:    spec.Offset,
		Limit:     spec.Limit,
	}, snapshot)
	return items, total, nil
}

// Update заменяет изменяемые поля при совпадении версии.
func (s *Store) Update(_ context.Context, f *model.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.files[f.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Version != f.Version {
		return repository.ErrConflict
	}

	next := cur.Clone()
	next.FileName = f.FileName
	next.Description = f.Description
	next.Tags = append([]string(nil), f.Tags...)
	next.IsPublic = f.IsPublic
	next.IsShared = f.IsShared
	next.SharedWith = append([]string(nil), f.SharedWith...)
	next.ExpirationDate = f.ExpirationDate
	next.IsArchived = f.IsArchived
	next.AISummary = f.AISummary
	next.AIKeywords = append([]string(nil), f.AIKeywords...)
	next.UpdatedDate = f.UpdatedDate
	next.Version++

	s.files[f.ID] = next
	f.Version = next.Version
	return nil
}

// Delete удаляет запись владельца.
func (s *Store) Delete(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok || f.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(s.files, id)
	return nil
}

// RecordAccess обновляет счётчики под эксклюзивной блокировкой.
func (s *Store) RecordAccess(_ context.Context, id string, kind model.AccessKind, now time.Time) (*model.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	scoring.RecordAccess(f, kind, now)
	f.Version++
	return f.Clone(), nil
}

// Count возвращает число записей (включая архивные).
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// CheckReady — in-memory хранилище всегда готово.
func (s *Store) CheckReady() (status string, message string) {
	return "ok", "in-memory хранилище"
}
