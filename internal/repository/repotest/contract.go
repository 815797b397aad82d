// Пакет repotest — общий набор проверок поведения FileRepository.
// Прогоняется для каждой реализации (PostgreSQL, MongoDB, память),
// чтобы семантика выборок и счётчиков совпадала между бэкендами.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/domain/query"
	"github.com/bigkaa/goartstore/share-module/internal/domain/scoring"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
)

// Factory возвращает пустой репозиторий для одного подтеста.
type Factory func(t *testing.T) repository.FileRepository

// baseTime — момент создания тестовых записей (точность до миллисекунд
// поддерживают все бэкенды).
var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// NewRecord создаёт заполненную запись с новым UUID.
func NewRecord(ownerID, name string) *model.FileRecord {
	id := uuid.NewString()
	return &model.FileRecord{
		ID:               id,
		OwnerID:          ownerID,
		OwnerEmail:       ownerID + "@example.com",
		FileName:         name,
		OriginalFileName: name,
		ContentType:      "application/pdf",
		FileSize:         1024,
		BlobName:         ownerID + "/" + id,
		ContainerName:    "files",
		Tags:             []string{},
		SharedWith:       []string{},
		AIKeywords:       []string{},
		CreatedDate:      baseTime,
		UpdatedDate:      baseTime,
		Version:          1,
	}
}

// Run выполняет все проверки контракта.
func Run(t *testing.T, newRepo Factory) {
	t.Helper()

	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newRepo(t)) })
	t.Run("Find", func(t *testing.T) { testFind(t, newRepo(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newRepo(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newRepo(t)) })
	t.Run("RecordAccessConcurrent", func(t *testing.T) { testRecordAccess(t, newRepo(t)) })
	t.Run("RecordAccessWithUpdates", func(t *testing.T) { testRecordAccessWithUpdates(t, newRepo(t)) })
}

func mustCreate(t *testing.T, repo repository.FileRepository, f *model.FileRecord) {
	t.Helper()
	if err := repo.Create(context.Background(), f); err != nil {
		t.Fatalf("Create(%s) вернул ошибку: %v", f.FileName, err)
	}
}

func testCreateAndGet(t *testing.T, repo repository.FileRepository) {
	ctx := context.Background()
	f := NewRecord("owner-1", "report.pdf")
	f.Tags = []string{"work", "q1"}
	f.SharedWith = []string{"bob@example.com"}
	f.IsShared = true
	f.Description = "квартальный отчёт"
	mustCreate(t, repo, f)

	got, err := repo.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetByID() вернул ошибку: %v", err)
	}
	if got.FileName != "report.pdf" || got.OwnerID != "owner-1" || got.Description != f.Description {
		t.Errorf("GetByID() = %+v", got)
	}
	if len(got.Tags) != 2 || len(got.SharedWith) != 1 || !got.IsShared {
		t.Errorf("массивы не сохранены: tags=%v sharedWith=%v", got.Tags, got.SharedWith)
	}
	if !got.CreatedDate.Equal(baseTime) {
		t.Errorf("CreatedDate = %v, ожидалось %v", got.CreatedDate, baseTime)
	}
	if got.LastAccessedDate != nil {
		t.Errorf("LastAccessedDate = %v, ожидался nil", got.LastAccessedDate)
	}

	if err := repo.Create(ctx, f); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Errorf("повторный Create() = %v, ожидался ErrAlreadyExists", err)
	}
	if _, err := repo.GetByID(ctx, uuid.NewString()); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetByID(несуществующий) = %v, ожидался ErrNotFound", err)
	}
}

func testFind(t *testing.T, repo repository.FileRepository) {
	ctx := context.Background()

	own := NewRecord("alice", "alice-notes.txt")
	own.PopularityScore = 0.1
	public := NewRecord("bob", "bob-public.pdf")
	public.IsPublic = true
	public.PopularityScore = 0.9
	shared := NewRecord("carol", "carol-shared.pdf")
	shared.IsShared = true
	shared.SharedWith = []string{"alice@example.com"}
	shared.PopularityScore = 0.5
	private := NewRecord("dave", "dave-private.pdf")
	archived := NewRecord("alice", "alice-old.pdf")
	archived.IsArchived = true
	for _, f := range []*model.FileRecord{own, public, shared, private, archived} {
		mustCreate(t, repo, f)
	}

	spec := query.Spec{
		Predicate: query.Predicate{Access: &query.Access{
			CallerID: "alice", CallerEmail: "alice@example.com",
			IncludePublic: true, IncludeShared: true,
		}},
		Order: query.ByPopularity(),
		Limit: 2,
	}
	items, total, err := repo.Find(ctx, spec)
	if err != nil {
		t.Fatalf("Find() вернул ошибку: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, ожидалось 3 (свой + публичный + расшаренный)", total)
	}
	if len(items) != 2 || items[0].ID != public.ID || items[1].ID != shared.ID {
		t.Errorf("первая страница = %v, ожидались [public shared]", names(items))
	}

	spec.Offset = 2
	items, total, err = repo.Find(ctx, spec)
	if err != nil {
		t.Fatalf("Find() вернул ошибку: %v", err)
	}
	if total != 3 || len(items) != 1 || items[0].ID != own.ID {
		t.Errorf("вторая страница = %v (total %d), ожидался [own]", names(items), total)
	}

	// Без расширенного доступа — только свои неархивные
	items, total, err = repo.Find(ctx, query.Spec{
		Predicate: query.Predicate{Access: &query.Access{CallerID: "alice", CallerEmail: "alice@example.com"}},
	})
	if err != nil {
		t.Fatalf("Find() вернул ошибку: %v", err)
	}
	if total != 1 || items[0].ID != own.ID {
		t.Errorf("только свои = %v", names(items))
	}

	// Текстовый поиск без учёта регистра
	items, _, err = repo.Find(ctx, query.Spec{Predicate: query.Predicate{Text: "PUBLIC"}})
	if err != nil {
		t.Fatalf("Find() вернул ошибку: %v", err)
	}
	if len(items) != 1 || items[0].ID != public.ID {
		t.Errorf("поиск по тексту = %v", names(items))
	}

	// Расшаренные на email
	items, _, err = repo.Find(ctx, query.Spec{Predicate: query.SharedWithMe("alice@example.com")})
	if err != nil {
		t.Fatalf("Find() вернул ошибку: %v", err)
	}
	if len(items) != 1 || items[0].ID != shared.ID {
		t.Errorf("расшаренные = %v", names(items))
	}

	// Окно за пределами выборки
	items, total, err = repo.Find(ctx, query.Spec{Predicate: query.Public(), Offset: 10, Limit: 5})
	if err != nil {
		t.Fatalf("Find() вернул ошибку: %v", err)
	}
	if len(items) != 0 || total != 1 {
		t.Errorf("пустое окно = %v (total %d)", names(items), total)
	}
}

func testUpdate(t *testing.T, repo repository.FileRepository) {
	ctx := context.Background()
	f := NewRecord("alice", "draft.docx")
	mustCreate(t, repo, f)

	stale := f.Clone()

	f.Description = "финальная версия"
	f.Tags = []string{"final"}
	f.IsPublic = true
	f.UpdatedDate = baseTime.Add(time.Hour)
	if err := repo.Update(ctx, f); err != nil {
		t.Fatalf("Update() вернул ошибку: %v", err)
	}
	if f.Version != 2 {
		t.Errorf("Version = %d, ожидалось 2", f.Version)
	}

	got, err := repo.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetByID() вернул ошибку: %v", err)
	}
	if got.Description != "финальная версия" || !got.IsPublic || len(got.Tags) != 1 {
		t.Errorf("изменения не сохранены: %+v", got)
	}

	stale.Description = "устаревшая правка"
	if err := repo.Update(ctx, stale); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("Update(устаревшая версия) = %v, ожидался ErrConflict", err)
	}

	missing := NewRecord("alice", "missing.txt")
	if err := repo.Update(ctx, missing); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Update(несуществующий) = %v, ожидался ErrNotFound", err)
	}
}

func testDelete(t *testing.T, repo repository.FileRepository) {
	ctx := context.Background()
	f := NewRecord("alice", "tmp.bin")
	mustCreate(t, repo, f)

	if err := repo.Delete(ctx, "mallory", f.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Delete(чужой) = %v, ожидался ErrNotFound", err)
	}
	if err := repo.Delete(ctx, "alice", f.ID); err != nil {
		t.Fatalf("Delete() вернул ошибку: %v", err)
	}
	if _, err := repo.GetByID(ctx, f.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetByID(удалённый) = %v, ожидался ErrNotFound", err)
	}
}

func testRecordAccess(t *testing.T, repo repository.FileRepository) {
	ctx := context.Background()
	f := NewRecord("alice", "popular.pdf")
	f.IsPublic = true
	mustCreate(t, repo, f)

	const workers = 20
	now := baseTime.Add(24 * time.Hour)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := model.AccessDownload
			if i%2 == 1 {
				kind = model.AccessView
			}
			if _, err := repo.RecordAccess(ctx, f.ID, kind, now); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("RecordAccess() вернул ошибку: %v", err)
	}

	got, err := repo.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetByID() вернул ошибку: %v", err)
	}
	if got.DownloadCount != workers/2 || got.ViewCount != workers/2 {
		t.Errorf("счётчики = %d/%d, ожидалось %d/%d (потерянные обновления)",
			got.DownloadCount, got.ViewCount, workers/2, workers/2)
	}
	if got.LastAccessedDate == nil || !got.LastAccessedDate.Equal(now) {
		t.Errorf("LastAccessedDate = %v, ожидалось %v", got.LastAccessedDate, now)
	}
	if got.PopularityScore <= 0 {
		t.Errorf("PopularityScore = %v, ожидалось > 0", got.PopularityScore)
	}

	// обращение увеличивает версию: Update по прочитанной до него копии конфликтует
	stale := got.Clone()
	accessed, err := repo.RecordAccess(ctx, f.ID, model.AccessView, now)
	if err != nil {
		t.Fatalf("RecordAccess() вернул ошибку: %v", err)
	}
	if accessed.Version != stale.Version+1 {
		t.Errorf("Version после обращения = %d, ожидалось %d", accessed.Version, stale.Version+1)
	}
	stale.Description = "устаревшая правка"
	if err := repo.Update(ctx, stale); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("Update(версия до обращения) = %v, ожидался ErrConflict", err)
	}

	if _, err := repo.RecordAccess(ctx, uuid.NewString(), model.AccessView, now); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("RecordAccess(несуществующий) = %v, ожидался ErrNotFound", err)
	}
}

// testRecordAccessWithUpdates: обращения идут параллельно с изменением
// метаданных; в итоге ни одно обращение не потеряно, а сохранённая
// популярность соответствует итоговым счётчикам.
func testRecordAccessWithUpdates(t *testing.T, repo repository.FileRepository) {
	ctx := context.Background()
	f := NewRecord("alice", "shared.pdf")
	mustCreate(t, repo, f)

	const (
		accesses = 10
		updaters = 5
		retries  = 100
	)
	now := baseTime.Add(6 * time.Hour)

	var wg sync.WaitGroup
	errs := make(chan error, accesses+updaters)
	for range accesses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.RecordAccess(ctx, f.ID, model.AccessDownload, now); err != nil {
				errs <- err
			}
		}()
	}
	for i := range updaters {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for range retries {
				cur, err := repo.GetByID(ctx, f.ID)
				if err != nil {
					errs <- err
					return
				}
				cur.Description = fmt.Sprintf("ревизия %d", i)
				err = repo.Update(ctx, cur)
				if err == nil {
					return
				}
				if !errors.Is(err, repository.ErrConflict) {
					errs <- err
					return
				}
			}
			errs <- fmt.Errorf("Update %d: не удалось за %d попыток", i, retries)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("параллельная операция вернула ошибку: %v", err)
	}

	got, err := repo.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetByID() вернул ошибку: %v", err)
	}
	if got.DownloadCount != accesses {
		t.Errorf("DownloadCount = %d, ожидалось %d", got.DownloadCount, accesses)
	}
	if want := scoring.Popularity(got, now); math.Abs(got.PopularityScore-want) > 1e-9 {
		t.Errorf("PopularityScore = %v, по итоговым счётчикам ожидалось %v", got.PopularityScore, want)
	}
	if got.Description == "" {
		t.Error("изменения метаданных потеряны")
	}
}

func names(items []*model.FileRecord) []string {
	out := make([]string, 0, len(items))
	for _, f := range items {
		out = append(out, f.FileName)
	}
	return out
}
