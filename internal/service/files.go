// files.go — операции с файлами: загрузка, списки, чтение, скачивание,
// временные ссылки, доступ, изменение метаданных, архив и удаление.
// Координирует хранилище метаданных, blob-хранилище, кэш и обогащение.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/goartstore/share-module/internal/blobstore"
	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/domain/query"
	"github.com/bigkaa/goartstore/share-module/internal/domain/scoring"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
)

const (
	// defaultURLExpiryHours — срок действия ссылки по умолчанию
	defaultURLExpiryHours = 1
	// maxURLExpiryHours — максимальный срок действия ссылки (7 суток)
	maxURLExpiryHours = 168
	// defaultContentType — MIME-тип, если клиент его не передал
	defaultContentType = "application/octet-stream"
)

// Prometheus-метрики операций с файлами.
var (
	accessEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fs_access_events_total",
		Help: "Количество обращений к файлам по типу (view, download).",
	}, []string{"kind"})
	accessEventErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_access_event_errors_total",
		Help: "Количество обращений, которые не удалось учесть в счётчиках.",
	})
	uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_uploads_total",
		Help: "Количество успешно загруженных файлов.",
	})
	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_upload_bytes_total",
		Help: "Суммарный объём загруженных данных в байтах.",
	})
)

// FilesConfig — параметры сервиса файлов.
type FilesConfig struct {
	// Container — bucket / каталог для содержимого файлов
	Container string
	// MaxUploadSize — максимальный размер файла в байтах (0 = без ограничения)
	MaxUploadSize int64
	// AllowedContentTypes — допустимые MIME-типы (шаблоны вида image/*).
	// Пустой список — любые типы.
	AllowedContentTypes []string
}

// UploadRequest — параметры загрузки файла.
type UploadRequest struct {
	FileName    string
	ContentType string
	// Size — размер содержимого в байтах (-1, если неизвестен)
	Size           int64
	Content        io.Reader
	Tags           []string
	Description    string
	IsPublic       bool
	ExpirationDate *time.Time
}

// UpdateRequest — изменение метаданных. nil-поля не меняются.
type UpdateRequest struct {
	Description    *string
	Tags           *[]string
	IsPublic       *bool
	ExpirationDate *time.Time
}

// ShareRequest — открытие доступа к файлу по email.
type ShareRequest struct {
	Emails         []string
	ExpirationDate *time.Time
}

// Page — страница списка файлов.
type Page struct {
	// Items — файлы текущей страницы
	Items []*model.FileRecord
	// Total — общее количество подходящих файлов
	Total    int
	Page     int
	PageSize int
	// HasMore — есть ли следующие страницы
	HasMore bool
}

// newPage собирает страницу и вычисляет HasMore.
func newPage(items []*model.FileRecord, total, page, pageSize int) *Page {
	return &Page{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  (page-1)*pageSize+len(items) < total,
	}
}

// records — загрузка записей через кэш с проверкой прав.
// Общая часть FileService и SearchService.
type records struct {
	repo  repository.FileRepository
	cache *CacheService
}

// load возвращает запись из кэша или хранилища.
func (r records) load(ctx context.Context, id string) (*model.FileRecord, error) {
	if rec, ok := r.cache.Get(id); ok {
		return rec, nil
	}
	rec, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "получение файла")
	}
	r.cache.Set(rec)
	return rec, nil
}

// readable возвращает запись, доступную вызывающему на чтение.
// Архивный файл виден только владельцу; без доступа — ErrForbidden.
func (r records) readable(ctx context.Context, caller model.Caller, id string) (*model.FileRecord, error) {
	rec, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.IsArchived && rec.OwnerID != caller.ID {
		return nil, ErrNotFound
	}
	if !rec.CanAccess(caller) {
		return nil, ErrForbidden
	}
	return rec, nil
}

// owned возвращает запись владельца. Чужой файл неотличим от
// отсутствующего (ErrNotFound).
func (r records) owned(ctx context.Context, caller model.Caller, id string) (*model.FileRecord, error) {
	rec, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.OwnerID != caller.ID {
		return nil, ErrNotFound
	}
	return rec, nil
}

// FileService — сервис операций с файлами.
type FileService struct {
	records
	blobs    blobstore.Store
	enricher *Enricher
	cfg      FilesConfig
	now      func() time.Time
	logger   *slog.Logger
}

// NewFileService создаёт сервис операций с файлами.
func NewFileService(
	repo repository.FileRepository,
	blobs blobstore.Store,
	cache *CacheService,
	enricher *Enricher,
	cfg FilesConfig,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		records:  records{repo: repo, cache: cache},
		blobs:    blobs,
		enricher: enricher,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "file_service")),
	}
}

// --- Загрузка ---

// Upload сохраняет содержимое в blob-хранилище и создаёт запись метаданных.
// Запись содержимого и AI-обогащение выполняются параллельно; при ошибке
// создания записи загруженный объект удаляется.
func (s *FileService) Upload(ctx context.Context, caller model.Caller, req UploadRequest) (*model.FileRecord, error) {
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" || req.Content == nil {
		return nil, validationError("файл не передан")
	}
	if req.Size == 0 {
		return nil, validationError("файл пустой")
	}
	if s.cfg.MaxUploadSize > 0 && req.Size > s.cfg.MaxUploadSize {
		return nil, validationError("размер файла %d превышает лимит %d байт", req.Size, s.cfg.MaxUploadSize)
	}
	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = defaultContentType
	}
	if !ContentTypeAllowed(contentType, s.cfg.AllowedContentTypes) {
		return nil, validationError("тип файла %q не разрешён", contentType)
	}

	id := uuid.NewString()
	blobName := id + strings.ToLower(path.Ext(fileName))
	description := strings.TrimSpace(req.Description)

	var (
		put      *blobstore.PutResult
		summary  string
		keywords []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		put, err = s.blobs.Put(gctx, s.cfg.Container, blobName, req.Content, req.Size, contentType)
		if err != nil {
			return fmt.Errorf("запись содержимого: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		summary = s.enricher.Summary(gctx, fileName, contentType)
		keywords = s.enricher.Keywords(gctx, fileName, description, contentType)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if s.cfg.MaxUploadSize > 0 && put.Size > s.cfg.MaxUploadSize {
		s.removeBlob(ctx, s.cfg.Container, blobName)
		return nil, validationError("размер файла превышает лимит %d байт", s.cfg.MaxUploadSize)
	}

	now := s.now().UTC()
	rec := &model.FileRecord{
		ID:               id,
		OwnerID:          caller.ID,
		OwnerEmail:       caller.Email,
		FileName:         fileName,
		OriginalFileName: fileName,
		ContentType:      contentType,
		FileSize:         put.Size,
		BlobName:         blobName,
		ContainerName:    s.cfg.Container,
		Checksum:         put.Checksum,
		IsPublic:         req.IsPublic,
		SharedWith:       []string{},
		ExpirationDate:   req.ExpirationDate,
		Tags:             cleanTerms(req.Tags),
		Description:      description,
		CreatedDate:      now,
		UpdatedDate:      now,
		AISummary:        summary,
		AIKeywords:       keywords,
	}
	rec.PopularityScore = scoring.Popularity(rec, now)

	if err := s.repo.Create(ctx, rec); err != nil {
		s.removeBlob(ctx, s.cfg.Container, blobName)
		return nil, fmt.Errorf("создание записи файла: %w", err)
	}
	s.cache.Set(rec)

	uploadsTotal.Inc()
	uploadBytesTotal.Add(float64(rec.FileSize))
	s.logger.Info("Файл загружен",
		slog.String("file_id", rec.ID),
		slog.String("owner_id", rec.OwnerID),
		slog.String("content_type", rec.ContentType),
		slog.Int64("size", rec.FileSize),
	)
	return rec, nil
}

// removeBlob удаляет объект без учёта отмены запроса; ошибка только логируется.
func (s *FileService) removeBlob(ctx context.Context, container, blobName string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), container, blobName); err != nil {
		s.logger.Error("Не удалось удалить объект",
			slog.String("blob", blobName),
			slog.String("error", err.Error()),
		)
	}
}

// ContentTypeAllowed проверяет MIME-тип по списку шаблонов.
// Шаблон "type/*" разрешает любой подтип.
func ContentTypeAllowed(contentType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ct := strings.ToLower(contentType)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	for _, a := range allowed {
		a = strings.ToLower(a)
		if prefix, ok := strings.CutSuffix(a, "/*"); ok {
			if strings.HasPrefix(ct, prefix+"/") {
				return true
			}
			continue
		}
		if ct == a {
			return true
		}
	}
	return false
}

// --- Списки ---

// ListOwn возвращает собственные неархивные файлы, новые первыми.
func (s *FileService) ListOwn(ctx context.Context, caller model.Caller, page, pageSize int) (*Page, error) {
	return s.list(ctx, query.Own(caller.ID), page, pageSize)
}

// ListPublic возвращает публичные файлы, новые первыми.
func (s *FileService) ListPublic(ctx context.Context, page, pageSize int) (*Page, error) {
	return s.list(ctx, query.Public(), page, pageSize)
}

// ListShared возвращает файлы, расшаренные на email вызывающего.
func (s *FileService) ListShared(ctx context.Context, caller model.Caller, page, pageSize int) (*Page, error) {
	page, pageSize = query.NormalizePage(page, pageSize)
	if caller.Email == "" {
		return newPage([]*model.FileRecord{}, 0, page, pageSize), nil
	}
	return s.list(ctx, query.SharedWithMe(caller.Email), page, pageSize)
}

func (s *FileService) list(ctx context.Context, p query.Predicate, page, pageSize int) (*Page, error) {
	page, pageSize = query.NormalizePage(page, pageSize)
	items, total, err := s.repo.Find(ctx, query.Spec{
		Predicate: p,
		Order:     query.Order{{Key: query.SortCreatedDate, Desc: true}},
		Offset:    (page - 1) * pageSize,
		Limit:     pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("список файлов: %w", err)
	}
	return newPage(items, total, page, pageSize), nil
}

// --- Чтение ---

// Get возвращает метаданные файла и учитывает просмотр.
// Ошибка учёта просмотра не влияет на результат.
func (s *FileService) Get(ctx context.Context, caller model.Caller, id string) (*model.FileRecord, error) {
	rec, err := s.readable(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return s.recordAccess(ctx, rec, model.AccessView), nil
}

// Download открывает содержимое файла и учитывает скачивание.
// Вызывающий код закрывает ReadCloser.
func (s *FileService) Download(ctx context.Context, caller model.Caller, id string) (*model.FileRecord, io.ReadCloser, error) {
	rec, err := s.readable(ctx, caller, id)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.blobs.Get(ctx, rec.ContainerName, rec.BlobName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Warn("Содержимое файла отсутствует в хранилище",
				slog.String("file_id", rec.ID),
				slog.String("blob", rec.BlobName),
			)
		}
		return nil, nil, mapRepoError(err, "открытие содержимого")
	}
	return s.recordAccess(ctx, rec, model.AccessDownload), body, nil
}

// SignedURL возвращает временную ссылку на скачивание.
// expiryHours = 0 — срок по умолчанию (1 час), максимум 168 часов.
func (s *FileService) SignedURL(ctx context.Context, caller model.Caller, id string, expiryHours int) (string, time.Time, error) {
	if expiryHours == 0 {
		expiryHours = defaultURLExpiryHours
	}
	if expiryHours < 1 || expiryHours > maxURLExpiryHours {
		return "", time.Time{}, validationError("expiryHours должен быть от 1 до %d", maxURLExpiryHours)
	}
	rec, err := s.readable(ctx, caller, id)
	if err != nil {
		return "", time.Time{}, err
	}

	expiry := time.Duration(expiryHours) * time.Hour
	u, err := s.blobs.SignedURL(ctx, rec.ContainerName, rec.BlobName, rec.FileName, expiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("создание ссылки: %w", err)
	}
	return u, s.now().UTC().Add(expiry), nil
}

// recordAccess учитывает обращение и возвращает обновлённую запись.
// При ошибке возвращается исходная запись.
func (s *FileService) recordAccess(ctx context.Context, rec *model.FileRecord, kind model.AccessKind) *model.FileRecord {
	updated, err := s.repo.RecordAccess(ctx, rec.ID, kind, s.now().UTC())
	if err != nil {
		accessEventErrorsTotal.Inc()
		s.cache.Delete(rec.ID)
		s.logger.Warn("Не удалось учесть обращение к файлу",
			slog.String("file_id", rec.ID),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return rec
	}
	accessEventsTotal.WithLabelValues(string(kind)).Inc()
	s.cache.Set(updated)
	return updated
}

// --- Изменение (только владелец) ---

// Share открывает доступ к файлу по списку email (без дубликатов).
func (s *FileService) Share(ctx context.Context, caller model.Caller, id string, req ShareRequest) (*model.FileRecord, error) {
	emails, err := normalizeEmails(req.Emails)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, caller, id, "share", func(rec *model.FileRecord) {
		for _, e := range emails {
			if !rec.SharedWithEmail(e) {
				rec.SharedWith = append(rec.SharedWith, e)
			}
		}
		rec.IsShared = true
		if req.ExpirationDate != nil {
			rec.ExpirationDate = req.ExpirationDate
		}
	})
}

// Update изменяет описание, теги, видимость и срок действия.
func (s *FileService) Update(ctx context.Context, caller model.Caller, id string, req UpdateRequest) (*model.FileRecord, error) {
	return s.mutate(ctx, caller, id, "update", func(rec *model.FileRecord) {
		if req.Description != nil {
			rec.Description = strings.TrimSpace(*req.Description)
		}
		if req.Tags != nil {
			rec.Tags = cleanTerms(*req.Tags)
		}
		if req.IsPublic != nil {
			rec.IsPublic = *req.IsPublic
		}
		if req.ExpirationDate != nil {
			rec.ExpirationDate = req.ExpirationDate
		}
	})
}

// SetArchived переводит файл в архив или возвращает из архива.
// Архивные файлы исключаются из списков, поиска и лидербордов.
func (s *FileService) SetArchived(ctx context.Context, caller model.Caller, id string, archived bool) (*model.FileRecord, error) {
	op := "archive"
	if !archived {
		op = "unarchive"
	}
	return s.mutate(ctx, caller, id, op, func(rec *model.FileRecord) {
		rec.IsArchived = archived
	})
}

// mutate применяет изменение к записи владельца с проверкой версии.
// При конфликте запись удаляется из кэша, чтобы повтор прочитал свежую версию.
func (s *FileService) mutate(ctx context.Context, caller model.Caller, id, op string, apply func(*model.FileRecord)) (*model.FileRecord, error) {
	rec, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	apply(rec)
	rec.UpdatedDate = s.now().UTC()

	if err := s.repo.Update(ctx, rec); err != nil {
		s.cache.Delete(id)
		return nil, mapRepoError(err, "изменение файла")
	}
	s.cache.Set(rec)

	s.logger.Info("Метаданные файла изменены",
		slog.String("file_id", rec.ID),
		slog.String("operation", op),
	)
	return rec, nil
}

// Delete удаляет метаданные и содержимое файла владельца.
// Сначала удаляются метаданные: осиротевший объект безопаснее записи
// без содержимого. Ошибка удаления объекта только логируется.
func (s *FileService) Delete(ctx context.Context, caller model.Caller, id string) error {
	rec, err := s.owned(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, caller.ID, id); err != nil {
		s.cache.Delete(id)
		return mapRepoError(err, "удаление файла")
	}
	s.cache.Delete(id)
	s.removeBlob(ctx, rec.ContainerName, rec.BlobName)

	s.logger.Info("Файл удалён",
		slog.String("file_id", rec.ID),
		slog.String("owner_id", rec.OwnerID),
	)
	return nil
}

// normalizeEmails проверяет адреса и приводит их к нижнему регистру.
func normalizeEmails(emails []string) ([]string, error) {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		addr, err := mail.ParseAddress(e)
		if err != nil || addr.Address != e {
			return nil, validationError("некорректный email %q", e)
		}
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, validationError("не указан ни один email")
	}
	return out, nil
}
