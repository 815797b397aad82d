// files.go — обработчики /api/v1/files: загрузка, списки, чтение,
// скачивание, ссылки, доступ, изменение, архив и удаление.
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/bigkaa/goartstore/share-module/internal/api/errors"
	"github.com/bigkaa/goartstore/share-module/internal/blobstore"
	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/service"
)

const (
	// multipartMemory — часть multipart-формы, хранимая в памяти; остальное на диске
	multipartMemory = 32 << 20
	// multipartOverhead — запас на заголовки и поля формы сверх размера файла
	multipartOverhead = 1 << 20
)

// --- Загрузка ---

// UploadFile — POST /api/v1/files (multipart: file, description, tags, isPublic, expirationDate).
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}

	file, header, ok := h.parseMultipartFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	isPublic := false
	if v := strings.TrimSpace(r.FormValue("isPublic")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			apierrors.ValidationError(w, "isPublic должен быть true или false")
			return
		}
		isPublic = b
	}

	var expiration *time.Time
	if v := strings.TrimSpace(r.FormValue("expirationDate")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			apierrors.ValidationError(w, "expirationDate должен быть в формате RFC 3339")
			return
		}
		expiration = &t
	}

	rec, err := h.files.Upload(r.Context(), c, service.UploadRequest{
		FileName:       header.Filename,
		ContentType:    header.Header.Get("Content-Type"),
		Size:           header.Size,
		Content:        file,
		Tags:           splitTags(r.FormValue("tags")),
		Description:    r.FormValue("description"),
		IsPublic:       isPublic,
		ExpirationDate: expiration,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "загрузка файла")
		return
	}
	writeJSON(w, http.StatusCreated, toFileResponse(rec, c))
}

// parseMultipartFile разбирает multipart-форму с ограничением размера
// и возвращает часть "file". При ошибке ответ уже записан.
func (h *APIHandler) parseMultipartFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	if h.maxUploadSize > 0 {
		limit := h.maxUploadSize + multipartOverhead
		if r.ContentLength > limit {
			apierrors.PayloadTooLarge(w, "Размер файла превышает допустимый")
			return nil, nil, false
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.PayloadTooLarge(w, "Размер файла превышает допустимый")
			return nil, nil, false
		}
		apierrors.ValidationError(w, "Ожидается multipart/form-data с полем file")
		return nil, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Файл не передан")
		return nil, nil, false
	}
	return file, header, true
}

// splitTags разбирает теги, переданные через запятую.
func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// --- Списки ---

// ListMyFiles — GET /api/v1/files.
func (h *APIHandler) ListMyFiles(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	p, ok := queryInts(w, r, []string{"page", "pageSize"}, []int{1, 0})
	if !ok {
		return
	}
	page, err := h.files.ListOwn(r.Context(), c, p[0], p[1])
	if err != nil {
		h.writeServiceError(w, r, err, "список файлов")
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(page, c))
}

// ListPublicFiles — GET /api/v1/files/public (без аутентификации).
func (h *APIHandler) ListPublicFiles(w http.ResponseWriter, r *http.Request) {
	p, ok := queryInts(w, r, []string{"page", "pageSize"}, []int{1, 0})
	if !ok {
		return
	}
	page, err := h.files.ListPublic(r.Context(), p[0], p[1])
	if err != nil {
		h.writeServiceError(w, r, err, "список публичных файлов")
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(page, model.Caller{}))
}

// ListSharedFiles — GET /api/v1/files/shared.
func (h *APIHandler) ListSharedFiles(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	p, ok := queryInts(w, r, []string{"page", "pageSize"}, []int{1, 0})
	if !ok {
		return
	}
	page, err := h.files.ListShared(r.Context(), c, p[0], p[1])
	if err != nil {
		h.writeServiceError(w, r, err, "список расшаренных файлов")
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(page, c))
}

// --- Чтение ---

// GetFile — GET /api/v1/files/{id}. Учитывает просмотр.
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	c, id, ok := callerAndID(w, r)
	if !ok {
		return
	}
	rec, err := h.files.Get(r.Context(), c, id)
	if err != nil {
		h.writeServiceError(w, r, err, "получение файла")
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(rec, c))
}

// DownloadFile — GET /api/v1/files/{id}/download. Содержимое отдаётся потоком.
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	c, id, ok := callerAndID(w, r)
	if !ok {
		return
	}
	rec, body, err := h.files.Download(r.Context(), c, id)
	if err != nil {
		h.writeServiceError(w, r, err, "скачивание файла")
		return
	}
	defer body.Close()

	streamContent(w, body, rec.ContentType, rec.OriginalFileName, rec.FileSize, h.logger)
}

// streamContent пишет заголовки скачивания и копирует содержимое.
// size <= 0 — Content-Length не выставляется.
func streamContent(w http.ResponseWriter, body io.Reader, contentType, fileName string, size int64, logger *slog.Logger) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if disposition := mime.FormatMediaType("attachment", map[string]string{"filename": fileName}); disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.WriteHeader(http.StatusOK)

	// Заголовки уже отправлены, ошибку можно только залогировать
	if _, err := io.Copy(w, body); err != nil {
		logger.Warn("Передача содержимого прервана",
			slog.String("file_name", fileName),
			slog.String("error", err.Error()),
		)
	}
}

// GetFileURL — GET /api/v1/files/{id}/url?expiryHours=N.
func (h *APIHandler) GetFileURL(w http.ResponseWriter, r *http.Request) {
	c, id, ok := callerAndID(w, r)
	if !ok {
		return
	}
	p, ok := queryInts(w, r, []string{"expiryHours"}, []int{0})
	if !ok {
		return
	}
	u, expiresAt, err := h.files.SignedURL(r.Context(), c, id, p[0])
	if err != nil {
		h.writeServiceError(w, r, err, "создание ссылки")
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: u, ExpiresAt: expiresAt})
}

// --- Изменение ---

// ShareFile — POST /api/v1/files/{id}/share.
func (h *APIHandler) ShareFile(w http.ResponseWriter, r *http.Request) {
	c, id, ok := callerAndID(w, r)
	if !ok {
		return
	}
	var body shareRequestBody
	if !decodeJSON(w, r, &body) {
		return
	}
	rec, err := h.files.Share(r.Context(), c, id, service.ShareRequest{
		Emails:         body.ShareWithEmails,
		ExpirationDate: body.ExpirationDate,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "открытие доступа")
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(rec, c))
}

// UpdateFile — PUT /api/v1/files/{id}. Меняет описание, теги,
// видимость и срок действия; остальные поля игнорируются.
func (h *APIHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	c, id, ok := callerAndID(w, r)
	if !ok {
		return
	}
	var body updateRequestBody
	if !decodeJSON(w, r, &body) {
		return
	}
	rec, err := h.files.Update(r.Context(), c, id, service.UpdateRequest{
		Description:    body.Description,
		Tags:           body.Tags,
		IsPublic:       body.IsPublic,
		ExpirationDate: body.ExpirationDate,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "изменение файла")
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(rec, c))
}

// ArchiveFile — POST /api/v1/files/{id}/archive.
func (h *APIHandler) ArchiveFile(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

// UnarchiveFile — POST /api/v1/files/{id}/unarchive.
func (h *APIHandler) UnarchiveFile(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *APIHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	c, id, ok := callerAndID(w, r)
	if !ok {
		return
	}
	rec, err := h.files.SetArchived(r.Context(), c, id, archived)
	if err != nil {
		h.writeServiceError(w, r, err, "архивация файла")
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(rec, c))
}

// DeleteFile — DELETE /api/v1/files/{id}.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	c, id, ok := callerAndID(w, r)
	if !ok {
		return
	}
	if err := h.files.Delete(r.Context(), c, id); err != nil {
		h.writeServiceError(w, r, err, "удаление файла")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Файл удалён"})
}

// callerAndID — вызывающий и {id} из пути. При ошибке ответ уже записан.
func callerAndID(w http.ResponseWriter, r *http.Request) (model.Caller, string, bool) {
	c, ok := caller(w, r)
	if !ok {
		return model.Caller{}, "", false
	}
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return model.Caller{}, "", false
	}
	return c, id, true
}

// --- Подписанные ссылки локального хранилища ---

// ServeBlob — GET /api/v1/blobs/{token}. Доступ определяется подписью ссылки.
func (h *APIHandler) ServeBlob(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		apierrors.NotFound(w, "Ссылки обслуживаются внешним хранилищем")
		return
	}
	token, err := pathID(r, "token")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	blob, err := h.blobs.Resolve(token)
	if err != nil {
		apierrors.Forbidden(w, "Ссылка недействительна или срок её действия истёк")
		return
	}
	body, err := h.blobs.Get(r.Context(), blob.Container, blob.Name)
	if err != nil {
		h.writeServiceError(w, r, mapBlobError(err), "скачивание по ссылке")
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(path.Ext(blob.Name))
	streamContent(w, body, contentType, blob.DownloadName, 0, h.logger)
}

// mapBlobError переводит отсутствие объекта в ErrContentMissing.
func mapBlobError(err error) error {
	if errors.Is(err, blobstore.ErrNotFound) {
		return service.ErrContentMissing
	}
	return err
}
