package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"path"
	"strings"
	"testing"
	"time"
)

const testKey = "test-signing-key-0123456789abcdef"

func newTestLocal(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocal(t.TempDir(), testKey, "http://files.local/")
	if err != nil {
		t.Fatalf("NewLocal() вернул ошибку: %v", err)
	}
	return s
}

// TestLocalStore_PutGetDelete проверяет полный цикл объекта.
func TestLocalStore_PutGetDelete(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	data := "hello, blob"

	res, err := s.Put(ctx, "files", "owner-1/obj-1", strings.NewReader(data), -1, "text/plain")
	if err != nil {
		t.Fatalf("Put() вернул ошибку: %v", err)
	}
	sum := sha256.Sum256([]byte(data))
	if res.Size != int64(len(data)) || res.Checksum != hex.EncodeToString(sum[:]) {
		t.Errorf("Put() = %+v, ожидались размер %d и SHA-256", res, len(data))
	}

	rc, err := s.Get(ctx, "files", "owner-1/obj-1")
	if err != nil {
		t.Fatalf("Get() вернул ошибку: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if string(got) != data {
		t.Errorf("содержимое = %q, ожидалось %q", got, data)
	}

	if err := s.Delete(ctx, "files", "owner-1/obj-1"); err != nil {
		t.Fatalf("Delete() вернул ошибку: %v", err)
	}
	// Повторное удаление — без ошибки
	if err := s.Delete(ctx, "files", "owner-1/obj-1"); err != nil {
		t.Errorf("повторный Delete() вернул ошибку: %v", err)
	}
	if _, err := s.Get(ctx, "files", "owner-1/obj-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(удалённый) = %v, ожидался ErrNotFound", err)
	}
}

// TestLocalStore_RejectsTraversal проверяет защиту от выхода из контейнера.
func TestLocalStore_RejectsTraversal(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	cases := []struct{ container, name string }{
		{"files", "../secret"},
		{"files", "/etc/passwd"},
		{"files", `a\b`},
		{"../x", "obj"},
		{"", "obj"},
		{"files", ""},
	}
	for _, c := range cases {
		if _, err := s.Put(ctx, c.container, c.name, strings.NewReader("x"), 1, ""); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Put(%q, %q) = %v, ожидался ErrInvalidName", c.container, c.name, err)
		}
	}
}

// TestLocalStore_CanceledContext проверяет прерывание записи.
func TestLocalStore_CanceledContext(t *testing.T) {
	s := newTestLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Put(ctx, "files", "obj", strings.NewReader("data"), 4, ""); err == nil {
		t.Error("ожидалась ошибка при отменённом контексте")
	}
	if _, err := s.Get(context.Background(), "files", "obj"); !errors.Is(err, ErrNotFound) {
		t.Errorf("после отмены объект не должен существовать: %v", err)
	}
}

// TestLocalStore_SignedURL проверяет выпуск и разбор ссылки.
func TestLocalStore_SignedURL(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	link, err := s.SignedURL(ctx, "files", "owner-1/obj-1", "report.pdf", time.Hour)
	if err != nil {
		t.Fatalf("SignedURL() вернул ошибку: %v", err)
	}
	if !strings.HasPrefix(link, "http://files.local/api/v1/blobs/") {
		t.Fatalf("ссылка = %q, ожидался префикс endpoint сервиса", link)
	}

	blob, err := s.Resolve(path.Base(link))
	if err != nil {
		t.Fatalf("Resolve() вернул ошибку: %v", err)
	}
	if blob.Container != "files" || blob.Name != "owner-1/obj-1" || blob.DownloadName != "report.pdf" {
		t.Errorf("Resolve() = %+v", blob)
	}
}

// TestLocalStore_ResolveRejects проверяет отказ для истёкших и чужих токенов.
func TestLocalStore_ResolveRejects(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	expired, err := s.SignedURL(ctx, "files", "obj", "", -time.Minute)
	if err != nil {
		t.Fatalf("SignedURL() вернул ошибку: %v", err)
	}
	if _, err := s.Resolve(path.Base(expired)); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Resolve(истёкший) = %v, ожидался ErrInvalidToken", err)
	}

	other, _ := NewLocal(t.TempDir(), "another-signing-key-0123456789abcd", "http://x")
	foreign, _ := other.SignedURL(ctx, "files", "obj", "", time.Hour)
	if _, err := s.Resolve(path.Base(foreign)); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Resolve(чужой ключ) = %v, ожидался ErrInvalidToken", err)
	}

	if _, err := s.Resolve("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Resolve(мусор) = %v, ожидался ErrInvalidToken", err)
	}
}
