package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// localIssuer — issuer токенов ссылок локального хранилища.
const localIssuer = "share-module/blobs"

// LocalStore — blob-хранилище в локальном каталоге.
// Объект хранится по пути {dir}/{container}/{name}.
type LocalStore struct {
	dir        string
	signingKey []byte
	// baseURL — внешний URL сервиса, к которому добавляется /api/v1/blobs/{token}
	baseURL string
}

// blobClaims — содержимое токена ссылки на скачивание.
type blobClaims struct {
	Container    string `json:"c"`
	Name         string `json:"n"`
	DownloadName string `json:"fn,omitempty"`
	jwt.RegisteredClaims
}

// NewLocal создаёт локальное хранилище, при необходимости создавая каталог.
func NewLocal(dir, signingKey, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог хранилища %s: %w", dir, err)
	}
	return &LocalStore{
		dir:        dir,
		signingKey: []byte(signingKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *LocalStore) path(container, name string) string {
	return filepath.Join(s.dir, container, filepath.FromSlash(name))
}

// Put записывает объект по схеме temp файл → SHA-256 → fsync → rename.
// При ошибке temp файл удаляется.
func (s *LocalStore) Put(ctx context.Context, container, name string, r io.Reader, _ int64, _ string) (*PutResult, error) {
	if err := validateName(container, name); err != nil {
		return nil, err
	}
	fullPath := s.path(container, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога: %w", err)
	}
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(&ctxReader{ctx: ctx, r: r}, hasher))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &PutResult{Size: size, Checksum: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// Get открывает объект для чтения.
func (s *LocalStore) Get(_ context.Context, container, name string) (io.ReadCloser, error) {
	if err := validateName(container, name); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(container, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка открытия объекта %s: %w", name, err)
	}
	return f, nil
}

// Delete удаляет объект. Возвращает nil, если объекта уже нет.
func (s *LocalStore) Delete(_ context.Context, container, name string) error {
	if err := validateName(container, name); err != nil {
		return err
	}
	err := os.Remove(s.path(container, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("ошибка удаления объекта %s: %w", name, err)
	}
	return nil
}

// SignedURL выпускает HS256-токен и возвращает ссылку на endpoint сервиса.
func (s *LocalStore) SignedURL(_ context.Context, container, name, downloadName string, expiry time.Duration) (string, error) {
	if err := validateName(container, name); err != nil {
		return "", err
	}
	now := time.Now()
	claims := blobClaims{
		Container:    container,
		Name:         name,
		DownloadName: downloadName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    localIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи ссылки: %w", err)
	}
	return s.baseURL + "/api/v1/blobs/" + url.PathEscape(token), nil
}

// ResolvedBlob — объект, на который указывает токен ссылки.
type ResolvedBlob struct {
	Container    string
	Name         string
	DownloadName string
}

// Resolve проверяет токен ссылки и возвращает адрес объекта.
func (s *LocalStore) Resolve(token string) (*ResolvedBlob, error) {
	claims := &blobClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(localIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := validateName(claims.Container, claims.Name); err != nil {
		return nil, ErrInvalidToken
	}
	return &ResolvedBlob{
		Container:    claims.Container,
		Name:         claims.Name,
		DownloadName: claims.DownloadName,
	}, nil
}

// validateName запрещает выход за пределы контейнера.
func validateName(container, name string) error {
	if container == "" || strings.ContainsAny(container, `/\`) || container == "." || container == ".." {
		return ErrInvalidName
	}
	if name == "" || strings.Contains(name, `\`) || !filepath.IsLocal(filepath.FromSlash(name)) {
		return ErrInvalidName
	}
	return nil
}

// ctxReader прерывает копирование при отмене контекста.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
