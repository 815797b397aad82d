package repository_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/goartstore/share-module/internal/config"
	"github.com/bigkaa/goartstore/share-module/internal/database"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
	"github.com/bigkaa/goartstore/share-module/internal/repository/repotest"
)

// setupPool поднимает PostgreSQL, применяет миграции и возвращает пул.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("fileshare_test"),
		postgres.WithUsername("fileshare"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	t.Setenv("FS_DB_HOST", host)
	t.Setenv("FS_DB_PORT", port.Port())
	t.Setenv("FS_DB_NAME", "fileshare_test")
	t.Setenv("FS_DB_USER", "fileshare")
	t.Setenv("FS_DB_PASSWORD", "test-password")
	t.Setenv("FS_DB_SSL_MODE", "disable")
	t.Setenv("FS_BLOB_BACKEND", "local")
	t.Setenv("FS_BLOB_SIGNING_KEY", "test-signing-key-0123456789abcdef")
	t.Setenv("FS_JWT_JWKS_URL", "http://localhost:8080/certs")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// TestFileRepository_Contract прогоняет общий контракт на PostgreSQL.
func TestFileRepository_Contract(t *testing.T) {
	pool := setupPool(t)

	repotest.Run(t, func(t *testing.T) repository.FileRepository {
		if _, err := pool.Exec(context.Background(), "TRUNCATE file_metadata"); err != nil {
			t.Fatalf("TRUNCATE вернул ошибку: %v", err)
		}
		return repository.NewFileRepository(pool)
	})
}

// TestFileRepository_InvalidID проверяет, что некорректный UUID не доходит до БД.
func TestFileRepository_InvalidID(t *testing.T) {
	pool := setupPool(t)
	repo := repository.NewFileRepository(pool)

	if _, err := repo.GetByID(context.Background(), "not-a-uuid"); err != repository.ErrNotFound {
		t.Errorf("GetByID(not-a-uuid) = %v, ожидался ErrNotFound", err)
	}
}
