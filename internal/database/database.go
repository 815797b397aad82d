// Пакет database — пул подключений PostgreSQL для хранилища метаданных,
// встроенные миграции схемы file_metadata и readiness probe.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/goartstore/share-module/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Параметры пула. RecordAccess держит строку под FOR UPDATE только
// на время одной транзакции, поэтому пул небольшой.
const (
	poolMaxConns          = 20
	poolMinConns          = 2
	poolMaxConnIdleTime   = 5 * time.Minute
	poolHealthCheckPeriod = 30 * time.Second

	connectAttempts = 5
	connectBackoff  = time.Second
	readyTimeout    = 3 * time.Second
)

// Connect создаёт пул подключений к PostgreSQL и дожидается его готовности.
// При старте рядом с базой (docker compose) ping повторяется
// connectAttempts раз с растущей паузой.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolCfg.MaxConns = poolMaxConns
	poolCfg.MinConns = poolMinConns
	poolCfg.MaxConnIdleTime = poolMaxConnIdleTime
	poolCfg.HealthCheckPeriod = poolHealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}

	if err := pingWithRetry(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("PostgreSQL %s:%d недоступен: %w", cfg.DBHost, cfg.DBPort, err)
	}

	logger.Info("Хранилище метаданных PostgreSQL подключено",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
		slog.Int("max_conns", poolMaxConns),
	)
	return pool, nil
}

func pingWithRetry(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	var err error
	delay := connectBackoff
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}
		logger.Warn("PostgreSQL не отвечает, повтор",
			slog.Int("attempt", attempt),
			slog.String("retry_in", delay.String()),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

// Migrate поднимает схему file_metadata до последней встроенной версии.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка чтения встроенных миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	before, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("ошибка чтения версии схемы: %w", err)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("Схема метаданных актуальна", slog.Uint64("version", uint64(before)))
		return nil
	case err != nil:
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	after, dirty, _ := m.Version()
	logger.Info("Схема метаданных обновлена",
		slog.Uint64("from", uint64(before)),
		slog.Uint64("to", uint64(after)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// ReadinessChecker — readiness probe хранилища метаданных PostgreSQL.
type ReadinessChecker struct {
	pool *pgxpool.Pool
}

// NewReadinessChecker создаёт readiness probe поверх пула.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{pool: pool}
}

// CheckReady пингует базу. Пул, в котором заняты все соединения,
// отдаётся как degraded без ping: ping ждал бы свободного соединения.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	stat := c.pool.Stat()
	if stat.MaxConns() > 0 && stat.AcquiredConns() >= stat.MaxConns() {
		return "degraded", fmt.Sprintf("пул исчерпан: %d/%d соединений занято",
			stat.AcquiredConns(), stat.MaxConns())
	}

	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}
	return "ok", fmt.Sprintf("соединений: %d/%d", stat.TotalConns(), stat.MaxConns())
}
