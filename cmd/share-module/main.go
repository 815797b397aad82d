// Точка входа share-module — сервиса обмена файлами.
// Загружает конфигурацию, подключает хранилище метаданных (PostgreSQL,
// MongoDB или память) и blob-хранилище (MinIO или локальный каталог),
// создаёт AI-коллаборатор, сервисный слой и API handlers, запускает
// topologymetrics и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/bigkaa/goartstore/share-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/share-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/share-module/internal/blobstore"
	"github.com/bigkaa/goartstore/share-module/internal/config"
	"github.com/bigkaa/goartstore/share-module/internal/database"
	"github.com/bigkaa/goartstore/share-module/internal/llm"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
	"github.com/bigkaa/goartstore/share-module/internal/repository/memstore"
	"github.com/bigkaa/goartstore/share-module/internal/repository/mongostore"
	"github.com/bigkaa/goartstore/share-module/internal/search"
	"github.com/bigkaa/goartstore/share-module/internal/server"
	"github.com/bigkaa/goartstore/share-module/internal/service"
)

// jwksReadinessTimeout — таймаут проверки JWKS в readiness probe.
const jwksReadinessTimeout = 5 * time.Second

// metadataStore — выбранное хранилище метаданных.
type metadataStore struct {
	repo    repository.FileRepository
	checker handlers.ReadinessChecker
	close   func()
}

func main() {
	// 0. .env для локального запуска (отсутствие файла не ошибка)
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Не удалось прочитать .env", slog.String("error", err.Error()))
	}

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("share-module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("metadata_backend", cfg.MetadataBackend),
		slog.String("blob_backend", cfg.BlobBackend),
		slog.String("ai_provider", cfg.AIProvider),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Хранилище метаданных
	var deps service.DephealthDeps
	store, err := openMetadataStore(ctx, cfg, logger, &deps)
	if err != nil {
		logger.Error("Ошибка подключения хранилища метаданных", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.close()

	// 4. Blob-хранилище
	blobs, resolver, err := openBlobStore(ctx, cfg, logger, &deps)
	if err != nil {
		logger.Error("Ошибка подключения blob-хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. AI-коллаборатор (none — только fallback)
	ai, err := llm.New(llm.Config{
		Provider: cfg.AIProvider,
		APIKey:   cfg.AIAPIKey,
		Model:    cfg.AIModel,
		BaseURL:  cfg.AIBaseURL,
		Timeout:  cfg.AITimeout,
	})
	if err != nil {
		logger.Error("Ошибка создания AI-коллаборатора", slog.String("error", err.Error()))
		os.Exit(1)
	}
	var ranker search.Ranker
	if ai != nil {
		ranker = search.NewLLMRanker(ai)
	}

	// 6. Services
	cache := service.NewCacheService(cfg.CacheMaxSize, cfg.CacheTTL)
	enricher := service.NewEnricher(ai, cfg.AITimeout, logger)
	aggregator := search.NewAggregator(ranker, cfg.AITimeout, logger)

	filesSvc := service.NewFileService(store.repo, blobs, cache, enricher, service.FilesConfig{
		Container:           cfg.BlobContainer,
		MaxUploadSize:       cfg.MaxUploadSize,
		AllowedContentTypes: cfg.AllowedContentTypes,
	}, logger)
	searchSvc := service.NewSearchService(store.repo, cache, aggregator, enricher, cfg.SearchPool, logger)
	leaderboardSvc := service.NewLeaderboardService(store.repo, cfg.RecommendPool, logger)

	// 7. Readiness checkers (хранилище метаданных + JWKS)
	healthHandler := handlers.NewHealthHandler(
		store.checker,
		middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, jwksReadinessTimeout),
	)

	// 8. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		filesSvc,
		searchSvc,
		leaderboardSvc,
		resolver,
		cfg.MaxUploadSize,
		logger,
	)

	// 9. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(cfg.JWTJWKSURL, cfg.JWTIssuer, cfg.JWTLeeway, logger)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 10. topologymetrics — мониторинг зависимостей
	dephealthSvc, err := service.NewDephealthService(
		"share-module",
		cfg.DephealthGroup,
		deps,
		cfg.DephealthCheckInterval,
		logger,
	)
	switch {
	case errors.Is(err, service.ErrNoDependencies):
		logger.Info("Внешних зависимостей нет, topologymetrics не запускается")
	case err != nil:
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	default:
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 11. HTTP-сервер: метрики → логирование → маршруты
	srv := server.New(cfg, logger, apiHandler, jwtAuth.Middleware(),
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)

	// 12. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Сервер завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1) //nolint:gocritic // defer-функции не критичны при аварийном выходе
	}

	logger.Info("share-module остановлен")
}

// openMetadataStore подключает хранилище метаданных по cfg.MetadataBackend
// и дополняет зависимости для topologymetrics.
func openMetadataStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *service.DephealthDeps) (*metadataStore, error) {
	switch cfg.MetadataBackend {
	case config.MetadataPostgres:
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			return nil, err
		}
		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		// Адаптер pgxpool → *sql.DB: проверка здоровья идёт через тот же пул
		pgDB := stdlib.OpenDBFromPool(pool)
		deps.PostgresDB = pgDB
		deps.PostgresURL = cfg.DependencyURL()
		return &metadataStore{
			repo:    repository.NewFileRepository(pool),
			checker: database.NewReadinessChecker(pool),
			close: func() {
				_ = pgDB.Close()
				pool.Close()
			},
		}, nil

	case config.MetadataMongo:
		client, err := mongostore.Connect(ctx, cfg.MongoURI, logger)
		if err != nil {
			return nil, err
		}
		store := mongostore.New(client, cfg.MongoDatabase, logger)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &metadataStore{
			repo:    store,
			checker: mongostore.NewReadinessChecker(client),
			close:   func() { _ = client.Disconnect(context.Background()) },
		}, nil

	default:
		logger.Warn("Метаданные хранятся в памяти и теряются при перезапуске")
		store := memstore.New(logger)
		return &metadataStore{repo: store, checker: store, close: func() {}}, nil
	}
}

// openBlobStore подключает blob-хранилище по cfg.BlobBackend.
// Для локального каталога возвращает также resolver подписанных ссылок.
func openBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *service.DephealthDeps) (blobstore.Store, handlers.BlobResolver, error) {
	if cfg.BlobBackend == config.BlobLocal {
		local, err := blobstore.NewLocal(cfg.BlobLocalDir, cfg.BlobSigningKey, cfg.PublicBaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Локальное blob-хранилище", slog.String("dir", cfg.BlobLocalDir))
		return local, local, nil
	}

	minioStore, err := blobstore.NewMinIO(blobstore.MinIOConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := minioStore.EnsureContainer(ctx, cfg.BlobContainer); err != nil {
		return nil, nil, err
	}
	deps.MinIOURL = minioStore.Endpoint().String()
	return minioStore, nil, nil
}
