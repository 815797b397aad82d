// Пакет mongostore — хранилище метаданных файлов в MongoDB.
// Используется при FS_METADATA_BACKEND=mongo.
//
// Изменяемые поля обновляются с проверкой версии (version),
// обращения (счётчик и популярность) пишутся одной записью с той же проверкой.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/domain/query"
	"github.com/bigkaa/goartstore/share-module/internal/domain/scoring"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
)

// collectionName — коллекция метаданных файлов.
const collectionName = "files"

// Connect подключается к MongoDB и проверяет доступность через ping.
func Connect(ctx context.Context, uri string, logger *slog.Logger) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB недоступен: %w", err)
	}

	logger.Info("Подключение к MongoDB установлено")
	return client, nil
}

// Store — реализация repository.FileRepository поверх коллекции MongoDB.
type Store struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// New создаёт хранилище в базе dbName.
func New(client *mongo.Client, dbName string, logger *slog.Logger) *Store {
	return &Store{
		coll:   client.Database(dbName).Collection(collectionName),
		logger: logger.With(slog.String("component", "mongostore")),
	}
}

// EnsureIndexes создаёт индексы коллекции (идемпотентно).
func (s *Store) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "popularity_score", Value: -1}, {Key: "download_count", Value: -1}}},
		{Keys: bson.D{{Key: "last_accessed_date", Value: 1}}},
		{Keys: bson.D{{Key: "created_date", Value: -1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "shared_with", Value: 1}}},
	}
	names, err := s.coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return fmt.Errorf("ошибка создания индексов: %w", err)
	}
	s.logger.Info("Индексы MongoDB созданы", slog.Int("count", len(names)))
	return nil
}

// Create вставляет новую запись.
func (s *Store) Create(ctx context.Context, f *model.FileRecord) error {
	if f.Version == 0 {
		f.Version = 1
	}
	if _, err := s.coll.InsertOne(ctx, toDocument(f)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("ошибка создания записи файла: %w", err)
	}
	return nil
}

// GetByID возвращает запись по ID или ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*model.FileRecord, error) {
	var doc fileDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return doc.toModel(), nil
}

// Find выполняет выборку с фильтром, сортировкой и окном.
func (s *Store) Find(ctx context.Context, spec query.Spec) ([]*model.FileRecord, int, error) {
	filter := buildFilter(spec.Predicate)

	opts := options.Find().SetSort(buildSort(spec.Order))
	if spec.Offset > 0 {
		opts.SetSkip(int64(spec.Offset))
	}
	if spec.Limit > 0 {
		opts.SetLimit(int64(spec.Limit))
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка поиска файлов: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []fileDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("ошибка чтения результатов: %w", err)
	}

	result := make([]*model.FileRecord, 0, len(docs))
	for i := range docs {
		result = append(result, docs[i].toModel())
	}

	if spec.Limit == 0 && spec.Offset == 0 {
		return result, len(result), nil
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта файлов: %w", err)
	}
	return result, int(total), nil
}

// Update сохраняет изменяемые поля при совпадении версии.
func (s *Store) Update(ctx context.Context, f *model.FileRecord) error {
	update := bson.M{
		"$set": bson.M{
			"file_name":       f.FileName,
			"description":     f.Description,
			"tags":            nonNil(f.Tags),
			"is_public":       f.IsPublic,
			"is_shared":       f.IsShared,
			"shared_with":     nonNil(f.SharedWith),
			"expiration_date": f.ExpirationDate,
			"is_archived":     f.IsArchived,
			"ai_summary":      f.AISummary,
			"ai_keywords":     nonNil(f.AIKeywords),
			"updated_date":    f.UpdatedDate,
		},
		"$inc": bson.M{"version": 1},
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": f.ID, "version": f.Version}, update)
	if err != nil {
		return fmt.Errorf("ошибка обновления файла: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetByID(ctx, f.ID); err != nil {
			return err
		}
		return repository.ErrConflict
	}
	f.Version++
	return nil
}

// Delete удаляет запись владельца.
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("ошибка удаления файла: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// recordAccessAttempts — предел повторов RecordAccess при конкуренции
// за одну запись.
const recordAccessAttempts = 100

// RecordAccess применяет обращение одной записью документа: счётчик,
// lastAccessedDate и пересчитанная популярность меняются вместе при
// совпадении версии. Проигравший гонку (параллельное обращение или Update)
// перечитывает документ и повторяет попытку, поэтому читатели никогда не
// видят увеличенный счётчик со старой оценкой.
func (s *Store) RecordAccess(ctx context.Context, id string, kind model.AccessKind, now time.Time) (*model.FileRecord, error) {
	for attempt := 1; attempt <= recordAccessAttempts; attempt++ {
		f, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		version := f.Version
		scoring.RecordAccess(f, kind, now)

		res, err := s.coll.UpdateOne(ctx,
			bson.M{"_id": id, "version": version},
			bson.M{
				"$set": bson.M{
					"download_count":     f.DownloadCount,
					"view_count":         f.ViewCount,
					"last_accessed_date": f.LastAccessedDate,
					"popularity_score":   f.PopularityScore,
				},
				"$inc": bson.M{"version": 1},
			},
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка обновления счётчиков: %w", err)
		}
		if res.MatchedCount == 1 {
			f.Version = version + 1
			return f, nil
		}
		s.logger.Debug("Версия изменилась, повтор RecordAccess",
			slog.String("file_id", id),
			slog.Int("attempt", attempt),
		)
	}
	return nil, fmt.Errorf("RecordAccess %s: %w", id, repository.ErrConflict)
}

// ReadinessChecker — проверка готовности MongoDB для health endpoint.
type ReadinessChecker struct {
	client *mongo.Client
}

// NewReadinessChecker создаёт проверку готовности MongoDB.
func NewReadinessChecker(client *mongo.Client) *ReadinessChecker {
	return &ReadinessChecker{client: client}
}

// CheckReady проверяет подключение через ping.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return "fail", fmt.Sprintf("MongoDB недоступен: %v", err)
	}
	return "ok", "подключение активно"
}
