// dephealth_test.go — unit-тесты конфигурации мониторинга зависимостей.
package service

import (
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestDephealthDeps_Empty(t *testing.T) {
	tests := []struct {
		name string
		deps DephealthDeps
		want bool
	}{
		{"ничего", DephealthDeps{}, true},
		{"только URL PostgreSQL", DephealthDeps{PostgresURL: "postgres://db:5432/fs"}, true},
		{"PostgreSQL", DephealthDeps{PostgresDB: &sql.DB{}, PostgresURL: "postgres://db:5432/fs"}, false},
		{"MinIO", DephealthDeps{MinIOURL: "http://minio:9000"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.deps.Empty(); got != tt.want {
				t.Errorf("Empty() = %v, ожидалось %v", got, tt.want)
			}
		})
	}
}

func TestNewDephealthService_NoDependencies(t *testing.T) {
	_, err := NewDephealthServiceWithRegisterer("share-module", "fs", DephealthDeps{},
		15*time.Second, slog.Default(), prometheus.NewRegistry())
	if !errors.Is(err, ErrNoDependencies) {
		t.Errorf("ожидалась ErrNoDependencies, получено: %v", err)
	}
}

func TestNewDephealthService_MinIO(t *testing.T) {
	ds, err := NewDephealthServiceWithRegisterer("share-module", "fs",
		DephealthDeps{MinIOURL: "http://minio.local:9000"},
		15*time.Second, slog.Default(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("ошибка создания: %v", err)
	}
	if ds == nil {
		t.Fatal("сервис не создан")
	}
}
