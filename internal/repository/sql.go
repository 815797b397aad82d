// sql.go — трансляция предиката и порядка выборки в SQL.
package repository

import (
	"fmt"
	"strings"

	"github.com/bigkaa/goartstore/share-module/internal/domain/query"
)

// sortColumns — whitelist столбцов сортировки (защита от SQL-инъекций).
// file_name сравнивается побайтно, как и при сортировке в памяти.
var sortColumns = map[query.SortKey]string{
	query.SortCreatedDate:     "created_date",
	query.SortFileName:        `file_name COLLATE "C"`,
	query.SortFileSize:        "file_size",
	query.SortDownloadCount:   "download_count",
	query.SortPopularityScore: "popularity_score",
	query.SortLastAccessed:    "last_accessed_date",
}

// whereBuilder накапливает условия и аргументы с нумерацией $N.
type whereBuilder struct {
	conds  []string
	args   []any
	argNum int
}

// arg добавляет аргумент и возвращает его плейсхолдер.
func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	ph := fmt.Sprintf("$%d", b.argNum)
	b.argNum++
	return ph
}

func (b *whereBuilder) add(cond string) {
	b.conds = append(b.conds, cond)
}

// buildWhere строит WHERE-условие и аргументы для предиката.
// startArg — номер первого $-параметра.
//
//nolint:cyclop // сложность обусловлена количеством фильтров
func buildWhere(p query.Predicate, startArg int) (whereClause string, args []any) {
	b := &whereBuilder{argNum: startArg}

	if !p.IncludeArchived {
		b.add("is_archived = FALSE")
	}

	// Клауза доступа: владелец всегда, публичные и расшаренные — по флагам
	if a := p.Access; a != nil {
		alts := []string{"owner_id = " + b.arg(a.CallerID)}
		if a.IncludePublic {
			alts = append(alts, "is_public = TRUE")
		}
		if a.IncludeShared && a.CallerEmail != "" {
			alts = append(alts, fmt.Sprintf("(is_shared = TRUE AND %s = ANY(shared_with))", b.arg(a.CallerEmail)))
		}
		b.add("(" + strings.Join(alts, " OR ") + ")")
	}

	if p.OwnerID != "" {
		b.add("owner_id = " + b.arg(p.OwnerID))
	}
	if p.ExcludeOwnerID != "" {
		b.add("owner_id <> " + b.arg(p.ExcludeOwnerID))
	}
	if p.PublicOnly {
		b.add("is_public = TRUE")
	}
	if p.SharedWith != "" {
		b.add(fmt.Sprintf("(is_shared = TRUE AND %s = ANY(shared_with))", b.arg(p.SharedWith)))
	}

	// Текст: ILIKE по имени, описанию и AI-описанию (один аргумент)
	if p.Text != "" {
		ph := b.arg("%" + escapeLike(p.Text) + "%")
		b.add(fmt.Sprintf("(file_name ILIKE %[1]s OR description ILIKE %[1]s OR ai_summary ILIKE %[1]s)", ph))
	}

	if p.ContentType != "" {
		b.add("content_type = " + b.arg(p.ContentType))
	}
	if p.CreatedFrom != nil {
		b.add("created_date >= " + b.arg(*p.CreatedFrom))
	}
	if p.CreatedTo != nil {
		b.add("created_date <= " + b.arg(*p.CreatedTo))
	}
	if p.MinSize != nil {
		b.add("file_size >= " + b.arg(*p.MinSize))
	}
	if p.MaxSize != nil {
		b.add("file_size <= " + b.arg(*p.MaxSize))
	}

	// Теги: пересечение массивов (хотя бы один тег)
	if len(p.AnyTags) > 0 {
		b.add("tags && " + b.arg(p.AnyTags))
	}

	if p.AccessedSince != nil {
		b.add("last_accessed_date >= " + b.arg(*p.AccessedSince))
	}

	if len(b.conds) == 0 {
		return "", b.args
	}
	return "WHERE " + strings.Join(b.conds, " AND "), b.args
}

// buildOrderBy строит ORDER BY по whitelist столбцов.
// Завершается file_id ASC для детерминированного порядка.
func buildOrderBy(order query.Order) string {
	parts := make([]string, 0, len(order)+1)
	for _, ob := range order {
		column, ok := sortColumns[ob.Key]
		if !ok {
			column = sortColumns[query.SortCreatedDate]
		}
		direction := "ASC"
		if ob.Desc {
			direction = "DESC"
		}
		// Записи без обращений считаются самыми старыми
		if ob.Key == query.SortLastAccessed {
			if ob.Desc {
				direction += " NULLS LAST"
			} else {
				direction += " NULLS FIRST"
			}
		}
		parts = append(parts, column+" "+direction)
	}
	parts = append(parts, "file_id ASC")
	return "ORDER BY " + strings.Join(parts, ", ")
}

// escapeLike экранирует спецсимволы LIKE (\, %, _).
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
