// order.go — ключи и порядок сортировки.
package query

import (
	"cmp"
	"strings"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
)

// SortKey — поле сортировки.
type SortKey string

// Допустимые ключи сортировки.
const (
	SortCreatedDate     SortKey = "createdDate"
	SortFileName        SortKey = "fileName"
	SortFileSize        SortKey = "fileSize"
	SortDownloadCount   SortKey = "downloadCount"
	SortPopularityScore SortKey = "popularityScore"
	SortLastAccessed    SortKey = "lastAccessedDate"
)

var sortKeys = []SortKey{
	SortCreatedDate, SortFileName, SortFileSize, SortDownloadCount, SortPopularityScore,
}

// ParseSortKey разбирает ключ сортировки без учёта регистра.
// Неизвестное значение → createdDate.
func ParseSortKey(s string) SortKey {
	s = strings.TrimSpace(s)
	for _, k := range sortKeys {
		if strings.EqualFold(s, string(k)) {
			return k
		}
	}
	return SortCreatedDate
}

// ParseDescending возвращает false только для "asc" (без учёта регистра).
func ParseDescending(s string) bool {
	return !strings.EqualFold(strings.TrimSpace(s), "asc")
}

// OrderBy — один уровень сортировки.
type OrderBy struct {
	Key  SortKey
	Desc bool
}

// Order — многоуровневая сортировка. При полном равенстве записи
// упорядочиваются по ID по возрастанию.
type Order []OrderBy

// ByPopularity — популярность по убыванию, затем скачивания по убыванию.
func ByPopularity() Order {
	return Order{{Key: SortPopularityScore, Desc: true}, {Key: SortDownloadCount, Desc: true}}
}

// Compare сравнивает две записи в соответствии с порядком.
func (o Order) Compare(a, b *model.FileRecord) int {
	for _, ob := range o {
		c := compareBy(ob.Key, a, b)
		if ob.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return strings.Compare(a.ID, b.ID)
}

func compareBy(key SortKey, a, b *model.FileRecord) int {
	switch key {
	case SortFileName:
		return strings.Compare(a.FileName, b.FileName)
	case SortFileSize:
		return cmp.Compare(a.FileSize, b.FileSize)
	case SortDownloadCount:
		return cmp.Compare(a.DownloadCount, b.DownloadCount)
	case SortPopularityScore:
		return cmp.Compare(a.PopularityScore, b.PopularityScore)
	case SortLastAccessed:
		// записи без обращений считаются самыми старыми
		switch {
		case a.LastAccessedDate == nil && b.LastAccessedDate == nil:
			return 0
		case a.LastAccessedDate == nil:
			return -1
		case b.LastAccessedDate == nil:
			return 1
		}
		return a.LastAccessedDate.Compare(*b.LastAccessedDate)
	default:
		return a.CreatedDate.Compare(b.CreatedDate)
	}
}
