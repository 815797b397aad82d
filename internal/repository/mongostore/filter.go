// filter.go — трансляция предиката и порядка выборки в BSON.
package mongostore

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bigkaa/goartstore/share-module/internal/domain/query"
)

// sortFields — whitelist полей сортировки.
var sortFields = map[query.SortKey]string{
	query.SortCreatedDate:     "created_date",
	query.SortFileName:        "file_name",
	query.SortFileSize:        "file_size",
	query.SortDownloadCount:   "download_count",
	query.SortPopularityScore: "popularity_score",
	query.SortLastAccessed:    "last_accessed_date",
}

// buildFilter строит фильтр: все условия объединяются через $and.
//
//nolint:cyclop // сложность обусловлена количеством фильтров
func buildFilter(p query.Predicate) bson.M {
	var conds []bson.M

	if !p.IncludeArchived {
		conds = append(conds, bson.M{"is_archived": false})
	}

	if a := p.Access; a != nil {
		alts := []bson.M{{"owner_id": a.CallerID}}
		if a.IncludePublic {
			alts = append(alts, bson.M{"is_public": true})
		}
		if a.IncludeShared && a.CallerEmail != "" {
			alts = append(alts, bson.M{"is_shared": true, "shared_with": a.CallerEmail})
		}
		conds = append(conds, bson.M{"$or": alts})
	}

	if p.OwnerID != "" {
		conds = append(conds, bson.M{"owner_id": p.OwnerID})
	}
	if p.ExcludeOwnerID != "" {
		conds = append(conds, bson.M{"owner_id": bson.M{"$ne": p.ExcludeOwnerID}})
	}
	if p.PublicOnly {
		conds = append(conds, bson.M{"is_public": true})
	}
	if p.SharedWith != "" {
		conds = append(conds, bson.M{"is_shared": true, "shared_with": p.SharedWith})
	}

	// Текст: регистронезависимая подстрока по имени, описанию и AI-описанию
	if p.Text != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(p.Text), Options: "i"}
		conds = append(conds, bson.M{"$or": []bson.M{
			{"file_name": re},
			{"description": re},
			{"ai_summary": re},
		}})
	}

	if p.ContentType != "" {
		conds = append(conds, bson.M{"content_type": p.ContentType})
	}

	created := bson.M{}
	if p.CreatedFrom != nil {
		created["$gte"] = *p.CreatedFrom
	}
	if p.CreatedTo != nil {
		created["$lte"] = *p.CreatedTo
	}
	if len(created) > 0 {
		conds = append(conds, bson.M{"created_date": created})
	}

	size := bson.M{}
	if p.MinSize != nil {
		size["$gte"] = *p.MinSize
	}
	if p.MaxSize != nil {
		size["$lte"] = *p.MaxSize
	}
	if len(size) > 0 {
		conds = append(conds, bson.M{"file_size": size})
	}

	if len(p.AnyTags) > 0 {
		conds = append(conds, bson.M{"tags": bson.M{"$in": p.AnyTags}})
	}

	// null не удовлетворяет $gte: файлы без обращений отсекаются
	if p.AccessedSince != nil {
		conds = append(conds, bson.M{"last_accessed_date": bson.M{"$gte": *p.AccessedSince}})
	}

	if len(conds) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": conds}
}

// buildSort строит порядок сортировки, завершая его _id по возрастанию.
func buildSort(order query.Order) bson.D {
	sort := make(bson.D, 0, len(order)+1)
	for _, ob := range order {
		field, ok := sortFields[ob.Key]
		if !ok {
			field = sortFields[query.SortCreatedDate]
		}
		direction := 1
		if ob.Desc {
			direction = -1
		}
		sort = append(sort, bson.E{Key: field, Value: direction})
	}
	return append(sort, bson.E{Key: "_id", Value: 1})
}
