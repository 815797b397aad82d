// match.go — вычисление предиката над записью в памяти.
package query

import (
	"slices"
	"strings"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
)

// Match проверяет, удовлетворяет ли запись предикату.
func (p Predicate) Match(f *model.FileRecord) bool {
	if !p.IncludeArchived && f.IsArchived {
		return false
	}
	if p.Access != nil && !p.Access.allows(f) {
		return false
	}
	if p.OwnerID != "" && f.OwnerID != p.OwnerID {
		return false
	}
	if p.ExcludeOwnerID != "" && f.OwnerID == p.ExcludeOwnerID {
		return false
	}
	if p.PublicOnly && !f.IsPublic {
		return false
	}
	if p.SharedWith != "" && !(f.IsShared && slices.Contains(f.SharedWith, p.SharedWith)) {
		return false
	}
	if p.Text != "" && !matchText(f, p.Text) {
		return false
	}
	if p.ContentType != "" && f.ContentType != p.ContentType {
		return false
	}
	if p.CreatedFrom != nil && f.CreatedDate.Before(*p.CreatedFrom) {
		return false
	}
	if p.CreatedTo != nil && f.CreatedDate.After(*p.CreatedTo) {
		return false
	}
	if p.MinSize != nil && f.FileSize < *p.MinSize {
		return false
	}
	if p.MaxSize != nil && f.FileSize > *p.MaxSize {
		return false
	}
	if len(p.AnyTags) > 0 && !slices.ContainsFunc(p.AnyTags, func(t string) bool {
		return slices.Contains(f.Tags, t)
	}) {
		return false
	}
	if p.AccessedSince != nil &&
		(f.LastAccessedDate == nil || f.LastAccessedDate.Before(*p.AccessedSince)) {
		return false
	}
	return true
}

// allows — OR из владельца, публичного и расшаренного файла.
func (a *Access) allows(f *model.FileRecord) bool {
	if f.OwnerID == a.CallerID {
		return true
	}
	if a.IncludePublic && f.IsPublic {
		return true
	}
	return a.IncludeShared && a.CallerEmail != "" &&
		f.IsShared && slices.Contains(f.SharedWith, a.CallerEmail)
}

func matchText(f *model.FileRecord, text string) bool {
	q := strings.ToLower(text)
	return strings.Contains(strings.ToLower(f.FileName), q) ||
		strings.Contains(strings.ToLower(f.Description), q) ||
		strings.Contains(strings.ToLower(f.AISummary), q)
}

// Apply фильтрует, сортирует и применяет окно к набору записей.
// Возвращает страницу и общее число подходящих записей.
func Apply(spec Spec, records []*model.FileRecord) ([]*model.FileRecord, int) {
	var matched []*model.FileRecord
	for _, f := range records {
		if spec.Predicate.Match(f) {
			matched = append(matched, f)
		}
	}
	slices.SortStableFunc(matched, spec.Order.Compare)

	total := len(matched)
	if spec.Offset >= total {
		return []*model.FileRecord{}, total
	}
	matched = matched[max(spec.Offset, 0):]
	if spec.Limit > 0 && len(matched) > spec.Limit {
		matched = matched[:spec.Limit]
	}
	return matched, total
}
