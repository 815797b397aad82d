// Пакет scoring — расчёт производных оценок файлов: популярность,
// тренд и персональные рекомендации.
//
// Все функции чистые: результат зависит только от записи и момента now.
package scoring

import (
	"math"
	"time"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
)

const (
	// downloadWeight — вес логарифма скачиваний
	downloadWeight = 40.0
	// viewWeight — вес логарифма просмотров
	viewWeight = 20.0
	// recencyMax — максимальный бонус за свежесть
	recencyMax = 40.0
	// recencyDecayPerDay — убывание бонуса свежести за сутки (до нуля за 20 дней)
	recencyDecayPerDay = 2.0
	// trendingBoost — множитель трендовой оценки
	trendingBoost = 2.0

	// contentTypeBonus — бонус за совпадение с любимым типом контента
	contentTypeBonus = 10.0
	// tagBonus — бонус за каждый общий тег
	tagBonus = 5.0
)

// Popularity вычисляет оценку популярности:
//
//	40·log10(downloads+1) + 20·log10(views+1) + max(0, 40 − 2·daysSinceLastAccess)
//
// При отсутствии обращений возраст считается от даты создания.
// Результат всегда >= 0.
func Popularity(rec *model.FileRecord, now time.Time) float64 {
	downloads := float64(max(rec.DownloadCount, 0))
	views := float64(max(rec.ViewCount, 0))

	ref := rec.CreatedDate
	if rec.LastAccessedDate != nil {
		ref = *rec.LastAccessedDate
	}
	days := max(now.Sub(ref).Hours()/24, 0)

	recency := max(0, recencyMax-recencyDecayPerDay*days)

	return downloadWeight*math.Log10(downloads+1) +
		viewWeight*math.Log10(views+1) +
		recency
}

// Trending вычисляет трендовую оценку для окна window:
//
//	popularityScore × clamp01((window − sinceAccess) / window) × 2
//
// Берётся сохранённая оценка популярности, как и в Recommendation: она
// пересчитывается при каждом обращении, а свежесть учитывает множитель.
// Файлы без обращений или с обращением раньше now−window получают 0.
// Обращение ровно на границе окна также даёт 0.
func Trending(rec *model.FileRecord, now time.Time, window time.Duration) float64 {
	if !InTrendingWindow(rec, now, window) {
		return 0
	}
	since := max(now.Sub(*rec.LastAccessedDate), 0)
	multiplier := clamp01(float64(window-since) / float64(window))

	return max(rec.PopularityScore, 0) * multiplier * trendingBoost
}

// InTrendingWindow проверяет, что к файлу обращались в пределах окна.
func InTrendingWindow(rec *model.FileRecord, now time.Time, window time.Duration) bool {
	if window <= 0 || rec.LastAccessedDate == nil {
		return false
	}
	return !rec.LastAccessedDate.Before(now.Add(-window))
}

// Recommendation вычисляет персональную оценку кандидата для профиля:
//
//	popularity + 10·[contentType ∈ top-3] + 5·|tags ∩ top-5|
//
// Используется сохранённая оценка популярности кандидата.
func Recommendation(rec *model.FileRecord, p Profile) float64 {
	score := rec.PopularityScore
	if p.HasContentType(rec.ContentType) {
		score += contentTypeBonus
	}
	score += tagBonus * float64(p.CommonTags(rec.Tags))
	return score
}

// RecordAccess применяет событие обращения к записи: увеличивает счётчик,
// выставляет lastAccessedDate = now и пересчитывает популярность.
// PostgreSQL и in-memory хранилища вызывают её внутри одной мутации
// записи, поэтому счётчик и оценка всегда сохраняются вместе.
func RecordAccess(rec *model.FileRecord, kind model.AccessKind, now time.Time) {
	switch kind {
	case model.AccessDownload:
		rec.DownloadCount++
	default:
		rec.ViewCount++
	}
	t := now
	rec.LastAccessedDate = &t
	rec.PopularityScore = Popularity(rec, now)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
