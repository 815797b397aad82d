// dto.go — JSON-представления запросов и ответов API (camelCase).
package handlers

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/service"
)

// --- Ответы ---

// fileResponse — метаданные файла.
// Список доступа (sharedWith) виден только владельцу.
type fileResponse struct {
	ID               string                `json:"id"`
	OwnerID          string                `json:"ownerId"`
	OwnerEmail       openapi_types.Email   `json:"ownerEmail,omitempty"`
	FileName         string                `json:"fileName"`
	OriginalFileName string                `json:"originalFileName"`
	ContentType      string                `json:"contentType"`
	FileSize         int64                 `json:"fileSize"`
	Checksum         string                `json:"checksum,omitempty"`
	IsPublic         bool                  `json:"isPublic"`
	IsShared         bool                  `json:"isShared"`
	SharedWith       []openapi_types.Email `json:"sharedWith,omitempty"`
	ExpirationDate   *time.Time            `json:"expirationDate,omitempty"`
	Tags             []string              `json:"tags"`
	Description      string                `json:"description,omitempty"`
	DownloadCount    int64                 `json:"downloadCount"`
	ViewCount        int64                 `json:"viewCount"`
	LastAccessedDate *time.Time            `json:"lastAccessedDate,omitempty"`
	CreatedDate      time.Time             `json:"createdDate"`
	UpdatedDate      time.Time             `json:"updatedDate"`
	IsArchived       bool                  `json:"isArchived"`
	AISummary        string                `json:"aiSummary,omitempty"`
	AIKeywords       []string              `json:"aiKeywords"`
	PopularityScore  float64               `json:"popularityScore"`
}

// toFileResponse конвертирует запись в ответ для вызывающего.
func toFileResponse(f *model.FileRecord, caller model.Caller) fileResponse {
	resp := fileResponse{
		ID:               f.ID,
		OwnerID:          f.OwnerID,
		OwnerEmail:       openapi_types.Email(f.OwnerEmail),
		FileName:         f.FileName,
		OriginalFileName: f.OriginalFileName,
		ContentType:      f.ContentType,
		FileSize:         f.FileSize,
		Checksum:         f.Checksum,
		IsPublic:         f.IsPublic,
		IsShared:         f.IsShared,
		ExpirationDate:   f.ExpirationDate,
		Tags:             nonNil(f.Tags),
		Description:      f.Description,
		DownloadCount:    f.DownloadCount,
		ViewCount:        f.ViewCount,
		LastAccessedDate: f.LastAccessedDate,
		CreatedDate:      f.CreatedDate,
		UpdatedDate:      f.UpdatedDate,
		IsArchived:       f.IsArchived,
		AISummary:        f.AISummary,
		AIKeywords:       nonNil(f.AIKeywords),
		PopularityScore:  f.PopularityScore,
	}
	if caller.ID != "" && f.OwnerID == caller.ID {
		for _, e := range f.SharedWith {
			resp.SharedWith = append(resp.SharedWith, openapi_types.Email(e))
		}
	}
	return resp
}

func toFileList(files []*model.FileRecord, caller model.Caller) []fileResponse {
	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f, caller))
	}
	return out
}

// pageResponse — страница списка файлов.
type pageResponse struct {
	Items    []fileResponse `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
	HasMore  bool           `json:"hasMore"`
}

func toPageResponse(p *service.Page, caller model.Caller) pageResponse {
	return pageResponse{
		Items:    toFileList(p.Items, caller),
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
		HasMore:  p.HasMore,
	}
}

// leaderboardEntryResponse — позиция в рейтинге.
type leaderboardEntryResponse struct {
	Rank          int          `json:"rank"`
	File          fileResponse `json:"file"`
	TrendingScore float64      `json:"trendingScore,omitempty"`
}

func toLeaderboard(entries []service.LeaderboardEntry) []leaderboardEntryResponse {
	out := make([]leaderboardEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, leaderboardEntryResponse{
			Rank:          e.Rank,
			File:          toFileResponse(e.File, model.Caller{}),
			TrendingScore: e.TrendingScore,
		})
	}
	return out
}

type categoryBoardResponse struct {
	Category   string                     `json:"category"`
	TotalScore float64                    `json:"totalScore"`
	Files      []leaderboardEntryResponse `json:"files"`
}

type tagCountResponse struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type statsResponse struct {
	TotalPublicFiles       int                `json:"totalPublicFiles"`
	TotalDownloads         int64              `json:"totalDownloads"`
	TotalViews             int64              `json:"totalViews"`
	AveragePopularityScore float64            `json:"averagePopularityScore"`
	MostPopularContentType string             `json:"mostPopularContentType"`
	TopTags                []tagCountResponse `json:"topTags"`
	FilesCreatedToday      int                `json:"filesCreatedToday"`
	FilesAccessedToday     int                `json:"filesAccessedToday"`
}

func toStatsResponse(s *service.Stats) statsResponse {
	tags := make([]tagCountResponse, 0, len(s.TopTags))
	for _, t := range s.TopTags {
		tags = append(tags, tagCountResponse{Tag: t.Tag, Count: t.Count})
	}
	return statsResponse{
		TotalPublicFiles:       s.TotalPublicFiles,
		TotalDownloads:         s.TotalDownloads,
		TotalViews:             s.TotalViews,
		AveragePopularityScore: s.AveragePopularityScore,
		MostPopularContentType: s.MostPopularContentType,
		TopTags:                tags,
		FilesCreatedToday:      s.FilesCreatedToday,
		FilesAccessedToday:     s.FilesAccessedToday,
	}
}

type trendingTermResponse struct {
	Term     string `json:"term"`
	Count    int    `json:"count"`
	Category string `json:"category"`
}

type analysisResponse struct {
	FileName          string   `json:"fileName"`
	ContentType       string   `json:"contentType"`
	FileSize          int64    `json:"fileSize"`
	AISummary         string   `json:"aiSummary"`
	SuggestedKeywords []string `json:"suggestedKeywords"`
	SuggestedTags     []string `json:"suggestedTags"`
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type urlResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Запросы ---

// searchRequestBody — тело POST /files/search.
// includePublic и includeShared по умолчанию true.
type searchRequestBody struct {
	Query         string     `json:"query"`
	Tags          []string   `json:"tags"`
	ContentType   string     `json:"contentType"`
	DateFrom      *time.Time `json:"dateFrom"`
	DateTo        *time.Time `json:"dateTo"`
	MinFileSize   *int64     `json:"minFileSize"`
	MaxFileSize   *int64     `json:"maxFileSize"`
	SortBy        string     `json:"sortBy"`
	SortDirection string     `json:"sortDirection"`
	Page          int        `json:"page"`
	PageSize      int        `json:"pageSize"`
	IncludePublic *bool      `json:"includePublic"`
	IncludeShared *bool      `json:"includeShared"`
	UseAISearch   bool       `json:"useAiSearch"`
}

// semanticRequestBody — тело POST /search/semantic.
type semanticRequestBody struct {
	Query         string `json:"query"`
	MaxResults    int    `json:"maxResults"`
	IncludePublic *bool  `json:"includePublic"`
	IncludeShared *bool  `json:"includeShared"`
}

// shareRequestBody — тело POST /files/{id}/share.
type shareRequestBody struct {
	ShareWithEmails []string   `json:"shareWithEmails"`
	ExpirationDate  *time.Time `json:"expirationDate"`
}

// updateRequestBody — тело PUT /files/{id}. Отсутствующие поля не меняются.
type updateRequestBody struct {
	Description    *string    `json:"description"`
	Tags           *[]string  `json:"tags"`
	IsPublic       *bool      `json:"isPublic"`
	ExpirationDate *time.Time `json:"expirationDate"`
}

// boolOr возвращает значение указателя или def.
func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
