// search.go — обработчики поиска: постраничный, семантический,
// подсказки, похожие файлы, популярные запросы и анализ файла.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/goartstore/share-module/internal/api/errors"
	"github.com/bigkaa/goartstore/share-module/internal/domain/query"
	"github.com/bigkaa/goartstore/share-module/internal/service"
)

// SearchFiles — POST /api/v1/files/search.
func (h *APIHandler) SearchFiles(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var body searchRequestBody
	if !decodeJSON(w, r, &body) {
		return
	}

	page, err := h.search.Search(r.Context(), c, query.SearchRequest{
		Query:         body.Query,
		Tags:          body.Tags,
		ContentType:   body.ContentType,
		DateFrom:      body.DateFrom,
		DateTo:        body.DateTo,
		MinFileSize:   body.MinFileSize,
		MaxFileSize:   body.MaxFileSize,
		SortBy:        body.SortBy,
		SortDirection: body.SortDirection,
		Page:          body.Page,
		PageSize:      body.PageSize,
		IncludePublic: boolOr(body.IncludePublic, true),
		IncludeShared: boolOr(body.IncludeShared, true),
		UseAISearch:   body.UseAISearch,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "поиск файлов")
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(page, c))
}

// SemanticSearch — POST /api/v1/search/semantic.
func (h *APIHandler) SemanticSearch(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var body semanticRequestBody
	if !decodeJSON(w, r, &body) {
		return
	}
	files, err := h.search.Semantic(r.Context(), c, service.SemanticRequest{
		Query:         body.Query,
		MaxResults:    body.MaxResults,
		IncludePublic: boolOr(body.IncludePublic, true),
		IncludeShared: boolOr(body.IncludeShared, true),
	})
	if err != nil {
		h.writeServiceError(w, r, err, "семантический поиск")
		return
	}
	writeJSON(w, http.StatusOK, toFileList(files, c))
}

// SearchSuggestions — GET /api/v1/search/suggestions?query=...
func (h *APIHandler) SearchSuggestions(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	q, err := queryString(r, "query")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, suggestionsResponse{Suggestions: h.search.Suggestions(r.Context(), q)})
}

// SimilarFiles — GET /api/v1/search/similar/{id}?maxResults=N.
func (h *APIHandler) SimilarFiles(w http.ResponseWriter, r *http.Request) {
	c, id, ok := callerAndID(w, r)
	if !ok {
		return
	}
	p, ok := queryInts(w, r, []string{"maxResults"}, []int{0})
	if !ok {
		return
	}
	files, err := h.search.Similar(r.Context(), c, id, p[0])
	if err != nil {
		h.writeServiceError(w, r, err, "поиск похожих файлов")
		return
	}
	writeJSON(w, http.StatusOK, toFileList(files, c))
}

// TrendingSearches — GET /api/v1/search/trending?limit=N (без аутентификации).
func (h *APIHandler) TrendingSearches(w http.ResponseWriter, r *http.Request) {
	p, ok := queryInts(w, r, []string{"limit"}, []int{0})
	if !ok {
		return
	}
	terms, err := h.search.TrendingTerms(r.Context(), p[0])
	if err != nil {
		h.writeServiceError(w, r, err, "популярные запросы")
		return
	}
	out := make([]trendingTermResponse, 0, len(terms))
	for _, t := range terms {
		out = append(out, trendingTermResponse{Term: t.Term, Count: t.Count, Category: t.Category})
	}
	writeJSON(w, http.StatusOK, out)
}

// AnalyzeFile — POST /api/v1/search/analyze (multipart: file).
// Содержимое не сохраняется.
func (h *APIHandler) AnalyzeFile(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	file, header, ok := h.parseMultipartFile(w, r)
	if !ok {
		return
	}
	_ = file.Close()

	a, err := h.search.Analyze(r.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size)
	if err != nil {
		h.writeServiceError(w, r, err, "анализ файла")
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse{
		FileName:          a.FileName,
		ContentType:       a.ContentType,
		FileSize:          a.FileSize,
		AISummary:         a.AISummary,
		SuggestedKeywords: nonNil(a.SuggestedKeywords),
		SuggestedTags:     nonNil(a.SuggestedTags),
	})
}
