// category.go — классификация файлов по MIME-типу для лидербордов.
package scoring

import "strings"

// Категории файлов.
const (
	CategoryImages        = "Images"
	CategoryVideos        = "Videos"
	CategoryAudio         = "Audio"
	CategoryDocuments     = "Documents"
	CategorySpreadsheets  = "Spreadsheets"
	CategoryPresentations = "Presentations"
	CategoryText          = "Text Files"
	CategoryArchives      = "Archives"
	CategoryData          = "Data Files"
	CategoryOther         = "Other"
)

// Category возвращает категорию файла по MIME-типу.
func Category(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return CategoryImages
	case strings.HasPrefix(ct, "video/"):
		return CategoryVideos
	case strings.HasPrefix(ct, "audio/"):
		return CategoryAudio
	case strings.Contains(ct, "pdf"), strings.Contains(ct, "word"),
		strings.Contains(ct, "document"):
		return CategoryDocuments
	case strings.Contains(ct, "excel"), strings.Contains(ct, "spreadsheet"):
		return CategorySpreadsheets
	case strings.Contains(ct, "powerpoint"), strings.Contains(ct, "presentation"):
		return CategoryPresentations
	case strings.HasPrefix(ct, "text/"):
		return CategoryText
	case strings.Contains(ct, "zip"), strings.Contains(ct, "archive"):
		return CategoryArchives
	case strings.Contains(ct, "json"), strings.Contains(ct, "xml"):
		return CategoryData
	default:
		return CategoryOther
	}
}
