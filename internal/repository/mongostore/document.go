package mongostore

import (
	"time"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
)

// fileDocument — BSON-представление записи в коллекции files.
// Nil-даты сохраняются как null: при сортировке null идёт раньше любой даты.
type fileDocument struct {
	ID               string     `bson:"_id"`
	OwnerID          string     `bson:"owner_id"`
	OwnerEmail       string     `bson:"owner_email"`
	FileName         string     `bson:"file_name"`
	OriginalFileName string     `bson:"original_file_name"`
	ContentType      string     `bson:"content_type"`
	FileSize         int64      `bson:"file_size"`
	BlobName         string     `bson:"blob_name"`
	ContainerName    string     `bson:"container_name"`
	Checksum         string     `bson:"checksum"`
	IsPublic         bool       `bson:"is_public"`
	IsShared         bool       `bson:"is_shared"`
	SharedWith       []string   `bson:"shared_with"`
	ExpirationDate   *time.Time `bson:"expiration_date"`
	Tags             []string   `bson:"tags"`
	Description      string     `bson:"description"`
	DownloadCount    int64      `bson:"download_count"`
	ViewCount        int64      `bson:"view_count"`
	LastAccessedDate *time.Time `bson:"last_accessed_date"`
	CreatedDate      time.Time  `bson:"created_date"`
	UpdatedDate      time.Time  `bson:"updated_date"`
	IsArchived       bool       `bson:"is_archived"`
	AISummary        string     `bson:"ai_summary"`
	AIKeywords       []string   `bson:"ai_keywords"`
	PopularityScore  float64    `bson:"popularity_score"`
	Version          int64      `bson:"version"`
}

func toDocument(f *model.FileRecord) *fileDocument {
	return &fileDocument{
		ID:               f.ID,
		OwnerID:          f.OwnerID,
		OwnerEmail:       f.OwnerEmail,
		FileName:         f.FileName,
		OriginalFileName: f.OriginalFileName,
		ContentType:      f.ContentType,
		FileSize:         f.FileSize,
		BlobName:         f.BlobName,
		ContainerName:    f.ContainerName,
		Checksum:         f.Checksum,
		IsPublic:         f.IsPublic,
		IsShared:         f.IsShared,
		SharedWith:       nonNil(f.SharedWith),
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
		Version:          f.Version,
	}
}

func (d *fileDocument) toModel() *model.FileRecord {
	return &model.FileRecord{
		ID:               d.ID,
		OwnerID:          d.OwnerID,
		OwnerEmail:       d.OwnerEmail,
		FileName:         d.FileName,
		OriginalFileName: d.OriginalFileName,
		ContentType:      d.ContentType,
		FileSize:         d.FileSize,
		BlobName:         d.BlobName,
		ContainerName:    d.ContainerName,
		Checksum:         d.Checksum,
		IsPublic:         d.IsPublic,
		IsShared:         d.IsShared,
		SharedWith:       nonNil(d.SharedWith),
		ExpirationDate:   utcPtr(d.ExpirationDate),
		Tags:             nonNil(d.Tags),
		Description:      d.Description,
		DownloadCount:    d.DownloadCount,
		ViewCount:        d.ViewCount,
		LastAccessedDate: utcPtr(d.LastAccessedDate),
		CreatedDate:      d.CreatedDate.UTC(),
		UpdatedDate:      d.UpdatedDate.UTC(),
		IsArchived:       d.IsArchived,
		AISummary:        d.AISummary,
		AIKeywords:       nonNil(d.AIKeywords),
		PopularityScore:  d.PopularityScore,
		Version:          d.Version,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
