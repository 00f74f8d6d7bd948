package database

import "time"

// MediaType classifies a media record by its content.
type MediaType string

const (
	MediaTypePhoto MediaType = "Photo"
	MediaTypeVideo MediaType = "Video"
)

// ParseMediaType parses a media type string (case-sensitive exact match).
func ParseMediaType(s string) (MediaType, bool) {
	switch MediaType(s) {
	case MediaTypePhoto:
		return MediaTypePhoto, true
	case MediaTypeVideo:
		return MediaTypeVideo, true
	default:
		return "", false
	}
}

// MediaItem is a single ingested photo or video with its metadata.
type MediaItem struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	FilePath      string    `json:"filePath"`
	ThumbnailPath string    `json:"thumbnailPath"`
	Type          MediaType `json:"type"`
	UploadDate    time.Time `json:"uploadDate"`
	CategoryID    int64     `json:"categoryId"`
	CategoryName  string    `json:"categoryName,omitempty"`
	UserID        string    `json:"userId"`
	Keywords      []Keyword `json:"keywords,omitempty"`
	ShareToken    string    `json:"shareToken,omitempty"`
	IsDeleted     bool      `json:"isDeleted,omitempty"`
}

// Category groups media records. Soft-deleted categories disappear from the
// filter dropdown but existing records keep the reference.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsDeleted bool      `json:"isDeleted,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Keyword is a normalized tag. Text is its identity, case-insensitively;
// the stored casing is whichever was seen first.
type Keyword struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// GalleryItem is the summary projection used in gallery pages.
type GalleryItem struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	ThumbnailPath string `json:"thumbnailPath"`
}

// GalleryPage is one page of filtered gallery results plus paging metadata.
// TotalItems always reflects the filtered count before pagination.
type GalleryPage struct {
	Items      []GalleryItem `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalItems int           `json:"totalItems"`
	TotalPages int           `json:"totalPages"`
}
