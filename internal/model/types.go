package model

import "time"

// SchemaVersion is stamped on every persisted record. Decoders reject any
// other value so that malformed or foreign payloads read as absent.
const SchemaVersion = 1

// SubmitStatus is the outcome of a submission.
type SubmitStatus string

const (
	SubmitInvalid     SubmitStatus = "INVALID"
	SubmitPublished   SubmitStatus = "PUBLISHED"
	SubmitResubmitted SubmitStatus = "RESUBMITTED"
)

// SubmitResult is returned by the submit operation. ID is nil when the
// submission was rejected as unsafe.
type SubmitResult struct {
	ID     *string      `json:"id"`
	Status SubmitStatus `json:"status"`
}

// ResourceSummary is the authoritative per-resource record owned by the
// resource actor. Bookmarked holds user ids without duplicates.
type ResourceSummary struct {
	SchemaVersion int       `json:"schemaVersion"`
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	Bookmarked    []string  `json:"bookmarked"`
	ViewCounts    int64     `json:"viewCounts"`
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"`
	UpdatedAt     time.Time `json:"updatedAt"`
	UpdatedBy     string    `json:"updatedBy"`
}

// Resource is the denormalized record served to readers: the summary plus
// the scraped page fields and the derived integration set.
type Resource struct {
	ResourceSummary
	Category     string            `json:"category,omitempty"`
	Author       string            `json:"author,omitempty"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Image        string            `json:"image,omitempty"`
	Video        string            `json:"video,omitempty"`
	IsSafe       bool              `json:"isSafe"`
	PackageName  string            `json:"packageName,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Configs      []string          `json:"configs,omitempty"`
	Integrations []string          `json:"integrations,omitempty"`
}

// ResourceMetadata is the listing projection kept alongside each Resource.
type ResourceMetadata struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	Category       string    `json:"category,omitempty"`
	Author         string    `json:"author,omitempty"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Image          string    `json:"image,omitempty"`
	ViewCounts     int64     `json:"viewCounts"`
	BookmarkCounts int       `json:"bookmarkCounts"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// metadataDescriptionLimit bounds the description carried in listings.
const metadataDescriptionLimit = 80

// BuildMetadata derives the listing projection from a Resource.
// BookmarkCounts is always recomputed from the bookmarked set.
func BuildMetadata(r *Resource) *ResourceMetadata {
	return &ResourceMetadata{
		ID:             r.ID,
		URL:            r.URL,
		Category:       r.Category,
		Author:         r.Author,
		Title:          r.Title,
		Description:    truncate(r.Description, metadataDescriptionLimit),
		Image:          r.Image,
		ViewCounts:     r.ViewCounts,
		BookmarkCounts: len(r.Bookmarked),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// Page is the scraped representation of a URL, enriched with the safety
// verdict. URL holds the canonical URL reported by the scraper.
type Page struct {
	SchemaVersion int               `json:"schemaVersion"`
	URL           string            `json:"url"`
	Category      string            `json:"category,omitempty"`
	Author        string            `json:"author,omitempty"`
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	Image         string            `json:"image,omitempty"`
	Video         string            `json:"video,omitempty"`
	IsSafe        bool              `json:"isSafe"`
	PackageName   string            `json:"packageName,omitempty"`
	Dependencies  map[string]string `json:"dependencies,omitempty"`
	Configs       []string          `json:"configs,omitempty"`
	ScrapedAt     time.Time         `json:"scrapedAt"`
}

// User is a directory profile. Views counts recorded views per resource id.
type User struct {
	SchemaVersion int              `json:"schemaVersion"`
	UserID        string           `json:"userId"`
	ProvisionID   string           `json:"provisionId"`
	DisplayName   *string          `json:"displayName,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	Views         map[string]int64 `json:"views,omitempty"`
	Bookmarks     []string         `json:"bookmarks,omitempty"`
}

// SearchHit is a single result from the search collaborator.
type SearchHit struct {
	ResourceID string  `json:"resourceId"`
	Score      float64 `json:"score"`
}
