package model

import (
	"strings"
	"testing"
	"time"
)

func TestBuildMetadata_TruncatesDescription(t *testing.T) {
	long := strings.Repeat("x", 200)
	r := &Resource{
		ResourceSummary: ResourceSummary{ID: "abc", URL: "https://example.test", Bookmarked: []string{"u1", "u2"}},
		Title:           "Example",
		Description:     long,
	}
	m := BuildMetadata(r)
	if got := len([]rune(m.Description)); got != 80 {
		t.Fatalf("description length = %d, want 80", got)
	}
	if m.BookmarkCounts != 2 {
		t.Fatalf("bookmarkCounts = %d, want 2", m.BookmarkCounts)
	}
}

func TestBuildMetadata_TruncatesByRunesNotBytes(t *testing.T) {
	long := strings.Repeat("é", 100)
	m := BuildMetadata(&Resource{Description: long})
	if got := len([]rune(m.Description)); got != 80 {
		t.Fatalf("rune length = %d, want 80", got)
	}
	if !strings.HasPrefix(long, m.Description) {
		t.Fatalf("truncation split a rune")
	}
}

func TestBuildMetadata_ShortDescriptionUnchanged(t *testing.T) {
	now := time.Now().UTC()
	r := &Resource{
		ResourceSummary: ResourceSummary{ID: "abc", ViewCounts: 7, CreatedAt: now, UpdatedAt: now},
		Description:     "short",
	}
	m := BuildMetadata(r)
	if m.Description != "short" {
		t.Fatalf("description = %q, want %q", m.Description, "short")
	}
	if m.ViewCounts != 7 || !m.CreatedAt.Equal(now) {
		t.Fatalf("summary fields not carried over: %+v", m)
	}
	if m.BookmarkCounts != 0 {
		t.Fatalf("bookmarkCounts = %d, want 0", m.BookmarkCounts)
	}
}
