// Package domain contains the core entities of the pixiv feed pipeline.
package domain

import (
	"slices"
	"time"
)

// WorkKind discriminates the three kinds of pixiv submissions.
type WorkKind int

// Work kinds. The zero value is Illustration to match pixiv's illustType 0.
const (
	WorkKindIllustration WorkKind = iota
	WorkKindManga
	WorkKindNovel
)

// String returns the lowercase kind name used in logs.
func (k WorkKind) String() string {
	switch k {
	case WorkKindIllustration:
		return "illustration"
	case WorkKindManga:
		return "manga"
	case WorkKindNovel:
		return "novel"
	default:
		return "unknown"
	}
}

// IsIllustLike reports whether the kind is served from the artwork endpoints.
func (k WorkKind) IsIllustLike() bool {
	return k == WorkKindIllustration || k == WorkKindManga
}

// Work is one creative submission from a pixiv profile.
// Exactly one of Illust and Novel is set, matching Kind.
type Work struct {
	ID              string    `json:"id"`
	Kind            WorkKind  `json:"kind"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Alt             string    `json:"alt,omitempty"`
	CreateDate      string    `json:"create_date"` // raw upstream value
	UpdateDate      string    `json:"update_date"` // raw upstream value
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Tags            []string  `json:"tags,omitempty"`
	UserID          string    `json:"user_id"`
	UserName        string    `json:"user_name"`
	Restrict        int       `json:"restrict"`
	XRestrict       int       `json:"x_restrict"`
	PageCount       int       `json:"page_count"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`

	Illust *IllustDetails `json:"illust,omitempty"`
	Novel  *NovelDetails  `json:"novel,omitempty"`
}

// IllustDetails holds fields only illustrations and manga carry.
type IllustDetails struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NovelDetails holds fields only novels carry.
type NovelDetails struct {
	IsOriginal  bool `json:"is_original"`
	ReadingTime int  `json:"reading_time"` // seconds, as estimated by pixiv
}

// Enclosure describes an embeddable preview attached to a feed item.
// Length is kept verbatim from Content-Length and may be empty.
type Enclosure struct {
	URL    string `json:"url"`
	Type   string `json:"type"`
	Length string `json:"length"`
}

// FeedItem pairs a work with its resolved enclosure.
// Enclosure is nil only when a failed probe was tolerated.
type FeedItem struct {
	Work      Work
	Enclosure *Enclosure
}

// Languages are the locale codes the pixiv ajax API accepts for lang.
var Languages = []string{"ja", "en", "ko", "zh", "zh_tw"}

// IsLanguage reports whether code is one of Languages.
func IsLanguage(code string) bool {
	return slices.Contains(Languages, code)
}
