// Package feed turns a pixiv profile into an RSS 2.0 document.
package feed

import (
	"sort"

	"github.com/pixivrss/pixivrss-server/internal/domain"
	"github.com/pixivrss/pixivrss-server/internal/errors"
	"github.com/pixivrss/pixivrss-server/internal/pixiv"
)

// Normalize flattens a profile into one stream ordered by update time,
// oldest first. Illustrations come before manga and manga before novels,
// each in upstream order, so works updated at the same instant keep that
// order.
func Normalize(p *pixiv.Profile) ([]domain.Work, error) {
	if p == nil {
		return nil, errors.EmptyProfile("profile has no works")
	}

	works := make([]domain.Work, 0, p.Len())
	for _, collection := range []pixiv.Works{p.Illusts, p.Manga, p.Novels} {
		for _, raw := range collection {
			w, err := toWork(raw)
			if err != nil {
				return nil, err
			}
			works = append(works, w)
		}
	}

	if len(works) == 0 {
		return nil, errors.EmptyProfile("profile has no works")
	}

	sort.SliceStable(works, func(i, j int) bool {
		return works[i].UpdatedAt.Before(works[j].UpdatedAt)
	})

	return works, nil
}

// toWork converts a raw work, deciding its kind from illustType.
func toWork(raw pixiv.RawWork) (domain.Work, error) {
	created, err := ParseDate(raw.CreateDate)
	if err != nil {
		return domain.Work{}, errors.Wrapf(err, errors.CodeInvalidDate, "work %s createDate", raw.ID)
	}
	updated, err := ParseDate(raw.UpdateDate)
	if err != nil {
		return domain.Work{}, errors.Wrapf(err, errors.CodeInvalidDate, "work %s updateDate", raw.ID)
	}

	w := domain.Work{
		ID:              raw.ID,
		Kind:            kindOf(raw),
		Title:           raw.Title,
		Description:     raw.Description,
		Alt:             raw.Alt,
		CreateDate:      raw.CreateDate,
		UpdateDate:      raw.UpdateDate,
		CreatedAt:       created,
		UpdatedAt:       updated,
		Tags:            raw.Tags,
		UserID:          raw.UserID,
		UserName:        raw.UserName,
		Restrict:        raw.Restrict,
		XRestrict:       raw.XRestrict,
		PageCount:       raw.PageCount,
		ThumbnailURL:    raw.URL,
		ProfileImageURL: raw.ProfileImageURL,
	}

	if w.Kind.IsIllustLike() {
		w.Illust = &domain.IllustDetails{Width: raw.Width, Height: raw.Height}
	} else {
		w.Novel = &domain.NovelDetails{IsOriginal: raw.IsOriginal, ReadingTime: raw.ReadingTime}
	}

	return w, nil
}

// kindOf treats a work without illustType as a novel.
// Ugoira (illustType 2) renders as an illustration.
func kindOf(raw pixiv.RawWork) domain.WorkKind {
	switch {
	case raw.IllustType == nil:
		return domain.WorkKindNovel
	case *raw.IllustType == pixiv.IllustTypeManga:
		return domain.WorkKindManga
	default:
		return domain.WorkKindIllustration
	}
}
