// Package service orchestrates the feed-building pipeline.
package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pixivrss/pixivrss-server/internal/domain"
	"github.com/pixivrss/pixivrss-server/internal/errors"
	"github.com/pixivrss/pixivrss-server/internal/feed"
	"github.com/pixivrss/pixivrss-server/internal/pixiv"
	"github.com/pixivrss/pixivrss-server/internal/validation"
)

// ProfileFetcher retrieves a pixiv profile.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, userID, lang string) (*pixiv.Profile, error)
}

// EnclosureProber resolves the preview enclosure of a work.
type EnclosureProber interface {
	ProbeEnclosure(ctx context.Context, work domain.Work) (*domain.Enclosure, error)
}

// FeedOptions configures feed building.
type FeedOptions struct {
	// RequestTimeout bounds the whole build, fetch and probes included.
	// Zero means no deadline beyond the caller's context.
	RequestTimeout time.Duration

	// ProbeConcurrency caps in-flight enclosure probes. Zero is unbounded.
	ProbeConcurrency int

	// StrictEnclosures fails the build on the first failed probe.
	// When false, failed enclosures are logged and left out.
	StrictEnclosures bool

	// NewestBuildDate takes lastBuildDate from the newest update.
	NewestBuildDate bool
}

// FeedRequest identifies the feed to build.
type FeedRequest struct {
	UserID string `json:"userId" validate:"required,number,max=20"`
	Lang   string `json:"lang,omitempty" validate:"omitempty,pixiv_lang"`
}

// FeedService builds RSS documents from pixiv profiles.
type FeedService struct {
	fetcher   ProfileFetcher
	prober    EnclosureProber
	opts      FeedOptions
	validator *validation.Validator
	logger    *slog.Logger
}

// NewFeedService creates a new feed service.
func NewFeedService(fetcher ProfileFetcher, prober EnclosureProber, opts FeedOptions, logger *slog.Logger) *FeedService {
	return &FeedService{
		fetcher:   fetcher,
		prober:    prober,
		opts:      opts,
		validator: validation.New(),
		logger:    logger,
	}
}

// Build fetches the user's profile and renders it as an RSS 2.0 document.
// Failures are domain errors: Validation, NotFound, Upstream, EmptyProfile,
// InvalidDate or EnclosureProbe.
func (s *FeedService) Build(ctx context.Context, req FeedRequest) ([]byte, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	s.logger.Debug("building feed", "user_id", req.UserID, "lang", req.Lang)

	profile, err := s.fetcher.FetchProfile(ctx, req.UserID, req.Lang)
	if err != nil {
		if errors.Is(err, pixiv.ErrNotFound) {
			return nil, errors.Wrapf(err, errors.CodeNotFound, "pixiv user %s not found", req.UserID)
		}
		return nil, errors.Wrap(err, errors.CodeUpstream, "fetch profile")
	}

	works, err := feed.Normalize(profile)
	if err != nil {
		return nil, err
	}

	items, omitted, err := s.resolveEnclosures(ctx, works)
	if err != nil {
		return nil, err
	}

	doc, err := feed.Render(feed.ChannelFromMeta(profile.Meta), items, feed.RenderOptions{
		NewestBuildDate: s.opts.NewestBuildDate,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "render feed")
	}

	s.logger.Info("feed built",
		"user_id", req.UserID,
		"items", len(items),
		"omitted_enclosures", omitted,
		"bytes", len(doc),
		"duration", time.Since(start),
	)

	return doc, nil
}

// resolveEnclosures probes every work concurrently and returns the items in
// input order, with the number of enclosures left out.
func (s *FeedService) resolveEnclosures(ctx context.Context, works []domain.Work) ([]domain.FeedItem, int, error) {
	items := make([]domain.FeedItem, len(works))
	failed := make([]bool, len(works))

	g, gctx := errgroup.WithContext(ctx)
	if s.opts.ProbeConcurrency > 0 {
		g.SetLimit(s.opts.ProbeConcurrency)
	}

	for i, w := range works {
		items[i].Work = w
		g.Go(func() error {
			enc, err := s.prober.ProbeEnclosure(gctx, w)
			if err == nil {
				items[i].Enclosure = enc
				return nil
			}

			if s.opts.StrictEnclosures || gctx.Err() != nil {
				return errors.Wrapf(err, errors.CodeEnclosureProbe, "probe enclosure for work %s", w.ID)
			}

			s.logger.Warn("enclosure probe failed, omitting enclosure",
				"work_id", w.ID,
				"kind", w.Kind,
				"error", err,
			)
			failed[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	omitted := 0
	for _, f := range failed {
		if f {
			omitted++
		}
	}
	return items, omitted, nil
}
