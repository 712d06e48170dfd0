package providers

import (
	"github.com/samber/do/v2"

	"github.com/pixivrss/pixivrss-server/internal/config"
	"github.com/pixivrss/pixivrss-server/internal/logger"
	"github.com/pixivrss/pixivrss-server/internal/service"
)

// ProvideFeedService provides the feed-building service.
func ProvideFeedService(i do.Injector) (*service.FeedService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	clientHandle := do.MustInvoke[*PixivClientHandle](i)

	opts := service.FeedOptions{
		RequestTimeout:   cfg.Pixiv.RequestTimeout,
		ProbeConcurrency: cfg.Pixiv.ProbeConcurrency,
		StrictEnclosures: cfg.Pixiv.StrictEnclosures,
		NewestBuildDate:  cfg.Feed.BuildDate == config.BuildDateNewest,
	}

	if !opts.StrictEnclosures {
		log.Warn("Enclosure probe failures will drop enclosures instead of failing the feed")
	}

	feedLog := log.WithField("component", "feed")
	return service.NewFeedService(clientHandle.Client, clientHandle.Client, opts, feedLog.Logger), nil
}
