package providers

import (
	"github.com/samber/do/v2"

	"github.com/pixivrss/pixivrss-server/internal/config"
	"github.com/pixivrss/pixivrss-server/internal/logger"
	"github.com/pixivrss/pixivrss-server/internal/pixiv"
)

// PixivClientHandle wraps the pixiv client with shutdown capability.
type PixivClientHandle struct {
	*pixiv.Client
}

// Shutdown implements do.Shutdownable.
func (h *PixivClientHandle) Shutdown() error {
	h.Client.Close()
	return nil
}

// ProvidePixivClient provides the rate-limited pixiv client.
func ProvidePixivClient(i do.Injector) (*PixivClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := pixiv.New(pixiv.Options{
		BaseURL:   cfg.Pixiv.BaseURL,
		EmbedURL:  cfg.Pixiv.EmbedURL,
		UserAgent: cfg.Pixiv.UserAgent,
		RPS:       cfg.Pixiv.RPS,
		Burst:     cfg.Pixiv.Burst,
		Timeout:   cfg.Pixiv.RequestTimeout,
	}, log.WithField("component", "pixiv").Logger)

	log.Info("pixiv client initialized",
		"base_url", cfg.Pixiv.BaseURL,
		"embed_url", client.EmbedURL(),
		"rps", cfg.Pixiv.RPS,
	)

	return &PixivClientHandle{Client: client}, nil
}
