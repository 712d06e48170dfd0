package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/pixivrss/pixivrss-server/internal/api"
	"github.com/pixivrss/pixivrss-server/internal/config"
	"github.com/pixivrss/pixivrss-server/internal/logger"
	"github.com/pixivrss/pixivrss-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
	addr    net.Addr
}

// ListenAddr returns the bound address, which differs from Addr when the
// configured port is 0.
func (h *HTTPServerHandle) ListenAddr() net.Addr {
	return h.addr
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	defer h.handler.Close()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	feedService := do.MustInvoke[*service.FeedService](i)

	handler := api.NewServer(feedService, api.Options{
		Version:            Version,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RateLimitRPM:       cfg.RateLimit.RequestsPerMinute,
		RateLimitBurst:     cfg.RateLimit.Burst,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Bind before returning so a taken port fails bootstrap.
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		handler.Close()
		return nil, fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}

	// Serve in background
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", ln.Addr().String(), "feed_path", "/users/{userId}")

	return &HTTPServerHandle{Server: srv, handler: handler, addr: ln.Addr()}, nil
}
