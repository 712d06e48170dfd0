package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Version    string                     `json:"version" doc:"Server version"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"feeds":      s.checkFeeds(),
		"rate_limit": s.checkRateLimiter(),
	}

	overall := "healthy"
	for _, c := range components {
		switch c.Status {
		case "unhealthy":
			overall = "unhealthy"
		case "degraded":
			if overall == "healthy" {
				overall = "degraded"
			}
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Version:    s.opts.Version,
			Components: components,
		},
	}, nil
}

// checkFeeds reports whether a feed builder is wired. Upstream pixiv is
// not contacted.
func (s *Server) checkFeeds() ComponentHealth {
	if s.feeds == nil {
		return ComponentHealth{Status: "unhealthy", Message: "feed service not configured"}
	}
	return ComponentHealth{Status: "healthy"}
}

func (s *Server) checkRateLimiter() ComponentHealth {
	if s.limiter == nil {
		return ComponentHealth{Status: "healthy", Message: "disabled"}
	}
	return ComponentHealth{
		Status:  "healthy",
		Message: formatClientCount(s.limiter.Len()),
	}
}

func formatClientCount(count int) string {
	switch count {
	case 0:
		return "no tracked clients"
	case 1:
		return "1 tracked client"
	default:
		return strconv.Itoa(count) + " tracked clients"
	}
}
