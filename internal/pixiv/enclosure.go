package pixiv

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pixivrss/pixivrss-server/internal/domain"
)

// EnclosureURL returns the embed preview URL for a work.
func EnclosureURL(embedBase string, work domain.Work) string {
	if work.Kind.IsIllustLike() {
		return embedBase + "/artwork.php?" + url.Values{"illust_id": {work.ID}}.Encode()
	}
	return embedBase + "/novel.php?" + url.Values{"id": {work.ID}}.Encode()
}

// ProbeEnclosure issues a HEAD request for the work's embed preview and
// returns its media type and byte length. The headers are taken whatever
// the status; a non-2xx response is only logged. A missing Content-Length
// yields an empty Length; a missing Content-Type is an error.
func (c *Client) ProbeEnclosure(ctx context.Context, work domain.Work) (*domain.Enclosure, error) {
	probeURL := EnclosureURL(c.embedURL, work)

	resp, err := c.doRequest(ctx, http.MethodHead, probeURL)
	if err != nil {
		return nil, wrapError("probeEnclosure", work.ID, err)
	}
	resp.Body.Close()

	if status := checkStatus(resp.StatusCode, nil); status != nil {
		c.logger.Warn("enclosure preview returned non-2xx status",
			"work_id", work.ID,
			"status", resp.StatusCode,
			"error", status,
		)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		return nil, wrapError("probeEnclosure", work.ID, ErrMissingContentType)
	}

	length := resp.Header.Get("Content-Length")
	if length == "" && resp.ContentLength >= 0 {
		length = strconv.FormatInt(resp.ContentLength, 10)
	}

	c.logger.Debug("enclosure probed",
		"work_id", work.ID,
		"kind", work.Kind,
		"type", contentType,
		"length", length,
	)

	return &domain.Enclosure{
		URL:    probeURL,
		Type:   contentType,
		Length: length,
	}, nil
}
