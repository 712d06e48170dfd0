package feed

import (
	"net/http"
	"strings"
	"time"

	"github.com/pixivrss/pixivrss-server/internal/errors"
)

// dateLayouts are the ISO-8601 shapes pixiv has been seen to emit.
// Layouts without a zone are read as UTC.
// Fractional seconds are optional in every layout with seconds.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseDate parses an ISO-8601 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.InvalidDatef("empty date")
	}

	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, errors.Wrapf(lastErr, errors.CodeInvalidDate, "invalid date %q", s)
}

// FormatDate converts an ISO-8601 timestamp to an RFC 7231 HTTP-date,
// e.g. "Tue, 15 Nov 1994 08:12:31 GMT".
func FormatDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return HTTPDate(t), nil
}

// HTTPDate formats t as an RFC 7231 HTTP-date in GMT.
func HTTPDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
