package pixiv

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", name, err)
	}
	return data
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)

	client := New(Options{
		BaseURL:    server.URL,
		EmbedURL:   server.URL,
		RPS:        1000,
		Burst:      1000,
		HTTPClient: server.Client(),
	}, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))

	return client, server
}

func TestClient_FetchProfile(t *testing.T) {
	fixture := loadFixture(t, "profile_top.json")

	tests := []struct {
		name       string
		response   []byte
		statusCode int
		wantErr    error
	}{
		{
			name:       "successful fetch",
			response:   fixture,
			statusCode: http.StatusOK,
		},
		{
			name:       "unknown user",
			response:   []byte(`{"error":true,"message":"User not found","body":[]}`),
			statusCode: http.StatusNotFound,
			wantErr:    ErrNotFound,
		},
		{
			name:       "rate limited",
			statusCode: http.StatusTooManyRequests,
			wantErr:    ErrRateLimited,
		},
		{
			name:       "server error",
			statusCode: http.StatusServiceUnavailable,
			wantErr:    ErrServer,
		},
		{
			name:       "forbidden",
			statusCode: http.StatusForbidden,
			wantErr:    ErrUnexpectedStatus,
		},
		{
			name:       "error envelope with 200",
			response:   []byte(`{"error":true,"message":"An error occurred","body":[]}`),
			statusCode: http.StatusOK,
			wantErr:    ErrUpstreamMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if tt.response != nil {
					w.Write(tt.response)
				}
			}

			client, server := newTestClient(t, handler)
			defer server.Close()
			defer client.Close()

			profile, err := client.FetchProfile(context.Background(), "11", "")

			if tt.wantErr != nil {
				require.Error(t, err)
				var pxErr *Error
				require.True(t, errors.As(err, &pxErr))
				assert.Equal(t, "fetchProfile", pxErr.Op)
				assert.Equal(t, "11", pxErr.ID)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, 4, profile.Len())
		})
	}
}

func TestClient_FetchProfile_RequestShape(t *testing.T) {
	var gotPath, gotLang, gotAccept, gotUA string
	handler := func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotLang = r.URL.Query().Get("lang")
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"error":false,"message":"","body":{"illusts":[],"manga":[],"novels":[],"extraData":{"meta":{}}}}`))
	}

	client, server := newTestClient(t, handler)
	defer server.Close()
	defer client.Close()

	profile, err := client.FetchProfile(context.Background(), "11", "en")
	require.NoError(t, err)

	assert.Equal(t, "/ajax/user/11/profile/top", gotPath)
	assert.Equal(t, "en", gotLang)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, 0, profile.Len())
}

func TestClient_FetchProfile_OmitsEmptyLang(t *testing.T) {
	var rawQuery string
	handler := func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.Write([]byte(`{"error":false,"body":{"illusts":{},"manga":{},"novels":{}}}`))
	}

	client, server := newTestClient(t, handler)
	defer server.Close()
	defer client.Close()

	_, err := client.FetchProfile(context.Background(), "11", "")
	require.NoError(t, err)
	assert.Empty(t, rawQuery)
}

func TestClient_FetchProfile_InvalidJSON(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}

	client, server := newTestClient(t, handler)
	defer server.Close()
	defer client.Close()

	_, err := client.FetchProfile(context.Background(), "11", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse response")
}

func TestClient_FetchProfile_ContextDeadline(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}

	client, server := newTestClient(t, handler)
	defer server.Close()
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchProfile(ctx, "11", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_FetchProfile_ParsesFixture(t *testing.T) {
	fixture := loadFixture(t, "profile_top.json")
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Write(fixture)
	}

	client, server := newTestClient(t, handler)
	defer server.Close()
	defer client.Close()

	profile, err := client.FetchProfile(context.Background(), "11", "")
	require.NoError(t, err)

	// Key order from the JSON object is preserved, not sorted.
	require.Len(t, profile.Illusts, 2)
	assert.Equal(t, "300", profile.Illusts[0].ID)
	assert.Equal(t, "100", profile.Illusts[1].ID)

	require.Len(t, profile.Manga, 1)
	require.NotNil(t, profile.Manga[0].IllustType)
	assert.Equal(t, IllustTypeManga, *profile.Manga[0].IllustType)

	// The null entry is skipped.
	require.Len(t, profile.Novels, 1)
	assert.Nil(t, profile.Novels[0].IllustType)
	assert.True(t, profile.Novels[0].IsOriginal)
	assert.Equal(t, 540, profile.Novels[0].ReadingTime)

	assert.Equal(t, "https://www.pixiv.net/users/11", profile.Meta.Canonical)
	assert.Equal(t, "kanade - pixiv", profile.Meta.OGP.Title)
	assert.Equal(t, "https://embed.pixiv.net/user_profile.php?id=11", profile.Meta.OGP.Image)
	assert.Equal(t, "https://www.pixiv.net/en/users/11", profile.Meta.AlternateLanguages["en"])
}

func TestWorks_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantIDs []string
		wantErr bool
	}{
		{
			name:    "empty array",
			input:   `[]`,
			wantIDs: []string{},
		},
		{
			name:    "empty object",
			input:   `{}`,
			wantIDs: []string{},
		},
		{
			name:    "null",
			input:   `null`,
			wantIDs: []string{},
		},
		{
			name:    "object keeps key order",
			input:   `{"3":{"id":"3"},"1":{"id":"1"},"2":{"id":"2"}}`,
			wantIDs: []string{"3", "1", "2"},
		},
		{
			name:    "id falls back to key",
			input:   `{"7":{"title":"untitled"}}`,
			wantIDs: []string{"7"},
		},
		{
			name:    "array of works",
			input:   `[{"id":"5"},{"id":"4"}]`,
			wantIDs: []string{"5", "4"},
		},
		{
			name:    "object skips null works",
			input:   `{"2":null,"1":{"id":"1"}}`,
			wantIDs: []string{"1"},
		},
		{
			name:    "array skips null works",
			input:   `[null,{"id":"5"},null]`,
			wantIDs: []string{"5"},
		},
		{
			name:    "array of only nulls",
			input:   `[null]`,
			wantIDs: []string{},
		},
		{
			name:    "scalar is rejected",
			input:   `"nope"`,
			wantErr: true,
		},
		{
			name:    "malformed work is rejected",
			input:   `{"1":{"id":1}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var works Works
			err := works.UnmarshalJSON([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			ids := make([]string, 0, len(works))
			for _, w := range works {
				ids = append(ids, w.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}
