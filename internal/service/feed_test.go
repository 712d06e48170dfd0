package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixivrss/pixivrss-server/internal/domain"
	"github.com/pixivrss/pixivrss-server/internal/errors"
	"github.com/pixivrss/pixivrss-server/internal/pixiv"
)

type fakeFetcher struct {
	profile  *pixiv.Profile
	err      error
	gotUser  string
	gotLang  string
	deadline bool
}

func (f *fakeFetcher) FetchProfile(ctx context.Context, userID, lang string) (*pixiv.Profile, error) {
	f.gotUser = userID
	f.gotLang = lang
	_, f.deadline = ctx.Deadline()
	return f.profile, f.err
}

type fakeProber struct {
	fail     map[string]error
	delay    time.Duration
	mu       sync.Mutex
	probed   []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (p *fakeProber) ProbeEnclosure(ctx context.Context, w domain.Work) (*domain.Enclosure, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		seen := p.maxSeen.Load()
		if n <= seen || p.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	p.mu.Lock()
	p.probed = append(p.probed, w.ID)
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := p.fail[w.ID]; err != nil {
		return nil, err
	}
	return &domain.Enclosure{
		URL:    pixiv.EnclosureURL(pixiv.DefaultEmbedURL, w),
		Type:   "image/jpeg",
		Length: "12345",
	}, nil
}

func intPtr(v int) *int { return &v }

func testProfile() *pixiv.Profile {
	return &pixiv.Profile{
		Illusts: pixiv.Works{
			{ID: "300", Title: "Evening harbor", CreateDate: "2024-03-01T18:00:00+09:00", UpdateDate: "2024-03-02T09:00:00+09:00", IllustType: intPtr(0)},
			{ID: "100", Title: "Morning", CreateDate: "2024-01-01T00:00:00+00:00", UpdateDate: "2024-01-02T00:00:00+00:00", IllustType: intPtr(0)},
		},
		Manga: pixiv.Works{
			{ID: "200", Title: "Four panels", CreateDate: "2024-02-01T12:00:00+09:00", UpdateDate: "2024-02-01T12:00:00+09:00", IllustType: intPtr(1)},
		},
		Novels: pixiv.Works{
			{ID: "900", Title: "Letters", CreateDate: "2023-12-24T20:00:00+09:00", UpdateDate: "2023-12-25T08:00:00+09:00"},
		},
		Meta: pixiv.Meta{
			Canonical: "https://www.pixiv.net/users/11",
			OGP: pixiv.OGP{
				Title:       "kanade - pixiv",
				Description: "kanade shares illustrations and novels",
				Image:       "https://embed.pixiv.net/user_profile.php?id=11",
			},
		},
	}
}

func newTestFeedService(f ProfileFetcher, p EnclosureProber, opts FeedOptions) *FeedService {
	return NewFeedService(f, p, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func parseFeed(t *testing.T, doc []byte) *gofeed.Feed {
	t.Helper()
	f, err := gofeed.NewParser().ParseString(string(doc))
	require.NoError(t, err)
	return f
}

func TestFeedService_Build(t *testing.T) {
	fetcher := &fakeFetcher{profile: testProfile()}
	prober := &fakeProber{}
	svc := newTestFeedService(fetcher, prober, FeedOptions{StrictEnclosures: true, RequestTimeout: time.Second})

	doc, err := svc.Build(context.Background(), FeedRequest{UserID: "11", Lang: "en"})
	require.NoError(t, err)

	assert.Equal(t, "11", fetcher.gotUser)
	assert.Equal(t, "en", fetcher.gotLang)
	assert.True(t, fetcher.deadline)
	assert.ElementsMatch(t, []string{"300", "100", "200", "900"}, prober.probed)

	f := parseFeed(t, doc)
	assert.Equal(t, "kanade - pixiv", f.Title)
	assert.Equal(t, "https://www.pixiv.net/users/11", f.Link)
	// Oldest update is the novel.
	assert.Equal(t, "Sun, 24 Dec 2023 23:00:00 GMT", f.Updated)

	require.Len(t, f.Items, 4)
	var order []string
	for _, item := range f.Items {
		order = append(order, strings.TrimPrefix(item.Link, "https://www.pixiv.net/artworks/"))
		require.Len(t, item.Enclosures, 1)
		assert.Equal(t, "image/jpeg", item.Enclosures[0].Type)
	}
	assert.Equal(t, []string{"900", "100", "200", "300"}, order)
	assert.Equal(t, "https://embed.pixiv.net/novel.php?id=900", f.Items[0].Enclosures[0].URL)
}

func TestFeedService_Build_NoDeadlineWhenUnset(t *testing.T) {
	fetcher := &fakeFetcher{profile: testProfile()}
	svc := newTestFeedService(fetcher, &fakeProber{}, FeedOptions{StrictEnclosures: true})

	_, err := svc.Build(context.Background(), FeedRequest{UserID: "11"})
	require.NoError(t, err)
	assert.False(t, fetcher.deadline)
}

func TestFeedService_Build_Validation(t *testing.T) {
	fetcher := &fakeFetcher{profile: testProfile()}
	svc := newTestFeedService(fetcher, &fakeProber{}, FeedOptions{})

	for _, req := range []FeedRequest{{}, {UserID: "abc"}, {UserID: "11", Lang: "fr"}} {
		_, err := svc.Build(context.Background(), req)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrValidation)
	}
	assert.Empty(t, fetcher.gotUser, "fetcher must not be called for invalid requests")
}

func TestFeedService_Build_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"not found", &pixiv.Error{Op: "fetchProfile", ID: "11", Err: pixiv.ErrNotFound}, errors.ErrNotFound},
		{"server error", &pixiv.Error{Op: "fetchProfile", ID: "11", Err: pixiv.ErrServer}, errors.ErrUpstream},
		{"error envelope", fmt.Errorf("%w: An error occurred", pixiv.ErrUpstreamMessage), errors.ErrUpstream},
		{"deadline", context.DeadlineExceeded, errors.ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := &fakeProber{}
			svc := newTestFeedService(&fakeFetcher{err: tt.err}, prober, FeedOptions{StrictEnclosures: true})

			_, err := svc.Build(context.Background(), FeedRequest{UserID: "11"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, stderrors.Is(err, tt.err), "cause should be kept")
			assert.Empty(t, prober.probed)
		})
	}
}

func TestFeedService_Build_EmptyProfile(t *testing.T) {
	prober := &fakeProber{}
	svc := newTestFeedService(&fakeFetcher{profile: &pixiv.Profile{}}, prober, FeedOptions{StrictEnclosures: true})

	_, err := svc.Build(context.Background(), FeedRequest{UserID: "11"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptyProfile)
	assert.Empty(t, prober.probed)
}

func TestFeedService_Build_InvalidDate(t *testing.T) {
	p := testProfile()
	p.Manga[0].CreateDate = "someday"

	svc := newTestFeedService(&fakeFetcher{profile: p}, &fakeProber{}, FeedOptions{StrictEnclosures: true})

	_, err := svc.Build(context.Background(), FeedRequest{UserID: "11"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidDate)
}

func TestFeedService_Build_StrictProbeFailure(t *testing.T) {
	prober := &fakeProber{fail: map[string]error{"200": pixiv.ErrMissingContentType}}
	svc := newTestFeedService(&fakeFetcher{profile: testProfile()}, prober, FeedOptions{StrictEnclosures: true})

	doc, err := svc.Build(context.Background(), FeedRequest{UserID: "11"})
	require.Error(t, err)
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, errors.ErrEnclosureProbe)
	assert.ErrorIs(t, err, pixiv.ErrMissingContentType)
	assert.Contains(t, err.Error(), "work 200")
}

func TestFeedService_Build_LenientProbeFailure(t *testing.T) {
	prober := &fakeProber{fail: map[string]error{"200": pixiv.ErrServer}}
	svc := newTestFeedService(&fakeFetcher{profile: testProfile()}, prober, FeedOptions{})

	doc, err := svc.Build(context.Background(), FeedRequest{UserID: "11"})
	require.NoError(t, err)

	f := parseFeed(t, doc)
	require.Len(t, f.Items, 4)
	for _, item := range f.Items {
		if strings.HasSuffix(item.Link, "/200") {
			assert.Empty(t, item.Enclosures)
		} else {
			assert.Len(t, item.Enclosures, 1)
		}
	}
}

func TestFeedService_Build_RequestTimeout(t *testing.T) {
	prober := &fakeProber{delay: time.Second}
	svc := newTestFeedService(&fakeFetcher{profile: testProfile()}, prober, FeedOptions{
		RequestTimeout: 50 * time.Millisecond,
	})

	start := time.Now()
	_, err := svc.Build(context.Background(), FeedRequest{UserID: "11"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEnclosureProbe)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestFeedService_Build_ProbeConcurrency(t *testing.T) {
	prober := &fakeProber{delay: 20 * time.Millisecond}
	svc := newTestFeedService(&fakeFetcher{profile: testProfile()}, prober, FeedOptions{
		ProbeConcurrency: 2,
		StrictEnclosures: true,
	})

	_, err := svc.Build(context.Background(), FeedRequest{UserID: "11"})
	require.NoError(t, err)
	assert.LessOrEqual(t, prober.maxSeen.Load(), int32(2))
	assert.Len(t, prober.probed, 4)
}

func TestFeedService_Build_NewestBuildDate(t *testing.T) {
	svc := newTestFeedService(&fakeFetcher{profile: testProfile()}, &fakeProber{}, FeedOptions{NewestBuildDate: true})

	doc, err := svc.Build(context.Background(), FeedRequest{UserID: "11"})
	require.NoError(t, err)
	assert.Equal(t, "Sat, 02 Mar 2024 00:00:00 GMT", parseFeed(t, doc).Updated)
}
