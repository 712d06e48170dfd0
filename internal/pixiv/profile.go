package pixiv

import (
	"context"
	"net/url"
)

// FetchProfile retrieves the top-of-profile data for a user.
// lang is passed through as the lang query parameter when non-empty.
func (c *Client) FetchProfile(ctx context.Context, userID, lang string) (*Profile, error) {
	u := c.baseURL + "/ajax/user/" + url.PathEscape(userID) + "/profile/top"
	if lang != "" {
		u += "?" + url.Values{"lang": {lang}}.Encode()
	}

	body, err := c.getJSON(ctx, u)
	if err != nil {
		return nil, wrapError("fetchProfile", userID, err)
	}

	profile, err := decodeProfile(body)
	if err != nil {
		return nil, wrapError("fetchProfile", userID, err)
	}

	c.logger.Debug("pixiv profile fetched",
		"user_id", userID,
		"illusts", len(profile.Illusts),
		"manga", len(profile.Manga),
		"novels", len(profile.Novels),
	)

	return profile, nil
}
