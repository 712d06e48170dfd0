// Package pixiv provides a client for the pixiv ajax API and its embed preview host.
package pixiv

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Illust types as reported in the illustType field.
const (
	IllustTypeIllust = 0
	IllustTypeManga  = 1
	IllustTypeUgoira = 2
)

// Profile is the body of /ajax/user/{id}/profile/top.
// Each collection keeps the key order of the upstream JSON object.
type Profile struct {
	Illusts Works
	Manga   Works
	Novels  Works
	Meta    Meta
}

// Len returns the total number of works across all collections.
func (p *Profile) Len() int {
	return len(p.Illusts) + len(p.Manga) + len(p.Novels)
}

// Meta is the page metadata pixiv attaches for the profile page.
type Meta struct {
	AlternateLanguages map[string]string `json:"alternateLanguages"`
	Canonical          string            `json:"canonical"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	OGP                OGP               `json:"ogp"`
}

// OGP holds Open Graph values for the profile page.
type OGP struct {
	Description string `json:"description"`
	Image       string `json:"image"`
	Title       string `json:"title"`
	Type        string `json:"type"`
}

// RawWork is a work as pixiv serializes it. Illustrations and manga carry
// IllustType and dimensions; novels carry IsOriginal and ReadingTime.
type RawWork struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Alt             string   `json:"alt"`
	CreateDate      string   `json:"createDate"`
	UpdateDate      string   `json:"updateDate"`
	Tags            []string `json:"tags"`
	UserID          string   `json:"userId"`
	UserName        string   `json:"userName"`
	Restrict        int      `json:"restrict"`
	XRestrict       int      `json:"xRestrict"`
	PageCount       int      `json:"pageCount"`
	URL             string   `json:"url"`
	ProfileImageURL string   `json:"profileImageUrl"`

	IllustType *int `json:"illustType"`
	Width      int  `json:"width"`
	Height     int  `json:"height"`

	IsOriginal  bool `json:"isOriginal"`
	ReadingTime int  `json:"readingTime"`
}

// Works is an ordered work collection. pixiv sends an object keyed by work
// ID, or an empty array when the collection is empty; both decode here.
type Works []RawWork

// UnmarshalJSON decodes an ID-keyed object in key order, or an array.
func (w *Works) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch tok {
	case nil:
		*w = nil
		return nil

	case json.Delim('['):
		var list []*RawWork
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		works := make(Works, 0, len(list))
		for _, rw := range list {
			if rw != nil {
				works = append(works, *rw)
			}
		}
		*w = works
		return nil

	case json.Delim('{'):
		works := Works{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := keyTok.(string)

			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return err
			}
			// Masked or deleted works come through as null.
			if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
				continue
			}

			var rw RawWork
			if err := json.Unmarshal(raw, &rw); err != nil {
				return fmt.Errorf("work %s: %w", key, err)
			}
			if rw.ID == "" {
				rw.ID = key
			}
			works = append(works, rw)
		}
		*w = works
		return nil

	default:
		return fmt.Errorf("unexpected token %v for work collection", tok)
	}
}

// envelope is the wrapper around every ajax response.
type envelope struct {
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Body    json.RawMessage `json:"body"`
}

// rawProfileBody is the body of the profile/top response.
type rawProfileBody struct {
	Illusts   Works `json:"illusts"`
	Manga     Works `json:"manga"`
	Novels    Works `json:"novels"`
	ExtraData struct {
		Meta Meta `json:"meta"`
	} `json:"extraData"`
}

// decodeProfile unwraps the envelope and decodes the profile body.
func decodeProfile(data []byte) (*Profile, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if env.Error {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamMessage, env.Message)
	}

	var body rawProfileBody
	if err := json.Unmarshal(env.Body, &body); err != nil {
		return nil, fmt.Errorf("parse profile body: %w", err)
	}

	return &Profile{
		Illusts: body.Illusts,
		Manga:   body.Manga,
		Novels:  body.Novels,
		Meta:    body.ExtraData.Meta,
	}, nil
}
