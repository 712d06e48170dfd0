package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/text/language"

	"github.com/pixivrss/pixivrss-server/internal/service"
)

const feedContentType = "text/xml; charset=utf-8"

func (s *Server) registerFeedRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getUserFeed",
		Method:      http.MethodGet,
		Path:        "/users/{userId}",
		Summary:     "Get user feed",
		Description: "Returns the user's illustrations, manga and novels as an RSS 2.0 feed, oldest update first.",
		Tags:        []string{"Feeds"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusBadGateway},
	}, s.handleGetUserFeed)
}

// GetUserFeedInput contains the feed request.
type GetUserFeedInput struct {
	UserID         string `path:"userId" doc:"pixiv user ID" example:"11"`
	Lang           string `query:"lang" doc:"pixiv locale for titles and metadata: ja, en, ko, zh, zh_tw"`
	AcceptLanguage string `header:"Accept-Language" doc:"Used to pick a locale when lang is absent"`
}

// GetUserFeedOutput is the rendered RSS document.
type GetUserFeedOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func (s *Server) handleGetUserFeed(ctx context.Context, input *GetUserFeedInput) (*GetUserFeedOutput, error) {
	lang := input.Lang
	if lang == "" {
		lang = negotiateLang(input.AcceptLanguage)
	}

	doc, err := s.feeds.Build(ctx, service.FeedRequest{
		UserID: input.UserID,
		Lang:   lang,
	})
	if err != nil {
		return nil, toAPIError(err)
	}

	return &GetUserFeedOutput{
		ContentType: feedContentType,
		Body:        doc,
	}, nil
}

// pixivLangs pairs with langMatcher's supported tags by index.
var (
	pixivLangs  = []string{"ja", "en", "ko", "zh", "zh_tw"}
	langMatcher = language.NewMatcher([]language.Tag{
		language.Japanese,
		language.English,
		language.Korean,
		language.SimplifiedChinese,
		language.TraditionalChinese,
	})
)

// negotiateLang maps an Accept-Language header to a pixiv locale.
// No header, or no acceptable match, yields "".
func negotiateLang(header string) string {
	if header == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	_, idx, confidence := langMatcher.Match(tags...)
	if confidence == language.No {
		return ""
	}
	return pixivLangs[idx]
}
