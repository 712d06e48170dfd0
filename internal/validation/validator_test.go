package validation_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixivrss/pixivrss-server/internal/errors"
	"github.com/pixivrss/pixivrss-server/internal/validation"
)

type feedRequest struct {
	UserID string `json:"userId" validate:"required,number,max=20"`
	Lang   string `json:"lang,omitempty" validate:"omitempty,pixiv_lang"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	for _, req := range []feedRequest{
		{UserID: "11"},
		{UserID: "12345678", Lang: "ja"},
		{UserID: "1", Lang: "zh_tw"},
	} {
		assert.NoError(t, v.Validate(req), "%+v", req)
	}
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       feedRequest
		wantField string
		wantMsg   string
	}{
		{"missing user id", feedRequest{}, "userId", "is required"},
		{"non numeric user id", feedRequest{UserID: "abc"}, "userId", "must contain only digits"},
		{"negative user id", feedRequest{UserID: "-1"}, "userId", "must contain only digits"},
		{"user id too long", feedRequest{UserID: "123456789012345678901"}, "userId", "must not exceed 20 characters"},
		{"unsupported lang", feedRequest{UserID: "11", Lang: "fr"}, "lang", "must be one of: ja en ko zh zh_tw"},
		{"lang with wrong separator", feedRequest{UserID: "11", Lang: "zh-TW"}, "lang", "must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrValidation)

			var domainErr *errors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details[tt.wantField], tt.wantMsg)
			assert.Contains(t, domainErr.Message, tt.wantField)
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(feedRequest{})
	require.Error(t, err)

	// Should use JSON tag name "userId", not struct field name "UserID"
	assert.Contains(t, err.Error(), "userId")
	assert.NotContains(t, err.Error(), "UserID")
}
