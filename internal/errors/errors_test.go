package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorType
	}{
		{errors.New("400: API key not valid. Please pass a valid API key."), ErrorTypeInvalidCredential},
		{errors.New("reason: API_KEY_INVALID"), ErrorTypeInvalidCredential},
		{errors.New("429 Quota exceeded for metric"), ErrorTypeQuotaExceeded},
		{errors.New("RESOURCE_EXHAUSTED"), ErrorTypeQuotaExceeded},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{errors.New("connection refused"), ErrorTypeNetworkOrService},
		{NewConflictError("busy", nil), ErrorTypeConflict},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.err), tc.err.Error())
	}
	assert.Equal(t, ErrorType(""), Classify(nil))
}

func TestAppErrorWrapping(t *testing.T) {
	cause := errors.New("root cause")
	err := fmt.Errorf("outer: %w", NewNetworkOrServiceError("调用失败", cause))

	assert.True(t, IsNetworkOrServiceError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "NETWORK_OR_SERVICE_ERROR", Code(err))
	assert.Equal(t, "INTERNAL_ERROR", Code(cause))
	assert.Equal(t, "调用失败: root cause", NewNetworkOrServiceError("调用失败", cause).Error())
	assert.Equal(t, "only message", NewMissingCredentialError("only message").Error())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(NewValidationError("x", nil)))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(NewMissingCredentialError("x")))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(NewInvalidCredentialError("x", nil)))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NewNotFoundError("x", nil)))
	assert.Equal(t, http.StatusConflict, HTTPStatus(NewConflictError("x", nil)))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(NewQuotaExceededError("x", nil)))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(NewMalformedJSONError("x", "", nil)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestMalformedJSONErrorKeepsExcerpt(t *testing.T) {
	err := NewMalformedJSONError("bad", "{oops", nil)
	assert.Equal(t, "{oops", err.Excerpt)
	assert.True(t, IsMalformedJSONError(err))
	assert.True(t, IsCredentialError(NewInvalidCredentialError("x", nil)))
	assert.False(t, IsCredentialError(err))
}
