package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentpilot/domain/model"
)

func TestDecodeError(t *testing.T) {
	body := []byte(`{"error":{"message":"Error validating access token","type":"OAuthException","code":190,"error_subcode":463}}`)
	apiErr, ok := DecodeError(body)
	require.True(t, ok)
	assert.Equal(t, 190, apiErr.Code)
	assert.Equal(t, 463, apiErr.Subcode)
	assert.Equal(t, "OAuthException", apiErr.Type)
}

func TestDecodeErrorNonEnvelope(t *testing.T) {
	_, ok := DecodeError([]byte(`{"id":"123"}`))
	assert.False(t, ok)

	_, ok = DecodeError([]byte(`<html>bad gateway</html>`))
	assert.False(t, ok)
}

func TestClassifyUsesTableWithFallback(t *testing.T) {
	table := map[int]model.ErrorCode{190: model.ErrCodeTokenExpired}

	perr := Classify(&APIError{Message: "expired", Code: 190}, table)
	assert.Equal(t, model.ErrCodeTokenExpired, perr.Code)

	perr = Classify(&APIError{Message: "weird", Code: 31337}, table)
	assert.Equal(t, model.ErrCodePublishFailed, perr.Code)
}
