package graph

import (
	"encoding/json"
	"fmt"

	"contentpilot/domain/model"
)

// APIError is the error envelope returned by Graph-style platform APIs.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Subcode int    `json:"error_subcode"`
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// DecodeError extracts the platform error from a response body, if present.
func DecodeError(body []byte) (*APIError, bool) {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return nil, false
	}
	return env.Error, true
}

// Classify maps a platform error code onto the failure taxonomy using the
// adapter's static table. Unmapped codes default to publish_failed.
func Classify(apiErr *APIError, table map[int]model.ErrorCode) *model.PublishError {
	code, ok := table[apiErr.Code]
	if !ok {
		code = model.ErrCodePublishFailed
	}
	msg := fmt.Sprintf("platform error %d", apiErr.Code)
	if apiErr.Message != "" {
		msg = apiErr.Message
	}
	return model.NewPublishError(code, msg, nil)
}
