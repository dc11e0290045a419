package gitlab

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	apiErrorTemplateConstant            = "gitlab api: status %d: %s"
	fieldErrorSegmentTemplateConstant   = "%s %s"
	fieldErrorSegmentSeparatorConstant  = "; "
	fieldErrorValueSeparatorConstant    = ", "
	unreadableErrorBodyMessageConstant  = "unreadable error body"
	baseURLNotConfiguredMessageConstant = "base url not configured"
	tokenNotConfiguredMessageConstant   = "access token not configured"
)

// Sentinel errors for client construction.
var (
	ErrBaseURLNotConfigured = errors.New(baseURLNotConfiguredMessageConstant)
	ErrTokenNotConfigured   = errors.New(tokenNotConfiguredMessageConstant)
)

// APIError reports a non-success response from a GitLab endpoint. FieldErrors
// holds per-attribute validation messages when the endpoint returned them.
type APIError struct {
	StatusCode  int
	Message     string
	FieldErrors map[string][]string
}

// Error summarizes the failed call including any field level messages.
func (apiFailure *APIError) Error() string {
	messageText := apiFailure.Message
	if len(apiFailure.FieldErrors) > 0 {
		fieldSegments := make([]string, 0, len(apiFailure.FieldErrors))
		for fieldName, fieldMessages := range apiFailure.FieldErrors {
			fieldSegments = append(fieldSegments, fmt.Sprintf(fieldErrorSegmentTemplateConstant, fieldName, strings.Join(fieldMessages, fieldErrorValueSeparatorConstant)))
		}
		messageText = strings.Join(fieldSegments, fieldErrorSegmentSeparatorConstant)
	}
	return fmt.Sprintf(apiErrorTemplateConstant, apiFailure.StatusCode, messageText)
}

// IsNotFound reports whether the failure was a 404 response.
func (apiFailure *APIError) IsNotFound() bool {
	return apiFailure.StatusCode == http.StatusNotFound
}

// IsConflict reports whether the failure was a 409 response. Conflict
// responses carry instance-localized bodies, so callers use the status code
// rather than the message to detect an existing resource.
func (apiFailure *APIError) IsConflict() bool {
	return apiFailure.StatusCode == http.StatusConflict
}

// CombinedMessage flattens the top level message and field messages into one
// string suitable for conflict classification.
func (apiFailure *APIError) CombinedMessage() string {
	messageParts := []string{apiFailure.Message}
	for fieldName, fieldMessages := range apiFailure.FieldErrors {
		messageParts = append(messageParts, fmt.Sprintf(fieldErrorSegmentTemplateConstant, fieldName, strings.Join(fieldMessages, fieldErrorValueSeparatorConstant)))
	}
	return strings.Join(messageParts, fieldErrorSegmentSeparatorConstant)
}

// AsAPIError extracts an APIError from an error chain.
func AsAPIError(candidateError error) (*APIError, bool) {
	apiFailure := &APIError{}
	if errors.As(candidateError, &apiFailure) {
		return apiFailure, true
	}
	return nil, false
}

// IsNotFoundError reports whether the error chain contains a 404 APIError.
func IsNotFoundError(candidateError error) bool {
	apiFailure, isAPIError := AsAPIError(candidateError)
	return isAPIError && apiFailure.IsNotFound()
}

type wireErrorEnvelope struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
}

// parseAPIError converts a non-success response body into an APIError. GitLab
// error envelopes carry either a plain message string or a map of attribute
// names to message lists.
func parseAPIError(statusCode int, responseBody []byte) *APIError {
	apiFailure := &APIError{StatusCode: statusCode}

	envelope := wireErrorEnvelope{}
	if unmarshalError := json.Unmarshal(responseBody, &envelope); unmarshalError != nil {
		apiFailure.Message = strings.TrimSpace(string(responseBody))
		if len(apiFailure.Message) == 0 {
			apiFailure.Message = unreadableErrorBodyMessageConstant
		}
		return apiFailure
	}

	if len(envelope.Error) > 0 {
		apiFailure.Message = envelope.Error
	}

	if len(envelope.Message) > 0 {
		plainMessage := ""
		if json.Unmarshal(envelope.Message, &plainMessage) == nil {
			apiFailure.Message = plainMessage
			return apiFailure
		}

		fieldErrors := map[string][]string{}
		if json.Unmarshal(envelope.Message, &fieldErrors) == nil {
			apiFailure.FieldErrors = fieldErrors
			return apiFailure
		}

		listMessage := []string{}
		if json.Unmarshal(envelope.Message, &listMessage) == nil {
			apiFailure.Message = strings.Join(listMessage, fieldErrorSegmentSeparatorConstant)
			return apiFailure
		}

		apiFailure.Message = strings.TrimSpace(string(envelope.Message))
	}

	if len(apiFailure.Message) == 0 {
		apiFailure.Message = http.StatusText(statusCode)
	}

	return apiFailure
}
