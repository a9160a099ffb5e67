package b2c2

import (
	"encoding/json"
	"fmt"

	"github.com/gaborage/b2c2-cli/httpclient"
)

// NonFieldErrors is the field name the API uses for errors not tied to a request field.
const NonFieldErrors = "non_field_errors"

// APIError is one entry of the API's error payload.
type APIError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// String renders the error as "field: message", or just the message for
// non-field errors.
func (e APIError) String() string {
	if e.Field == "" || e.Field == NonFieldErrors {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type apiErrorPayload struct {
	Errors []APIError `json:"errors"`
}

// ParseAPIErrors decodes an error body of the form {"errors":[{"field","message","code"}]}.
// A JSON object without an errors member yields an empty list.
func ParseAPIErrors(body []byte) ([]APIError, error) {
	var payload apiErrorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse API errors: %w", err)
	}
	return payload.Errors, nil
}

// APIErrors extracts the API error list from an HTTP failure anywhere in err's chain.
// ok is false when err carries no HTTP failure or its body is not a JSON error payload.
func APIErrors(err error) (status int, apiErrs []APIError, ok bool) {
	status, body, isHTTP := httpclient.HTTPStatus(err)
	if !isHTTP {
		return 0, nil, false
	}
	apiErrs, parseErr := ParseAPIErrors(body)
	if parseErr != nil {
		return status, nil, false
	}
	return status, apiErrs, true
}
