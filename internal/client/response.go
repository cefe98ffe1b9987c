package client

import (
	"encoding/json"
	"net/http"

	"github.com/jbweber/hyperkit/internal/errdefs"
	"github.com/jbweber/hyperkit/internal/restapi"
)

// ParseResponse decodes a response envelope and maps failures to errdefs
// errors. A 4xx/5xx status or an error-typed envelope yields an
// *errdefs.OperationError carrying the server's message verbatim.
func ParseResponse(status int, body []byte) (*restapi.Response, error) {
	resp := &restapi.Response{}
	decodeErr := json.Unmarshal(body, resp)

	if status >= http.StatusBadRequest || (decodeErr == nil && resp.Type == restapi.ResponseError) {
		code := status
		if decodeErr == nil && resp.ErrorCode != 0 {
			code = resp.ErrorCode
		}
		message := http.StatusText(code)
		if decodeErr == nil && resp.Error != "" {
			message = resp.Error
		}
		sentinel := errdefs.FromStatus(code)
		if sentinel == nil {
			sentinel = errdefs.ErrBadRequest
		}
		return nil, &errdefs.OperationError{
			StatusCode: code,
			Message:    message,
			Err:        sentinel,
		}
	}

	if decodeErr != nil {
		return nil, &errdefs.OperationError{
			StatusCode: status,
			Message:    "malformed response: " + decodeErr.Error(),
			Err:        errdefs.ErrServer,
		}
	}
	return resp, nil
}
