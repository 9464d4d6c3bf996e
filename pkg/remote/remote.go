// Package remote models what comes back from an Elasticsearch cluster: the
// decoded JSON body of a successful call and the structured error of a
// failed one.
package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrNotFound matches any *ServerError with status 404.
	ErrNotFound = errors.New("index or alias not found")
	// ErrAlreadyExists matches a resource_already_exists_exception.
	ErrAlreadyExists = errors.New("index already exists")
)

const alreadyExistsType = "resource_already_exists_exception"

// Response is a decoded JSON response body.
type Response map[string]any

// Acknowledged reports the "acknowledged" flag of index-level APIs.
func (r Response) Acknowledged() bool {
	ack, _ := r["acknowledged"].(bool)
	return ack
}

// ServerError is a non-2xx answer from the cluster.
type ServerError struct {
	Status int
	Type   string
	Reason string
	Index  string
	// Body is the raw response body, when there was one.
	Body []byte
}

func (e *ServerError) Error() string {
	switch {
	case e.Type != "" && e.Index != "":
		return fmt.Sprintf("elasticsearch: [%d] %s: %s (index %s)", e.Status, e.Type, e.Reason, e.Index)
	case e.Type != "":
		return fmt.Sprintf("elasticsearch: [%d] %s: %s", e.Status, e.Type, e.Reason)
	default:
		return fmt.Sprintf("elasticsearch: [%d] %s", e.Status, e.Reason)
	}
}

// Is lets errors.Is match ErrNotFound and ErrAlreadyExists.
func (e *ServerError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrAlreadyExists:
		return e.Type == alreadyExistsType
	default:
		return false
	}
}

// IsServerError reports whether err wraps a *ServerError.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

type errorEnvelope struct {
	Error  json.RawMessage `json:"error"`
	Status int             `json:"status"`
}

type errorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
	Index  string `json:"index"`
}

// Decode turns a status code and body into a Response or a *ServerError.
// An empty 2xx body decodes to an empty Response.
func Decode(status int, body io.Reader) (Response, error) {
	var raw []byte
	if body != nil {
		b, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		raw = b
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, NewServerError(status, raw)
	}

	resp := Response{}
	if len(raw) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode response body: %w", err)
	}
	return resp, nil
}

// NewServerError builds a *ServerError from a failed response. The body may
// carry a structured error object, a bare error string, or nothing at all.
func NewServerError(status int, raw []byte) *ServerError {
	se := &ServerError{Status: status, Body: raw}

	var env errorEnvelope
	if len(raw) > 0 && json.Unmarshal(raw, &env) == nil && len(env.Error) > 0 {
		var cause errorCause
		if json.Unmarshal(env.Error, &cause) == nil {
			se.Type = cause.Type
			se.Reason = cause.Reason
			se.Index = cause.Index
		} else {
			var msg string
			if json.Unmarshal(env.Error, &msg) == nil {
				se.Reason = msg
			}
		}
	}

	if se.Reason == "" {
		se.Reason = http.StatusText(status)
	}
	return se
}
