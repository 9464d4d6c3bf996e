package lifecycle

import (
	"errors"

	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/remote"
)

// Response is the decoded JSON body of a successful call.
type Response = remote.Response

// ServerError is any non-2xx answer from the cluster.
type ServerError = remote.ServerError

var (
	// ErrNotFound matches a *ServerError with status 404.
	ErrNotFound = remote.ErrNotFound
	// ErrAlreadyExists matches a *ServerError for an index that exists.
	ErrAlreadyExists = remote.ErrAlreadyExists

	// ErrInvalidTarget is returned without contacting the cluster when an
	// operation cannot name its target: an alias swap without a suffix, or
	// a definition without a name.
	ErrInvalidTarget = errors.New("invalid index target")
	// ErrNoMapping is returned by UpdateMapping when the definition has no
	// mapping document.
	ErrNoMapping = errors.New("index definition has no mappings")
)

// quiet converts a strict result into the Try form: server errors become
// ok == false with a nil error, everything else passes through.
func quiet(resp Response, err error) (Response, bool, error) {
	if err == nil {
		return resp, true, nil
	}
	if remote.IsServerError(err) {
		return nil, false, nil
	}
	return nil, false, err
}
