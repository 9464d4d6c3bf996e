// Package lifecycle runs index lifecycle operations for one index
// definition: existence checks, creation of suffixed physical indices,
// deletion, alias swaps, alias and index listing, mapping updates and full
// resets.
//
// Every mutating operation has a strict form that returns all errors and a
// Try form that reports remote failures as ok == false instead.
package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/index"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/remote"
)

// Backend is safe for concurrent use. It holds no remote state; each call
// reads what it needs from the cluster.
type Backend struct {
	def       *index.Definition
	log       logger.Logger
	observers []Observer
	now       func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logger.Logger) Option {
	return func(b *Backend) {
		if log != nil {
			b.log = log
		}
	}
}

// WithObserver adds an observer of mutating operations.
func WithObserver(o Observer) Option {
	return func(b *Backend) {
		if o != nil {
			b.observers = append(b.observers, o)
		}
	}
}

// WithClock replaces time.Now for timestamp suffixes.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a backend for def.
func New(def *index.Definition, opts ...Option) *Backend {
	b := &Backend{
		def: def,
		log: logger.NewNop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if def != nil {
		b.log = b.log.With(
			logger.String("cluster", def.Cluster().ID()),
			logger.String("index", def.Name()),
		)
	}
	return b
}

// Definition returns the index definition.
func (b *Backend) Definition() *index.Definition {
	return b.def
}

func (b *Backend) validate() error {
	if err := b.def.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	return nil
}

// target resolves suffix to the physical index name used in request paths.
func (b *Backend) target(suffix string) (string, error) {
	name, err := b.def.PhysicalName(suffix)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	return name, nil
}

func (b *Backend) client() (*es.Client, error) {
	return b.def.Cluster().Client()
}

// perform sends one request and returns the raw HTTP response. The caller
// closes the body.
func (b *Backend) perform(
	ctx context.Context, method, path string, query url.Values, body any,
) (*http.Response, error) {
	client, err := b.client()
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		buf, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, marshalErr)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	b.log.Debug("Elasticsearch request",
		logger.String("method", method),
		logger.String("path", path),
		logger.String("query", req.URL.RawQuery),
	)

	res, err := client.Perform(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return res, nil
}

// call is perform followed by decoding.
func (b *Backend) call(
	ctx context.Context, method, path string, query url.Values, body any,
) (Response, error) {
	res, err := b.perform(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	return remote.Decode(res.StatusCode, res.Body)
}

// observe notifies observers once an operation has finished.
func (b *Backend) observe(ctx context.Context, op Operation, target, suffix string, started time.Time, err error) {
	if len(b.observers) == 0 {
		return
	}

	e := Event{
		ID:        uuid.New(),
		Operation: op,
		Cluster:   b.def.Cluster().ID(),
		Index:     b.def.IndexName(),
		Target:    target,
		Suffix:    suffix,
		Err:       err,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	for _, o := range b.observers {
		o.Observe(ctx, e)
	}
}

func (b *Backend) timestamp() string {
	return index.Timestamp(b.now())
}
