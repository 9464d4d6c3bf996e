// Package lifecycletest provides an in-memory stand-in for the index and
// alias APIs of an Elasticsearch cluster, for tests of code built on the
// lifecycle package.
package lifecycletest

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	es "github.com/elastic/go-elasticsearch/v8"
)

// Request is one recorded call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
}

// Index is the stored state of one physical index.
type Index struct {
	Settings map[string]any
	Mappings map[string]any
	Aliases  map[string]struct{}
}

type injectedFailure struct {
	status int
	body   map[string]any
}

// Cluster implements http.RoundTripper over in-memory indices. Deleting by
// alias is refused with 400, as a real cluster does.
type Cluster struct {
	mu       sync.Mutex
	indices  map[string]*Index
	requests []Request
	failures []injectedFailure
	// HealthStatus is reported by the cluster-health API. Defaults to green.
	HealthStatus string
	// HealthTimedOut makes the cluster-health API answer 408, as a cluster
	// that never reaches the awaited status does.
	HealthTimedOut bool
}

// NewCluster returns an empty cluster.
func NewCluster() *Cluster {
	return &Cluster{
		indices:      map[string]*Index{},
		HealthStatus: "green",
	}
}

// Client returns a go-elasticsearch client whose transport is c.
func (c *Cluster) Client() *es.Client {
	client, err := es.NewClient(es.Config{
		Addresses: []string{"http://fake-elasticsearch:9200"},
		Transport: c,
	})
	if err != nil {
		panic(fmt.Sprintf("lifecycletest: build client: %v", err))
	}
	return client
}

// AddIndex seeds a physical index holding aliases.
func (c *Cluster) AddIndex(name string, aliases ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := newIndex()
	for _, a := range aliases {
		idx.Aliases[a] = struct{}{}
	}
	c.indices[name] = idx
}

// FailNext makes the next request answer with status and an error of
// errType, whatever it asks for.
func (c *Cluster) FailNext(status int, errType, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, injectedFailure{
		status: status,
		body:   errorBody(status, errType, reason, ""),
	})
}

// Requests returns the calls received so far.
func (c *Cluster) Requests() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.requests)
}

// ResetRequests forgets the recorded calls.
func (c *Cluster) ResetRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = nil
}

// IndexNames returns the physical index names, sorted.
func (c *Cluster) IndexNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.indices))
}

// Index returns the stored state of a physical index.
func (c *Cluster) Index(name string) (*Index, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.indices[name]
	return idx, ok
}

// AliasHolders returns the indices holding alias, sorted.
func (c *Cluster) AliasHolders(alias string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holders(alias)
}

func newIndex() *Index {
	return &Index{
		Settings: map[string]any{},
		Mappings: map[string]any{},
		Aliases:  map[string]struct{}{},
	}
}

func (c *Cluster) holders(alias string) []string {
	var out []string
	for name, idx := range c.indices {
		if _, ok := idx.Aliases[alias]; ok {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// resolve maps a name to physical indices: the index itself, or the
// holders of the alias of that name.
func (c *Cluster) resolve(name string) []string {
	if _, ok := c.indices[name]; ok {
		return []string{name}
	}
	return c.holders(name)
}

// RoundTrip serves one request.
func (c *Cluster) RoundTrip(req *http.Request) (*http.Response, error) {
	var body map[string]any
	if req.Body != nil {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		_ = req.Body.Close()
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				return respond(req, http.StatusBadRequest,
					errorBody(http.StatusBadRequest, "parse_exception", err.Error(), "")), nil
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, Request{
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.Query(),
		Body:   body,
	})

	if len(c.failures) > 0 {
		f := c.failures[0]
		c.failures = c.failures[1:]
		return respond(req, f.status, f.body), nil
	}

	status, payload := c.route(req.Method, strings.Split(strings.Trim(req.URL.Path, "/"), "/"), body)
	return respond(req, status, payload), nil
}

func (c *Cluster) route(method string, parts []string, body map[string]any) (int, map[string]any) {
	switch {
	case len(parts) == 1 && parts[0] == "" && method == http.MethodHead:
		return http.StatusOK, nil
	case len(parts) == 2 && parts[0] == "_cluster" && parts[1] == "health" && method == http.MethodGet:
		if c.HealthTimedOut {
			return http.StatusRequestTimeout, map[string]any{"cluster_name": "lifecycletest", "status": "red", "timed_out": true}
		}
		return http.StatusOK, map[string]any{"cluster_name": "lifecycletest", "status": c.HealthStatus, "timed_out": false}
	case len(parts) == 1 && parts[0] == "_aliases" && method == http.MethodPost:
		return c.updateAliases(body)
	case len(parts) == 2 && parts[0] == "_alias" && method == http.MethodGet:
		return c.getAlias(parts[1])
	case len(parts) == 3 && parts[1] == "_alias" && method == http.MethodGet:
		return c.getAliasesOf(parts[0])
	case len(parts) == 2 && parts[1] == "_mapping" && method == http.MethodPut:
		return c.putMapping(parts[0], body)
	case len(parts) == 1 && parts[0] != "":
		switch method {
		case http.MethodHead:
			if len(c.resolve(parts[0])) > 0 {
				return http.StatusOK, nil
			}
			return http.StatusNotFound, nil
		case http.MethodPut:
			return c.createIndex(parts[0], body)
		case http.MethodDelete:
			return c.deleteIndex(parts[0])
		}
	}
	return http.StatusMethodNotAllowed, errorBody(http.StatusMethodNotAllowed,
		"unsupported_operation_exception", method+" /"+strings.Join(parts, "/"), "")
}

func (c *Cluster) createIndex(name string, body map[string]any) (int, map[string]any) {
	if len(c.resolve(name)) > 0 {
		return http.StatusBadRequest, errorBody(http.StatusBadRequest,
			"resource_already_exists_exception", fmt.Sprintf("index [%s] already exists", name), name)
	}

	idx := newIndex()
	if s, ok := body["settings"].(map[string]any); ok {
		idx.Settings = s
	}
	if m, ok := body["mappings"].(map[string]any); ok {
		idx.Mappings = m
	}
	if a, ok := body["aliases"].(map[string]any); ok {
		for alias := range a {
			idx.Aliases[alias] = struct{}{}
		}
	}
	c.indices[name] = idx

	return http.StatusOK, map[string]any{"acknowledged": true, "shards_acknowledged": true, "index": name}
}

func (c *Cluster) deleteIndex(name string) (int, map[string]any) {
	if _, ok := c.indices[name]; !ok {
		if len(c.holders(name)) > 0 {
			return http.StatusBadRequest, errorBody(http.StatusBadRequest, "illegal_argument_exception",
				fmt.Sprintf("The provided expression [%s] matches an alias, "+
					"specify the corresponding concrete indices instead.", name), "")
		}
		return indexNotFound(name)
	}
	delete(c.indices, name)
	return http.StatusOK, map[string]any{"acknowledged": true}
}

func (c *Cluster) getAlias(alias string) (int, map[string]any) {
	holders := c.holders(alias)
	if len(holders) == 0 {
		return http.StatusNotFound, map[string]any{
			"error":  fmt.Sprintf("alias [%s] missing", alias),
			"status": http.StatusNotFound,
		}
	}

	out := map[string]any{}
	for _, h := range holders {
		out[h] = map[string]any{"aliases": map[string]any{alias: map[string]any{}}}
	}
	return http.StatusOK, out
}

func (c *Cluster) getAliasesOf(name string) (int, map[string]any) {
	targets := c.resolve(name)
	if len(targets) == 0 {
		return indexNotFound(name)
	}

	out := map[string]any{}
	for _, t := range targets {
		aliases := map[string]any{}
		for a := range c.indices[t].Aliases {
			aliases[a] = map[string]any{}
		}
		out[t] = map[string]any{"aliases": aliases}
	}
	return http.StatusOK, out
}

func (c *Cluster) updateAliases(body map[string]any) (int, map[string]any) {
	actions, _ := body["actions"].([]any)

	type op struct {
		add          bool
		index, alias string
	}
	ops := make([]op, 0, len(actions))
	for _, raw := range actions {
		action, _ := raw.(map[string]any)
		for kind, act := range action {
			fields, _ := act.(map[string]any)
			indexName, _ := fields["index"].(string)
			alias, _ := fields["alias"].(string)
			if _, ok := c.indices[indexName]; !ok {
				return indexNotFound(indexName)
			}
			ops = append(ops, op{add: kind == "add", index: indexName, alias: alias})
		}
	}

	for _, o := range ops {
		if o.add {
			c.indices[o.index].Aliases[o.alias] = struct{}{}
		} else {
			delete(c.indices[o.index].Aliases, o.alias)
		}
	}
	return http.StatusOK, map[string]any{"acknowledged": true}
}

func (c *Cluster) putMapping(name string, body map[string]any) (int, map[string]any) {
	targets := c.resolve(name)
	if len(targets) == 0 {
		return indexNotFound(name)
	}

	for _, t := range targets {
		idx := c.indices[t]
		props, _ := idx.Mappings["properties"].(map[string]any)
		if props == nil {
			props = map[string]any{}
		}
		if newProps, ok := body["properties"].(map[string]any); ok {
			for field, def := range newProps {
				props[field] = def
			}
		}
		for k, v := range body {
			if k != "properties" {
				idx.Mappings[k] = v
			}
		}
		idx.Mappings["properties"] = props
	}
	return http.StatusOK, map[string]any{"acknowledged": true}
}

func indexNotFound(name string) (int, map[string]any) {
	return http.StatusNotFound, errorBody(http.StatusNotFound,
		"index_not_found_exception", fmt.Sprintf("no such index [%s]", name), name)
}

func errorBody(status int, errType, reason, index string) map[string]any {
	cause := map[string]any{"type": errType, "reason": reason}
	if index != "" {
		cause["index"] = index
	}
	return map[string]any{"error": cause, "status": status}
}

func respond(req *http.Request, status int, payload map[string]any) *http.Response {
	header := http.Header{}
	header.Set("X-Elastic-Product", "Elasticsearch")
	header.Set("Content-Type", "application/json")

	var raw []byte
	if payload != nil && req.Method != http.MethodHead {
		raw, _ = json.Marshal(payload)
	}

	return &http.Response{
		StatusCode:    status,
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(string(raw))),
		ContentLength: int64(len(raw)),
		Request:       req,
	}
}
