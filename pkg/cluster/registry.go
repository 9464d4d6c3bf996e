package cluster

import (
	"slices"
	"sync"
)

// Registry holds clusters by id.
type Registry struct {
	mu       sync.RWMutex
	clusters map[string]*Cluster
}

// NewRegistry creates a registry pre-populated with clusters.
func NewRegistry(clusters ...*Cluster) *Registry {
	r := &Registry{clusters: make(map[string]*Cluster, len(clusters))}
	for _, c := range clusters {
		r.Register(c)
	}
	return r
}

// Register adds c, replacing any cluster with the same id.
func (r *Registry) Register(c *Cluster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clusters[c.ID()] = c
}

// Get looks up a cluster by id. The id is normalised first.
func (r *Registry) Get(id string) (*Cluster, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clusters[NormalizeID(id)]
	return c, ok
}

// Cluster returns the cluster for id, creating an unconfigured one on
// first use. An empty id selects the default cluster.
func (r *Registry) Cluster(id string) *Cluster {
	id = NormalizeID(id)
	if id == "" {
		id = DefaultID
	}

	if c, ok := r.Get(id); ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clusters[id]; ok {
		return c
	}
	c := New(id)
	r.clusters[id] = c
	return c
}

// Default returns the cluster with id "default".
func (r *Registry) Default() *Cluster {
	return r.Cluster(DefaultID)
}

// IDs returns the registered ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.clusters))
	for id := range r.clusters {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
