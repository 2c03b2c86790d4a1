package domain

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// Outcome is the result for one key of a multi-key operation.
type Outcome struct {
	Status  ArtifactStatus `json:"status,omitempty"`
	Skipped bool           `json:"skipped,omitempty"` // already terminal-success, nothing sent
	Err     error          `json:"-"`
	Error   string         `json:"error,omitempty"`
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// Results guarda un Outcome por clave; es seguro para escritura concurrente.
type Results[K ~string] struct {
	mu    sync.Mutex
	items map[K]Outcome
}

func NewResults[K ~string]() *Results[K] {
	return &Results[K]{items: make(map[K]Outcome)}
}

func (r *Results[K]) Set(key K, o Outcome) {
	if o.Err != nil {
		o.Error = o.Err.Error()
	}
	r.mu.Lock()
	r.items[key] = o
	r.mu.Unlock()
}

func (r *Results[K]) Succeed(key K, status ArtifactStatus) {
	r.Set(key, Outcome{Status: status})
}

func (r *Results[K]) Fail(key K, err error) {
	r.Set(key, Outcome{Status: ArtifactFailed, Err: err})
}

func (r *Results[K]) Get(key K) (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.items[key]
	return o, ok
}

// Map returns a copy keyed by K.
func (r *Results[K]) Map() map[K]Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[K]Outcome, len(r.items))
	for k, v := range r.items {
		out[k] = v
	}
	return out
}

// OK is true when every key succeeded or was already terminal-success.
func (r *Results[K]) OK() bool {
	return r.Err() == nil
}

// Err joins failing keys in key order as "key: message; key2: message", or returns nil.
func (r *Results[K]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]K, 0, len(r.items))
	for k, o := range r.items {
		if o.Err != nil {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, string(k)+": "+r.items[k].Err.Error())
	}
	return errors.New(strings.Join(parts, "; "))
}

// Failed returns the failing keys in key order.
func (r *Results[K]) Failed() []K {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []K
	for k, o := range r.items {
		if o.Err != nil {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
