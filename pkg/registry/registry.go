// Package registry owns the actor -> live connection mapping. It is the only
// shared mutable structure in the delivery path; every access goes through
// its synchronized contract and no transport I/O ever happens under the lock.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/telemetry"
)

// ErrClosed is returned by a Transport whose connection has gone away.
var ErrClosed = errors.New("transport closed")

// ErrQueueFull is returned when a transport's bounded outbound queue is
// saturated; the caller treats the transport as dead.
var ErrQueueFull = errors.New("transport outbound queue full")

// Transport is the send/close-capable handle for one connected client.
// TrySend must not block: it either enqueues the frame for the writer or
// fails fast with ErrQueueFull/ErrClosed. Close must be safe to call more
// than once and from any goroutine.
type Transport interface {
	TrySend(frame any) error
	Close() error
}

// Conn pairs an actor with its live transport.
type Conn struct {
	Actor         string
	Transport     Transport
	EstablishedAt time.Time
}

// Registry maps each actor id to at most one live connection.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func New() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register installs t as the sole connection for actor. If a connection
// already existed it is atomically replaced and its transport returned so
// the caller can close it outside the critical section. Last connect wins.
func (r *Registry) Register(actor string, t Transport) Transport {
	r.mu.Lock()
	prev, had := r.conns[actor]
	r.conns[actor] = Conn{Actor: actor, Transport: t, EstablishedAt: time.Now()}
	r.mu.Unlock()
	if had {
		logger.Info("connection_superseded", "actor", actor)
		return prev.Transport
	}
	telemetry.ConnectionsActive.Inc()
	logger.Info("connection_registered", "actor", actor)
	return nil
}

// Unregister removes the mapping for actor only if the currently registered
// transport is the same handle. A superseded handler unregistering during
// its own shutdown therefore cannot evict a newer connection.
func (r *Registry) Unregister(actor string, t Transport) {
	r.mu.Lock()
	cur, ok := r.conns[actor]
	if ok && cur.Transport == t {
		delete(r.conns, actor)
	} else {
		ok = false
	}
	r.mu.Unlock()
	if ok {
		telemetry.ConnectionsActive.Dec()
		logger.Info("connection_unregistered", "actor", actor)
	}
}

// Lookup returns the current transport for actor, if any.
func (r *Registry) Lookup(actor string) (Transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[actor]
	if !ok {
		return nil, false
	}
	return c.Transport, true
}

// Snapshot returns the current online set as a sorted copy. The live map is
// never exposed.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.conns))
	for actor := range r.conns {
		out = append(out, actor)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Connections returns a copy of the current (actor, transport) pairs for
// broadcast iteration.
func (r *Registry) Connections() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
