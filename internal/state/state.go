// Package state holds the single process-wide State value threaded into
// every worker (connections, the manager, I2P dialers and listener), per
// the specification's redesign note: no worker reaches back into
// package-level globals or into another worker directly.
package state

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-bmd/bmd/internal/addrmgr"
	"github.com/go-bmd/bmd/internal/config"
	"github.com/go-bmd/bmd/internal/objectstore"
)

// Status is a connection's lifecycle stage.
type Status int

// Connection lifecycle states.
const (
	StatusConnecting Status = iota
	StatusConnected
	StatusFullyEstablished
	StatusDisconnecting
	StatusDisconnected
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusFullyEstablished:
		return "fully_established"
	case StatusDisconnecting:
		return "disconnecting"
	case StatusDisconnected:
		return "disconnected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConnHandle is the small capability interface the manager uses to inspect
// and reap connection workers without depending on the peer package's
// concrete type (the "dynamic dispatch on transport" redesign note).
type ConnHandle interface {
	Alive() bool
	Group() string
	Status() Status
	Stop()
}

// Registry is a concurrency-safe set of live connection handles.
type Registry struct {
	mu    sync.Mutex
	items map[ConnHandle]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[ConnHandle]struct{})}
}

// Add inserts a handle into the registry.
func (r *Registry) Add(c ConnHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c] = struct{}{}
}

// Remove deletes a handle from the registry.
func (r *Registry) Remove(c ConnHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, c)
}

// Snapshot returns a copy of every handle currently registered.
func (r *Registry) Snapshot() []ConnHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ConnHandle, 0, len(r.items))
	for c := range r.items {
		out = append(out, c)
	}
	return out
}

// Len reports the number of handles currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// BanList is an in-memory, unpersisted table of network groups excluded
// from reconnection until their ban expires.
type BanList struct {
	mu   sync.Mutex
	bans map[string]time.Time
}

// NewBanList creates an empty BanList.
func NewBanList() *BanList {
	return &BanList{bans: make(map[string]time.Time)}
}

// Ban excludes group from reconnection for the given duration.
func (b *BanList) Ban(group string, d time.Duration) {
	if d <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	until := time.Now().Add(d)
	if existing, ok := b.bans[group]; !ok || until.After(existing) {
		b.bans[group] = until
	}
}

// IsBanned reports whether group is currently excluded from reconnection.
func (b *BanList) IsBanned(group string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	until, ok := b.bans[group]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(b.bans, group)
		return false
	}
	return true
}

// Hosts is the set of network groups currently represented among live
// connections and dialers. It is owned exclusively by the manager and
// replaced -- never mutated in place -- at the end of each management
// tick, so readers never observe a half-built set.
type Hosts struct {
	v atomic.Value // map[string]struct{}
}

// NewHosts creates an empty Hosts set.
func NewHosts() *Hosts {
	h := &Hosts{}
	h.Store(map[string]struct{}{})
	return h
}

// Store replaces the set wholesale.
func (h *Hosts) Store(m map[string]struct{}) {
	h.v.Store(m)
}

// Contains reports whether group is currently represented.
func (h *Hosts) Contains(group string) bool {
	m, _ := h.v.Load().(map[string]struct{})
	_, ok := m[group]
	return ok
}

// DNSSeeder is the external bootstrap capability the specification
// describes: given a context, return (host, port) candidates discovered
// via DNS. The core only depends on this interface; internal/dnsseed
// supplies a concrete default.
type DNSSeeder interface {
	Seed(ctx context.Context) ([]addrmgr.PeerAddress, error)
}

// State is the single shared value every worker is constructed with.
type State struct {
	Config config.Config

	Objects *objectstore.Store

	NodePool             *addrmgr.Pool
	UncheckedNodePool    *addrmgr.Pool
	I2PNodePool          *addrmgr.Pool
	I2PUncheckedNodePool *addrmgr.Pool

	CoreNodes    []addrmgr.PeerAddress
	I2PCoreNodes []addrmgr.PeerAddress

	// Connections holds every live peer worker, IP and I2P alike; a
	// peer's Group() distinguishes its network for diversity purposes.
	Connections *Registry

	Hosts *Hosts
	Bans  *BanList

	// ShuttingDown is the single process-wide shutdown flag. The manager
	// sets it when its context ends; each peer's write loop and the I2P
	// listener's accept loop check it at the head of every iteration.
	ShuttingDown int32
}

// New creates a State with empty pools and store, ready to be populated by
// loading persisted data and seed CSVs.
func New(cfg config.Config) *State {
	return &State{
		Config:               cfg,
		Objects:              objectstore.New(),
		NodePool:             addrmgr.NewPool(addrmgr.NodePoolCap),
		UncheckedNodePool:    addrmgr.NewPool(addrmgr.UncheckedNodePoolCap),
		I2PNodePool:          addrmgr.NewPool(addrmgr.I2PNodePoolCap),
		I2PUncheckedNodePool: addrmgr.NewPool(addrmgr.I2PUncheckedNodePoolCap),
		Connections:          NewRegistry(),
		Hosts:                NewHosts(),
		Bans:                 NewBanList(),
	}
}

// IsShuttingDown reports the process-wide shutdown flag.
func (s *State) IsShuttingDown() bool {
	return atomic.LoadInt32(&s.ShuttingDown) != 0
}

// Shutdown sets the process-wide shutdown flag, observed by peer workers
// and the I2P listener on their next loop iteration.
func (s *State) Shutdown() {
	atomic.StoreInt32(&s.ShuttingDown, 1)
}
