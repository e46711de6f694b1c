// Package manager runs the node's periodic maintenance loop: pruning
// expired objects, opening and reaping connections, persisting pools and
// the object store, and publishing this node's I2P destination.
package manager

import (
	"context"
	"math/big"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/go-bmd/bmd/internal/addrmgr"
	"github.com/go-bmd/bmd/internal/bmlog"
	"github.com/go-bmd/bmd/internal/config"
	"github.com/go-bmd/bmd/internal/i2p"
	"github.com/go-bmd/bmd/internal/peer"
	"github.com/go-bmd/bmd/internal/state"
	"github.com/go-bmd/bmd/internal/wire"
)

// Intervals between the manager's independently-deadlined periodic
// tasks, per the reference implementation's maintenance cadence.
const (
	tickInterval         = 800 * time.Millisecond
	pruneInterval        = 90 * time.Second
	connectInterval      = 2 * time.Second
	persistObjInterval   = 100 * time.Second
	persistPoolsInterval = 60 * time.Second
	publishI2PInterval   = 1 * time.Hour

	uncheckedSampleSize = 16
	checkedSampleSize   = 8
)

// Seeder is the external DNS bootstrap capability the manager consumes
// without depending on any particular resolver implementation.
type Seeder = state.DNSSeeder

// Solver mines a proof-of-work nonce for a freshly built object; the
// search strategy itself lives outside this package (see wire.Object's
// own non-goal around PoW search).
type Solver func(target *big.Int, initialHash [64]byte) [8]byte

// Manager owns the periodic maintenance loop and the files backing
// persisted state.
type Manager struct {
	st *state.State

	objectsPath  string
	nodesPath    string
	i2pNodesPath string

	seeder Seeder
	solve  Solver

	bootstrapPool []addrmgr.PeerAddress

	i2pPub       string
	i2pTransient bool

	dial func(st *state.State, addr addrmgr.PeerAddress, bootstrap bool) (*peer.Peer, error)

	lastPublishI2P time.Time
}

// Options bundles the Manager's construction-time dependencies.
type Options struct {
	DataDir string
	Seeder  Seeder
	Solve   Solver

	// I2PPub is this node's own base64 public destination, used to avoid
	// dialing ourselves; empty when I2P is disabled.
	I2PPub       string
	I2PTransient bool

	// Dial opens an outbound connection (TCP, or for NetworkI2P
	// addresses an I2P SAM stream) and returns an unstarted peer.
	Dial func(st *state.State, addr addrmgr.PeerAddress, bootstrap bool) (*peer.Peer, error)
}

// New constructs a Manager bound to st, ready to Run.
func New(st *state.State, opts Options) *Manager {
	return &Manager{
		st:           st,
		objectsPath:  filepath.Join(opts.DataDir, "objects.dat"),
		nodesPath:    filepath.Join(opts.DataDir, "nodes.dat"),
		i2pNodesPath: filepath.Join(opts.DataDir, "i2p_nodes.dat"),
		seeder:       opts.Seeder,
		solve:        opts.Solve,
		i2pPub:       opts.I2PPub,
		i2pTransient: opts.I2PTransient,
		dial:         opts.Dial,
		// First publish fires 5-15 minutes after startup, per the
		// reference implementation's randomized offset.
		lastPublishI2P: time.Now().Add(-publishI2PInterval + 5*time.Minute + time.Duration(rand.Int63n(int64(10*time.Minute)))),
	}
}

// LoadData loads persisted pools and the object store, then seeds the
// core node lists. Missing files are not an error; an unreadable or
// malformed file is logged and that store or pool starts empty, so the
// returned error is always nil. The caller supplies the decoded CSV seed
// lists.
func (m *Manager) LoadData(ctx context.Context, coreNodes, i2pCoreNodes []addrmgr.PeerAddress) error {
	if err := m.st.Objects.Load(m.objectsPath); err != nil {
		bmlog.Log.WithField("err", err).Warn("manager: loading objects, starting empty")
	}
	if err := m.st.NodePool.Load(m.nodesPath); err != nil {
		bmlog.Log.WithField("err", err).Warn("manager: loading node pool, starting empty")
	}
	if err := m.st.I2PNodePool.Load(m.i2pNodesPath); err != nil {
		bmlog.Log.WithField("err", err).Warn("manager: loading i2p node pool, starting empty")
	}

	m.st.CoreNodes = coreNodes
	m.st.I2PCoreNodes = i2pCoreNodes
	m.st.NodePool.AddAll(coreNodes)
	m.st.I2PNodePool.AddAll(i2pCoreNodes)

	m.fillBootstrapPool()
	m.BootstrapFromDNS(ctx)
	return nil
}

// fillBootstrapPool repopulates the bootstrap candidate list from core
// nodes union the checked node pool, shuffled.
func (m *Manager) fillBootstrapPool() {
	seen := make(map[addrmgr.PeerAddress]struct{})
	var pool []addrmgr.PeerAddress
	for _, a := range m.st.CoreNodes {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		pool = append(pool, a)
	}
	for _, a := range m.st.NodePool.Snapshot() {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		pool = append(pool, a)
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	m.bootstrapPool = pool
}

// Run drives the maintenance loop until ctx is cancelled. The caller is
// expected to run any I2P dialer/listener workers alongside this on their
// own goroutines, coordinated through their own errgroup.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	var lastPrune, lastConnect, lastPersistObj, lastPersistPools time.Time
	now := time.Now()
	lastPrune, lastConnect, lastPersistObj, lastPersistPools = now, now, now, now

	for {
		select {
		case <-ctx.Done():
			m.st.Shutdown()
			return nil
		case <-ticker.C:
		}

		now := time.Now()
		if now.Sub(lastPrune) > pruneInterval {
			m.pruneObjects(now)
			lastPrune = now
		}
		if now.Sub(lastConnect) > connectInterval {
			m.manageConnections(ctx)
			lastConnect = now
		}
		if now.Sub(lastPersistObj) > persistObjInterval {
			if err := m.st.Objects.Persist(m.objectsPath); err != nil {
				bmlog.Log.WithField("err", err).Warn("manager: persisting objects")
			}
			lastPersistObj = now
		}
		if now.Sub(lastPersistPools) > persistPoolsInterval {
			m.persistPools()
			lastPersistPools = now
		}
		if now.Sub(m.lastPublishI2P) > publishI2PInterval {
			m.publishI2PDestination(now)
			m.lastPublishI2P = now
		}
	}
}

func (m *Manager) pruneObjects(now time.Time) {
	n := m.st.Objects.Prune(now)
	if n > 0 {
		bmlog.Log.WithField("count", n).Debug("manager: pruned expired objects")
	}
}

// publishI2PDestination re-announces this node's I2P destination as an
// object so other nodes can dial it, skipped for transient (throwaway)
// sessions since those are not worth publishing.
func (m *Manager) publishI2PDestination(now time.Time) {
	if m.i2pPub == "" || m.i2pTransient || m.solve == nil {
		return
	}
	raw, err := i2p.DecodedPublicKey(m.i2pPub)
	if err != nil {
		bmlog.Log.WithField("err", err).Warn("manager: decoding i2p destination")
		return
	}

	obj := wire.Object{
		ExpiresTime:  uint64(now.Add(2 * time.Hour).Unix()),
		ObjectType:   config.ObjectTypeI2PDestination,
		Version:      config.ObjectVersionI2P,
		StreamNumber: m.st.Config.Stream,
		Payload:      raw,
	}
	obj.SolveNonce(now, m.st.Config.PowParams(), m.solve)

	if !m.st.Objects.Insert(obj) {
		bmlog.Log.Warn("manager: publishing i2p destination: object rejected")
		return
	}
	bmlog.Log.Debug("manager: published i2p destination")
}

func (m *Manager) persistPools() {
	m.st.NodePool.EnforceCap()
	m.st.UncheckedNodePool.EnforceCap()
	m.st.I2PNodePool.EnforceCap()
	m.st.I2PUncheckedNodePool.EnforceCap()
	if err := m.st.NodePool.Persist(m.nodesPath); err != nil {
		bmlog.Log.WithField("err", err).Warn("manager: persisting node pool")
	}
	if err := m.st.I2PNodePool.Persist(m.i2pNodesPath); err != nil {
		bmlog.Log.WithField("err", err).Warn("manager: persisting i2p node pool")
	}
}
