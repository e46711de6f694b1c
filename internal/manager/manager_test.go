package manager

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-bmd/bmd/internal/addrmgr"
	"github.com/go-bmd/bmd/internal/config"
	"github.com/go-bmd/bmd/internal/state"
	"github.com/go-bmd/bmd/internal/wire"
)

func newTestManager(t *testing.T) (*Manager, *state.State) {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	st := state.New(cfg)
	m := New(st, Options{DataDir: t.TempDir()})
	return m, st
}

func TestPruneObjectsRemovesExpired(t *testing.T) {
	m, st := newTestManager(t)

	expired := wire.Object{ExpiresTime: uint64(time.Now().Add(-4 * time.Hour).Unix()), Payload: []byte("a")}
	fresh := wire.Object{ExpiresTime: uint64(time.Now().Add(time.Hour).Unix()), Payload: []byte("b")}
	require.True(t, st.Objects.Insert(expired))
	require.True(t, st.Objects.Insert(fresh))

	m.pruneObjects(time.Now())

	require.False(t, st.Objects.Has(expired.Vector()))
	require.True(t, st.Objects.Has(fresh.Vector()))
}

func TestFillBootstrapPoolDedupsCoreAndNodePool(t *testing.T) {
	m, st := newTestManager(t)

	shared := addrmgr.PeerAddress{Network: addrmgr.NetworkIP, Host: "1.1.1.1", Port: 8444}
	onlyCore := addrmgr.PeerAddress{Network: addrmgr.NetworkIP, Host: "2.2.2.2", Port: 8444}
	onlyPool := addrmgr.PeerAddress{Network: addrmgr.NetworkIP, Host: "3.3.3.3", Port: 8444}

	st.CoreNodes = []addrmgr.PeerAddress{shared, onlyCore}
	st.NodePool.AddAll([]addrmgr.PeerAddress{shared, onlyPool})

	m.fillBootstrapPool()

	require.Len(t, m.bootstrapPool, 3)
	seen := make(map[addrmgr.PeerAddress]bool)
	for _, a := range m.bootstrapPool {
		seen[a] = true
	}
	require.True(t, seen[shared])
	require.True(t, seen[onlyCore])
	require.True(t, seen[onlyPool])
}

func TestPopBootstrapRefillsWhenEmpty(t *testing.T) {
	m, st := newTestManager(t)
	st.CoreNodes = []addrmgr.PeerAddress{{Network: addrmgr.NetworkIP, Host: "9.9.9.9", Port: 8444}}

	m.bootstrapPool = nil
	addr, ok := m.popBootstrap()
	require.True(t, ok)
	require.Equal(t, "9.9.9.9", addr.Host)
	require.Empty(t, m.bootstrapPool)
}

func TestPopBootstrapEmptyWithNoCandidates(t *testing.T) {
	m, _ := newTestManager(t)
	m.bootstrapPool = nil
	_, ok := m.popBootstrap()
	require.False(t, ok)
}

type fakeSeeder struct {
	addrs []addrmgr.PeerAddress
	err   error
}

func (f fakeSeeder) Seed(ctx context.Context) ([]addrmgr.PeerAddress, error) {
	return f.addrs, f.err
}

func TestBootstrapFromDNSSeedsUncheckedPool(t *testing.T) {
	m, st := newTestManager(t)
	addr := addrmgr.PeerAddress{Network: addrmgr.NetworkIP, Host: "4.4.4.4", Port: 8444}
	m.seeder = fakeSeeder{addrs: []addrmgr.PeerAddress{addr}}

	m.BootstrapFromDNS(context.Background())

	require.True(t, st.UncheckedNodePool.Contains(addr))
}

func TestBootstrapFromDNSToleratesError(t *testing.T) {
	m, st := newTestManager(t)
	m.seeder = fakeSeeder{err: errors.New("resolver down")}

	require.NotPanics(t, func() { m.BootstrapFromDNS(context.Background()) })
	require.Equal(t, 0, st.UncheckedNodePool.Len())
}

func TestParseTrustedPeer(t *testing.T) {
	addr, ok := parseTrustedPeer("203.0.113.5:8444")
	require.True(t, ok)
	require.Equal(t, "203.0.113.5", addr.Host)
	require.Equal(t, uint16(8444), addr.Port)

	_, ok = parseTrustedPeer("not-a-hostport")
	require.False(t, ok)
}

func TestPublishI2PDestinationSkippedWhenTransientOrDisabled(t *testing.T) {
	m, st := newTestManager(t)
	m.i2pTransient = true
	m.i2pPub = "somepub"
	m.solve = func(target *big.Int, h [64]byte) [8]byte { return [8]byte{1} }

	m.publishI2PDestination(time.Now())
	require.Equal(t, 0, st.Objects.Len())

	// Disabled: a persistent session but no destination configured.
	m.i2pTransient = false
	m.i2pPub = ""
	m.publishI2PDestination(time.Now())
	require.Equal(t, 0, st.Objects.Len())
}
