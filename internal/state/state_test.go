package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-bmd/bmd/internal/config"
)

type fakeHandle struct {
	group string
	alive bool
}

func (f *fakeHandle) Alive() bool   { return f.alive }
func (f *fakeHandle) Group() string { return f.group }
func (f *fakeHandle) Status() Status { return StatusConnected }
func (f *fakeHandle) Stop()          {}

func TestRegistryAddRemoveSnapshot(t *testing.T) {
	r := NewRegistry()
	a := &fakeHandle{group: "a", alive: true}
	b := &fakeHandle{group: "b", alive: true}

	r.Add(a)
	r.Add(b)
	require.Equal(t, 2, r.Len())

	snap := r.Snapshot()
	require.Len(t, snap, 2)

	r.Remove(a)
	require.Equal(t, 1, r.Len())
	require.Equal(t, []ConnHandle{b}, r.Snapshot())
}

func TestBanListExpiry(t *testing.T) {
	b := NewBanList()
	require.False(t, b.IsBanned("1.2.3.0/24"))

	b.Ban("1.2.3.0/24", 50*time.Millisecond)
	require.True(t, b.IsBanned("1.2.3.0/24"))

	time.Sleep(80 * time.Millisecond)
	require.False(t, b.IsBanned("1.2.3.0/24"))
}

func TestBanListZeroDurationIsNoop(t *testing.T) {
	b := NewBanList()
	b.Ban("group", 0)
	require.False(t, b.IsBanned("group"))
}

func TestHostsStoreReplacesWholesale(t *testing.T) {
	h := NewHosts()
	require.False(t, h.Contains("a"))

	h.Store(map[string]struct{}{"a": {}, "b": {}})
	require.True(t, h.Contains("a"))
	require.True(t, h.Contains("b"))

	h.Store(map[string]struct{}{"c": {}})
	require.False(t, h.Contains("a"))
	require.True(t, h.Contains("c"))
}

func TestStateShutdown(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	st := New(cfg)

	require.False(t, st.IsShuttingDown())
	st.Shutdown()
	require.True(t, st.IsShuttingDown())
}
