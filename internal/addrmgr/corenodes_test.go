package addrmgr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCoreNodesCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "core_nodes.csv")
	require.NoError(t, os.WriteFile(path, []byte("1.2.3.4,8444\n5.6.7.8,8445\n"), 0o644))

	nodes, err := LoadCoreNodesCSV(path)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.Equal(t, PeerAddress{Network: NetworkIP, Host: "1.2.3.4", Port: 8444}, nodes[0])
}

func TestLoadI2PCoreNodesCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "i2p_core_nodes.csv")
	require.NoError(t, os.WriteFile(path, []byte("abc123,i2p\n"), 0o644))

	nodes, err := LoadI2PCoreNodesCSV(path)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Equal(t, PeerAddress{Network: NetworkI2P, Host: "abc123"}, nodes[0])
}
