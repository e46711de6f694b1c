package dnsseed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeedRespectsCancelledContext(t *testing.T) {
	s := New([]string{"seed.example.invalid"}, 8444)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	addrs, err := s.Seed(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, addrs)
}

func TestNewSeederDefaults(t *testing.T) {
	s := New([]string{"a.example.invalid", "b.example.invalid"}, 8444)
	require.Len(t, s.Hosts, 2)
	require.Equal(t, uint16(8444), s.Port)
	require.Empty(t, s.Resolver)
}
