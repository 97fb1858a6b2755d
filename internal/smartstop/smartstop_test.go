package smartstop

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopeStopsAfterThresholdEmptyPages(t *testing.T) {
	t.Parallel()

	scope := NewScope([]string{"a", "b", "c"}, 5)

	// Page sequence: 2 novel, then five known-only pages, stop on the fifth.
	novel, stop := scope.ObservePage([]string{"a", "x", "y"})
	require.Equal(t, 2, novel)
	require.False(t, stop)

	for i := 0; i < 4; i++ {
		novel, stop = scope.ObservePage([]string{"a", "b"})
		require.Zero(t, novel)
		require.False(t, stop, "page %d should not stop yet", i+2)
	}

	novel, stop = scope.ObservePage([]string{"c"})
	require.Zero(t, novel)
	require.True(t, stop)
	require.True(t, scope.ShouldStop())
}

func TestScopeNoveltyResetsCounter(t *testing.T) {
	t.Parallel()

	scope := NewScope([]string{"a"}, 2)

	_, stop := scope.ObservePage([]string{"a"})
	require.False(t, stop)

	novel, stop := scope.ObservePage([]string{"new"})
	require.Equal(t, 1, novel)
	require.False(t, stop)

	_, stop = scope.ObservePage([]string{"a"})
	require.False(t, stop)
	_, stop = scope.ObservePage([]string{"a"})
	require.True(t, stop)
}

func TestScopeJudgesAgainstPreRunSnapshotOnly(t *testing.T) {
	t.Parallel()

	scope := NewScope([]string{"known"}, 2)

	// A key first seen during this run stays novel on re-appearance: the
	// snapshot is fixed at scope creation.
	novel, _ := scope.ObservePage([]string{"fresh"})
	require.Equal(t, 1, novel)
	novel, _ = scope.ObservePage([]string{"fresh"})
	require.Equal(t, 1, novel)
}

func TestScopeUnavailableCountsTowardStop(t *testing.T) {
	t.Parallel()

	scope := NewScope(nil, 3)

	require.False(t, scope.ObserveUnavailable())
	_, stop := scope.ObservePage([]string{})
	require.False(t, stop)
	require.True(t, scope.ObserveUnavailable())
}

func TestScopeDefaultThreshold(t *testing.T) {
	t.Parallel()

	scope := NewScope([]string{"a"}, 0)
	for i := 0; i < DefaultThreshold-1; i++ {
		_, stop := scope.ObservePage([]string{"a"})
		require.False(t, stop)
	}
	_, stop := scope.ObservePage([]string{"a"})
	require.True(t, stop)
}
