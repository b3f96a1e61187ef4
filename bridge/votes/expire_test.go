package votes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nhbbridge/core/epoch"
	"nhbbridge/core/state"
)

func advance(t *testing.T, mgr *state.Manager, from, to epoch.Epoch) {
	t.Helper()
	for e := from; e < to; e++ {
		_, err := mgr.CarryStake(e, e+1)
		require.NoError(t, err)
	}
	require.NoError(t, mgr.SetCurrentEpoch(to))
}

func TestExpireRemovesStaleUnseenTallies(t *testing.T) {
	mgr := newStakedManager(t, 0, 100, 100, 100)
	policy := DefaultQuorumPolicy()

	weak := newBody(1)
	strong := newBody(2)
	seen := newBody(3)
	_, err := Apply(mgr, weak, []Vote{vote(1, 100)}, policy)
	require.NoError(t, err)
	_, err = Apply(mgr, strong, []Vote{vote(1, 100), vote(2, 100)}, policy)
	require.NoError(t, err)
	_, err = Apply(mgr, seen, []Vote{vote(1, 100), vote(2, 100), vote(3, 100)}, policy)
	require.NoError(t, err)

	advance(t, mgr, 0, 1)
	fresh := newBody(4)
	_, err = Apply(mgr, fresh, []Vote{vote(1, 100)}, policy)
	require.NoError(t, err)

	retained, removed, err := Expire[testBody](mgr, 2)
	require.NoError(t, err)
	require.Empty(t, retained)
	require.Equal(t, 0, removed)

	advance(t, mgr, 1, 2)
	retained, removed, err = Expire[testBody](mgr, 2)
	require.NoError(t, err)
	require.Equal(t, 2, removed)
	require.Len(t, retained, 1)
	require.Equal(t, strong.Hash(), retained[0].Hash())

	for _, body := range []testBody{weak, strong} {
		_, found, err := MaybeReadSeen(mgr, KeysFor(body))
		require.NoError(t, err)
		require.False(t, found)
	}
	for _, body := range []testBody{seen, fresh} {
		_, found, err := MaybeReadSeen(mgr, KeysFor(body))
		require.NoError(t, err)
		require.True(t, found)
	}
}

func TestExpireIgnoresOtherKinds(t *testing.T) {
	mgr := newStakedManager(t, 0, 100, 100, 100)
	other := otherBody{ID: 1}
	_, err := Apply(mgr, other, []Vote{vote(1, 100)}, DefaultQuorumPolicy())
	require.NoError(t, err)
	advance(t, mgr, 0, 5)

	_, removed, err := Expire[testBody](mgr, 1)
	require.NoError(t, err)
	require.Equal(t, 0, removed)

	_, removed, err = Expire[otherBody](mgr, 1)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
}
