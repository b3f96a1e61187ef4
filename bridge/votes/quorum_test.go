package votes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nhbbridge/core/types"
)

func TestMeetsSafetyThreshold(t *testing.T) {
	require.False(t, MeetsSafetyThreshold(types.ZeroVotingPower))
	require.False(t, MeetsSafetyThreshold(types.OneThird))
	above, err := types.NewFractionalVotingPower(334, 1000)
	require.NoError(t, err)
	require.True(t, MeetsSafetyThreshold(above))
	require.True(t, MeetsSafetyThreshold(types.Half))
}

func TestThresholdPolicy(t *testing.T) {
	policy := DefaultQuorumPolicy()
	require.Equal(t, 0, policy.Threshold().Cmp(types.TwoThirds))
	require.False(t, policy.IsSeen(types.TwoThirds))
	require.True(t, policy.IsSeen(types.FullVotingPower))

	_, err := NewThresholdPolicy(types.ZeroVotingPower)
	require.Error(t, err)
	_, err = NewThresholdPolicy(types.FullVotingPower)
	require.Error(t, err)

	floor, err := NewThresholdPolicy(types.OneThird)
	require.NoError(t, err)
	require.False(t, floor.IsSeen(types.OneThird))
	require.True(t, floor.IsSeen(types.Half))
}
