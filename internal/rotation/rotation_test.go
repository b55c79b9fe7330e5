package rotation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssigneeWrapsAround(t *testing.T) {
	roster := []int64{10, 20, 30}
	want := []int64{10, 20, 30, 10, 20, 30, 10}
	for i, w := range want {
		got, err := Assignee(roster, i)
		require.NoError(t, err)
		require.Equal(t, w, got, "index %d", i)
	}
}

func TestAssigneeSingleMember(t *testing.T) {
	for i := 0; i < 5; i++ {
		got, err := Assignee([]int64{7}, i)
		require.NoError(t, err)
		require.Equal(t, int64(7), got)
	}
}

func TestAssigneeEmptyRoster(t *testing.T) {
	_, err := Assignee(nil, 0)
	require.ErrorIs(t, err, ErrEmptyRoster)
}

func TestAssigneeNegativeIndex(t *testing.T) {
	_, err := Assignee([]int64{1}, -1)
	require.Error(t, err)
}

func TestSequenceIsPeriodic(t *testing.T) {
	roster := []int64{4, 8, 15, 16}
	seq, err := Sequence(roster, 30)
	require.NoError(t, err)
	require.Len(t, seq, 30)
	require.Equal(t, roster[0], seq[0])
	for i := len(roster); i < len(seq); i++ {
		require.Equal(t, seq[i-len(roster)], seq[i], "index %d", i)
	}
}

func TestSequenceRestartsEachRun(t *testing.T) {
	roster := []int64{1, 2, 3}
	first, err := Sequence(roster, 2)
	require.NoError(t, err)
	second, err := Sequence(roster, 2)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
