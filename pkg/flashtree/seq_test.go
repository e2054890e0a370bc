package flashtree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextSeqWraps(t *testing.T) {
	require.Equal(t, Seq1, NextSeq(Seq0))
	require.Equal(t, Seq2, NextSeq(Seq1))
	require.Equal(t, Seq0, NextSeq(Seq2))
}

func TestIsNewerOneStepAhead(t *testing.T) {
	newer, err := IsNewer(Seq1, Seq0)
	require.NoError(t, err)
	require.True(t, newer)

	newer, err = IsNewer(Seq0, Seq1)
	require.NoError(t, err)
	require.False(t, newer)
}

func TestIsNewerWrapAround(t *testing.T) {
	newer, err := IsNewer(Seq0, Seq2)
	require.NoError(t, err)
	require.True(t, newer)
}

func TestIsNewerEqualIsFatal(t *testing.T) {
	_, err := IsNewer(Seq1, Seq1)
	require.ErrorIs(t, err, ErrFatal)
}
