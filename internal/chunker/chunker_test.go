package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanRemainderGoesToLeadingSpans(t *testing.T) {
	spans, err := Plan(10, 3)
	require.NoError(t, err)
	require.Len(t, spans, 3)

	assert.Equal(t, Span{Start: 0, End: 4}, spans[0])
	assert.Equal(t, Span{Start: 4, End: 7}, spans[1])
	assert.Equal(t, Span{Start: 7, End: 10}, spans[2])
}

func TestPlanSizesSumAndBalance(t *testing.T) {
	cases := []struct{ n, k int }{
		{0, 1}, {1, 1}, {10, 1}, {10, 10}, {100, 7}, {3, 5}, {9999, 13},
	}
	for _, tc := range cases {
		spans, err := Plan(tc.n, tc.k)
		require.NoError(t, err)
		require.Len(t, spans, tc.k)

		total := 0
		minSize, maxSize := tc.n, 0
		prevEnd := 0
		for _, s := range spans {
			require.Equal(t, prevEnd, s.Start, "spans must be contiguous")
			require.GreaterOrEqual(t, s.End, s.Start)
			prevEnd = s.End
			total += s.Len()
			if s.Len() < minSize {
				minSize = s.Len()
			}
			if s.Len() > maxSize {
				maxSize = s.Len()
			}
		}
		assert.Equal(t, tc.n, total, "sizes must sum to n (n=%d k=%d)", tc.n, tc.k)
		assert.LessOrEqual(t, maxSize-minSize, 1, "sizes must differ by at most 1 (n=%d k=%d)", tc.n, tc.k)
	}
}

func TestPlanMoreChunksThanDocuments(t *testing.T) {
	spans, err := Plan(5, 7)
	require.NoError(t, err)
	require.Len(t, spans, 7)
	assert.Equal(t, 1, spans[4].Len())
	assert.Equal(t, 0, spans[5].Len())
	assert.Equal(t, 0, spans[6].Len())
}

func TestPlanRejectsNonPositiveChunkCount(t *testing.T) {
	for _, k := range []int{0, -1, -10} {
		_, err := Plan(10, k)
		require.ErrorIs(t, err, ErrInvalidChunkCount, "k=%d", k)
	}
}
