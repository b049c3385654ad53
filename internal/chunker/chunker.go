package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidChunkCount is a configuration error, reported before any
// filesystem mutation.
var ErrInvalidChunkCount = errors.New("chunk count must be greater than 0")

// Span is one contiguous half-open slice [Start, End) of the document list.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

// Plan splits n documents into k contiguous near-equal spans. The first
// n%k spans carry one extra element; sizes always sum to n and differ by at
// most one. When k exceeds n the trailing spans are empty.
func Plan(n, k int) ([]Span, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkCount, k)
	}
	if n < 0 {
		return nil, fmt.Errorf("negative document count %d", n)
	}

	base := n / k
	extra := n % k
	spans := make([]Span, k)
	start := 0
	for i := range spans {
		size := base
		if i < extra {
			size++
		}
		spans[i] = Span{Start: start, End: start + size}
		start += size
	}
	return spans, nil
}
