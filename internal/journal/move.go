package journal

import (
	"errors"
	"fmt"
	"sort"
)

var ErrInvalidMove = errors.New("invalid move")

// moveOffsets removes the items at the given offsets and reinserts them,
// keeping their relative order, before the element originally at to.
// to == len(items) appends them at the end.
func moveOffsets[T any](items []T, from []int, to int) ([]T, error) {
	n := len(items)
	if to < 0 || to > n {
		return nil, fmt.Errorf("%w: destination %d out of range [0,%d]", ErrInvalidMove, to, n)
	}
	if len(from) == 0 {
		return nil, fmt.Errorf("%w: no source offsets", ErrInvalidMove)
	}

	picked := make(map[int]bool, len(from))
	for _, i := range from {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: source %d out of range [0,%d)", ErrInvalidMove, i, n)
		}
		picked[i] = true
	}
	offsets := make([]int, 0, len(picked))
	for i := range picked {
		offsets = append(offsets, i)
	}
	sort.Ints(offsets)

	moved := make([]T, 0, len(offsets))
	rest := make([]T, 0, n-len(offsets))
	before := 0
	for i, it := range items {
		if picked[i] {
			moved = append(moved, it)
			if i < to {
				before++
			}
			continue
		}
		rest = append(rest, it)
	}

	at := to - before
	out := make([]T, 0, n)
	out = append(out, rest[:at]...)
	out = append(out, moved...)
	out = append(out, rest[at:]...)
	return out, nil
}
