package journal

import (
	"errors"
	"strings"
	"testing"
)

func TestMoveOffsets(t *testing.T) {
	cases := []struct {
		name string
		from []int
		to   int
		want string
		ok   bool
	}{
		{"forward", []int{0}, 3, "bcade", true},
		{"to end", []int{1}, 5, "acdeb", true},
		{"backward", []int{4}, 0, "eabcd", true},
		{"in place", []int{2}, 2, "abcde", true},
		{"in place after", []int{2}, 3, "abcde", true},
		{"several to front", []int{3, 1}, 0, "bdace", true},
		{"several forward", []int{0, 2}, 4, "bdace", true},
		{"repeated offsets", []int{1, 1}, 0, "bacde", true},
		{"destination too far", []int{0}, 6, "", false},
		{"negative source", []int{-1}, 0, "", false},
		{"source too far", []int{5}, 0, "", false},
		{"no sources", nil, 0, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := moveOffsets(strings.Split("abcde", ""), tc.from, tc.to)
			if !tc.ok {
				if !errors.Is(err, ErrInvalidMove) {
					t.Fatalf("expected ErrInvalidMove, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s := strings.Join(got, ""); s != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, s)
			}
		})
	}
}
