package validation

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseID splits a dotted numeric ordering key such as "2.10" into its
// numeric segments.
func ParseID(id string) ([]int, error) {
	if id == "" {
		return nil, fmt.Errorf("empty check id")
	}
	parts := strings.Split(id, ".")
	segs := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("check id %q: segment %q is not a non-negative integer", id, p)
		}
		segs[i] = n
	}
	return segs, nil
}

// CompareIDs orders dotted ids numerically per segment, so "2.10" sorts
// after "2.9" and "1" equals "1.0". Unparseable ids fall back to string order.
func CompareIDs(a, b string) int {
	sa, errA := ParseID(a)
	sb, errB := ParseID(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	for i := 0; i < len(sa) || i < len(sb); i++ {
		var x, y int
		if i < len(sa) {
			x = sa[i]
		}
		if i < len(sb) {
			y = sb[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}
