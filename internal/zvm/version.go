package zvm

import (
	"strconv"
	"strings"
)

// HasMinVersion reports whether the dotted version cur is at least req.
// Unparsable input never satisfies the requirement.
func HasMinVersion(cur, req string) bool {
	c, ok := parseVersion(cur)
	if !ok {
		return false
	}
	r, ok := parseVersion(req)
	if !ok {
		return false
	}

	for i := 0; i < len(c) || i < len(r); i++ {
		var a, b int
		if i < len(c) {
			a = c[i]
		}
		if i < len(r) {
			b = r[i]
		}
		if a != b {
			return a > b
		}
	}
	return true
}

func parseVersion(v string) ([]int, bool) {
	v = strings.TrimSpace(v)
	if len(v) < 1 {
		return nil, false
	}
	parts := strings.Split(v, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, false
		}
		nums[i] = n
	}
	return nums, true
}
