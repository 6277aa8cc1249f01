package zone

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIndices parses a list of lamp indices and inclusive ranges separated
// by commas or semicolons, e.g. "0-5, 7;9". Blank input yields no indices.
func ParseIndices(expr string) ([]int, error) {
	var out []int
	parts := strings.FieldsFunc(expr, func(r rune) bool { return r == ',' || r == ';' })

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			v, err := parseIndex(part)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			continue
		}

		start, err := parseIndex(lo)
		if err != nil {
			return nil, err
		}
		end, err := parseIndex(hi)
		if err != nil {
			return nil, err
		}
		if start > end {
			return nil, fmt.Errorf("%w: %q runs backwards", ErrInvalidIndexRange, part)
		}
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
	}

	return out, nil
}

func parseIndex(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIndexRange, s)
	}
	return v, nil
}
