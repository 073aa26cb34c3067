package service

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultTokenLifetime applies when the configured lifetime cannot be parsed.
const DefaultTokenLifetime = time.Hour

// ParseLifetime parses "<integer><unit>" where unit is one of s, m, h or d.
// Anything else yields DefaultTokenLifetime with ok set to false.
func ParseLifetime(s string) (d time.Duration, ok bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return DefaultTokenLifetime, false
	}

	digits := s[:len(s)-1]
	if strings.TrimLeft(digits, "0123456789") != "" {
		return DefaultTokenLifetime, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return DefaultTokenLifetime, false
	}

	var unit time.Duration
	switch s[len(s)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	default:
		return DefaultTokenLifetime, false
	}
	if n > math.MaxInt64/int64(unit) {
		return DefaultTokenLifetime, false
	}
	return time.Duration(n) * unit, true
}
