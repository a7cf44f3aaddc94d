package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var delayPattern = regexp.MustCompile(`^\s*(\d+)([mhd])\s*$`)

var delayUnits = map[string]time.Duration{
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseDelay converts "<n>m", "<n>h" or "<n>d" into a duration. Anything
// else, including values that would overflow, is a zero delay.
func ParseDelay(s string) time.Duration {
	m := delayPattern.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	unit := delayUnits[m[2]]
	if n > math.MaxInt64/int64(unit) {
		return 0
	}
	return time.Duration(n) * unit
}
