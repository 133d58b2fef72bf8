// Package units centralizes conversion of the human-readable magnitudes the
// container runtime emits ("2.098MiB", "14.3MB", "0.50%") into numbers.
// Nothing else in the repository is allowed to parse these strings, so host
// and container metrics cannot drift apart on unit handling.
package units

import (
	"regexp"
	"strconv"
	"strings"
)

// The runtime prints both "MB" and "MiB" but always means binary multiples,
// so the "i" marker carries no information here.
var sizeRe = regexp.MustCompile(`^([0-9]*\.?[0-9]+)\s*([KkMmGgTt])?i?[Bb]?$`)

var multipliers = map[string]float64{
	"":  1,
	"k": 1 << 10,
	"m": 1 << 20,
	"g": 1 << 30,
	"t": 1 << 40,
}

// ParseSize converts a magnitude string into a byte count. Malformed or
// empty input yields 0: a zeroed sample is preferable to aborting a
// collection cycle over one bad token.
func ParseSize(s string) float64 {
	v, _ := TryParseSize(s)
	return v
}

// TryParseSize is ParseSize with an explicit ok flag, for callers that must
// distinguish "unparseable" from a genuine zero (e.g. a missing memory cap).
func TryParseSize(s string) (float64, bool) {
	m := sizeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return n * multipliers[strings.ToLower(m[2])], true
}

// ParsePercent strips a trailing '%' and parses the remainder as a float.
// Malformed input yields 0, same policy as ParseSize.
func ParsePercent(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
