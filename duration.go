package slackdm

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultDelayMillis is used when the delay parameter is empty or invalid.
const DefaultDelayMillis = 100

var delayPattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)(ms|s|m|h)?$`)

var delayUnits = map[string]float64{
	"ms": 1,
	"s":  1000,
	"m":  60 * 1000,
	"h":  60 * 60 * 1000,
}

// ParseDelay converts a duration string such as "100ms", "1.5s" or "2m" to
// milliseconds. A missing unit means milliseconds. Empty or malformed input
// yields [DefaultDelayMillis] and a warning on logger, which may be nil.
func ParseDelay(value string, logger RequestLogger) float64 {
	if logger == nil {
		logger = &NoopLogger{}
	}

	if value == "" {
		logger.Warnf("no delay given, using default %dms", DefaultDelayMillis)
		return DefaultDelayMillis
	}

	m := delayPattern.FindStringSubmatch(value)
	if m == nil {
		logger.Warnf("invalid delay %q, using default %dms", value, DefaultDelayMillis)
		return DefaultDelayMillis
	}

	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		logger.Warnf("invalid delay %q, using default %dms", value, DefaultDelayMillis)
		return DefaultDelayMillis
	}

	unit := strings.ToLower(m[2])
	if unit == "" {
		unit = "ms"
	}

	return n * delayUnits[unit]
}
