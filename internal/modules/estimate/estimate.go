// README: Preparation-time parsing and delivery ETA estimation.
package estimate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPrepMinutes is used when a descriptor cannot be parsed.
	// Estimates are advisory, so bad catalog data never fails an order.
	DefaultPrepMinutes = 15

	MinPrepMinutes = 10
	MaxPrepMinutes = 90

	// DeliveryOffset is the fixed ETA from order creation. It is intentionally
	// independent of PreparationMinutes; the two can disagree.
	DeliveryOffset = 55 * time.Minute
)

var (
	rangePattern  = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)\s*min`)
	minutePattern = regexp.MustCompile(`^(\d+)\s*min`)
	hourPattern   = regexp.MustCompile(`^(\d+)\s*(?:hr|hour)`)
)

// ParseMinutes turns a catalog preparation descriptor ("15-20 min", "25 min",
// "1 hr") into whole minutes. Range forms average their bounds, rounding to
// nearest. Anything unrecognized falls back to DefaultPrepMinutes.
func ParseMinutes(descriptor string) int {
	s := strings.ToLower(strings.TrimSpace(descriptor))
	if m := rangePattern.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		return int(math.Round(float64(lo+hi) / 2))
	}
	if m := minutePattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := hourPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n * 60
	}
	return DefaultPrepMinutes
}

// PreparationMinutes estimates how long a whole order takes to prepare.
// Items cook in parallel, so the slowest item dominates; a small coordination
// buffer grows with item count. The result is clamped to [MinPrepMinutes,
// MaxPrepMinutes].
func PreparationMinutes(descriptors []string) int {
	longest := 0
	for _, d := range descriptors {
		if m := ParseMinutes(d); m > longest {
			longest = m
		}
	}
	buffer := 2 + len(descriptors)/2
	if buffer > 5 {
		buffer = 5
	}
	total := longest + buffer
	if total < MinPrepMinutes {
		return MinPrepMinutes
	}
	if total > MaxPrepMinutes {
		return MaxPrepMinutes
	}
	return total
}

// DeliveryTime returns the ETA shown to the user: a fixed offset from order
// creation, not derived from PreparationMinutes.
func DeliveryTime(createdAt time.Time) time.Time {
	return createdAt.Add(DeliveryOffset)
}
