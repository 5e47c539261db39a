package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// DaySet is a bitset over weekdays (time.Weekday numbering, Sunday = 0).
// Rule rows store days as smallint[]; the engine works on this value type so
// membership tests are explicit instead of scanning arrays.
type DaySet uint8

// NewDaySet builds a set from explicit weekdays.
func NewDaySet(days ...time.Weekday) DaySet {
	var s DaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

// DaySetFromInts converts the stored smallint[] column into a DaySet,
// rejecting values outside 0..6.
func DaySetFromInts(days pq.Int64Array) (DaySet, error) {
	var s DaySet
	for _, d := range days {
		if d < 0 || d > 6 {
			return 0, fmt.Errorf("day of week %d out of range", d)
		}
		s |= 1 << uint(d)
	}
	return s, nil
}

// EveryDay covers all seven weekdays.
func EveryDay() DaySet {
	return DaySet(0x7F)
}

// Contains reports whether the weekday is in the set.
func (s DaySet) Contains(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

// IsEmpty reports whether no weekday is set.
func (s DaySet) IsEmpty() bool {
	return s == 0
}

// Days lists the member weekdays in ascending order.
func (s DaySet) Days() []time.Weekday {
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Contains(d) {
			out = append(out, d)
		}
	}
	return out
}

// String implements fmt.Stringer.
func (s DaySet) String() string {
	if s.IsEmpty() {
		return "none"
	}
	names := make([]string, 0, 7)
	for _, d := range s.Days() {
		names = append(names, d.String()[:3])
	}
	return strings.Join(names, ",")
}
