package bpmn

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

var zeroTime = time.Time{}

var maxDurationSeconds = float64(math.MaxInt64) / float64(time.Second)

var errNoTimer = errors.New("timer has no timeDuration, timeDate or timeCycle")

// ParseDuration reads an ISO-8601 duration made of weeks, days, hours,
// minutes and seconds, such as PT1H, P1DT2H30M or PT0.5S. Years and months
// have no fixed length and are rejected, as are negative durations and
// durations too long for time.Duration.
func ParseDuration(s string) (time.Duration, error) {
	// the parser accepts designators without a value and values without a
	// designator, such as "PT" or "PT5"
	if len(s) < 3 || !strings.ContainsAny(s[len(s)-1:], "WDHMS") {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %v", s, err)
	}
	if d.Years != 0 || d.Months != 0 {
		return 0, fmt.Errorf("unsupported duration %q: years and months have no fixed length", s)
	}
	if d.Negative {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	seconds := d.Weeks*7*86400 + d.Days*86400 + d.Hours*3600 + d.Minutes*60 + d.Seconds
	if seconds >= maxDurationSeconds {
		return 0, fmt.Errorf("duration %q is too long", s)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// DueAt computes when a timer catch event created at now fires. A cycle
// "R[n]/<duration>" fires once after its first interval.
func (n *Node) DueAt(now time.Time) (time.Time, error) {
	switch {
	case n.TimerDate != "":
		t, err := time.Parse(time.RFC3339, n.TimerDate)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timeDate %q: %v", n.TimerDate, err)
		}
		return t, nil
	case n.TimerDuration != "":
		d, err := ParseDuration(n.TimerDuration)
		if err != nil {
			return time.Time{}, err
		}
		return now.Add(d), nil
	case n.TimerCycle != "":
		parts := strings.Split(n.TimerCycle, "/")
		d, err := ParseDuration(parts[len(parts)-1])
		if err != nil {
			return time.Time{}, err
		}
		return now.Add(d), nil
	}
	return time.Time{}, errNoTimer
}

// IsDue reports whether a timer scheduled for dueAt fires at now.
func IsDue(now time.Time, dueAt *time.Time) bool {
	return dueAt != nil && !dueAt.After(now)
}
