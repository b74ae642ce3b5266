package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock parses HH:MM in 24-hour form.
func ParseClock(value string) (Clock, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time of day %q (want HH:MM)", value)
	}
	return Clock{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// ParseInterval accepts Go durations ("6h", "90m") plus a day suffix ("1d").
func ParseInterval(value string) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	var d time.Duration
	var err error
	if days, ok := strings.CutSuffix(trimmed, "d"); ok {
		var n int
		n, err = strconv.Atoi(days)
		d = time.Duration(n) * 24 * time.Hour
	} else {
		d, err = time.ParseDuration(trimmed)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q", value)
	}
	if d < time.Minute {
		return 0, fmt.Errorf("interval %q must be at least one minute", value)
	}
	return d, nil
}

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(value string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(value))
	for day := time.Sunday; day <= time.Saturday; day++ {
		full := strings.ToLower(day.String())
		if name == full || name == full[:3] {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid weekday %q", value)
}

// Location resolves the scheduler timezone.
func (s Scheduler) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// GenerationEvery returns the parsed generation interval.
func (s Scheduler) GenerationEvery() time.Duration {
	d, _ := ParseInterval(s.GenerationInterval)
	return d
}

// RetryEvery returns the parsed retry sweep interval.
func (s Scheduler) RetryEvery() time.Duration {
	d, _ := ParseInterval(s.RetryInterval)
	return d
}
