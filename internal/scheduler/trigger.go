package scheduler

import (
	"fmt"
	"time"

	"versereel/internal/config"
)

// Trigger computes the next fire time strictly after a given instant.
type Trigger interface {
	Next(after time.Time) time.Time
	String() string
}

type every struct {
	interval time.Duration
}

// Every fires at a fixed interval measured from the previous run.
func Every(interval time.Duration) Trigger {
	if interval <= 0 {
		interval = time.Minute
	}
	return every{interval: interval}
}

func (e every) Next(after time.Time) time.Time {
	return after.Add(e.interval)
}

func (e every) String() string {
	return "every " + e.interval.String()
}

type dailyAt struct {
	at  config.Clock
	loc *time.Location
}

// DailyAt fires once a day at the wall-clock time at in loc.
func DailyAt(at config.Clock, loc *time.Location) Trigger {
	if loc == nil {
		loc = time.Local
	}
	return dailyAt{at: at, loc: loc}
}

func (d dailyAt) Next(after time.Time) time.Time {
	local := after.In(d.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.at.Hour, d.at.Minute, 0, 0, d.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, d.at.Hour, d.at.Minute, 0, 0, d.loc)
	}
	return next
}

func (d dailyAt) String() string {
	return fmt.Sprintf("daily at %s %s", d.at, d.loc)
}

type weeklyAt struct {
	day time.Weekday
	at  config.Clock
	loc *time.Location
}

// WeeklyAt fires once a week on day at the wall-clock time at in loc.
func WeeklyAt(day time.Weekday, at config.Clock, loc *time.Location) Trigger {
	if loc == nil {
		loc = time.Local
	}
	return weeklyAt{day: day, at: at, loc: loc}
}

func (w weeklyAt) Next(after time.Time) time.Time {
	local := after.In(w.loc)
	offset := (int(w.day) - int(local.Weekday()) + 7) % 7
	next := time.Date(local.Year(), local.Month(), local.Day()+offset, w.at.Hour, w.at.Minute, 0, 0, w.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+offset+7, w.at.Hour, w.at.Minute, 0, 0, w.loc)
	}
	return next
}

func (w weeklyAt) String() string {
	return fmt.Sprintf("weekly on %s at %s %s", w.day, w.at, w.loc)
}
