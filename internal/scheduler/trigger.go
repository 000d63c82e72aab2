// Package scheduler binds collectors to triggers and dispatches them on a
// single goroutine: one eager synchronous pass at startup in declaration
// order, then a tick loop over next-fire times. Jobs never run concurrently,
// so collectors can mutate their gauges without locks.
package scheduler

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Trigger computes the next fire time strictly after a given instant.
type Trigger interface {
	Next(after time.Time) time.Time
	String() string
}

type everyTrigger struct {
	interval time.Duration
}

// Every fires on wall-clock multiples of the interval (":00, :05, :10" for
// five minutes), matching cron `*/N` semantics rather than free-running
// intervals.
func Every(minutes int) Trigger {
	return everyTrigger{interval: time.Duration(minutes) * time.Minute}
}

func (t everyTrigger) Next(after time.Time) time.Time {
	return after.Truncate(t.interval).Add(t.interval)
}

func (t everyTrigger) String() string {
	return fmt.Sprintf("every %s", t.interval)
}

type hourlyAtTrigger struct {
	minutes []int
}

// HourlyAt fires each hour at the given minute marks.
func HourlyAt(minutes ...int) Trigger {
	sorted := append([]int(nil), minutes...)
	sort.Ints(sorted)
	return hourlyAtTrigger{minutes: sorted}
}

func (t hourlyAtTrigger) Next(after time.Time) time.Time {
	hour := after.Truncate(time.Hour)
	for _, m := range t.minutes {
		candidate := hour.Add(time.Duration(m) * time.Minute)
		if candidate.After(after) {
			return candidate
		}
	}
	return hour.Add(time.Hour).Add(time.Duration(t.minutes[0]) * time.Minute)
}

func (t hourlyAtTrigger) String() string {
	parts := make([]string, len(t.minutes))
	for i, m := range t.minutes {
		parts[i] = fmt.Sprintf(":%02d", m)
	}
	return "hourly at " + strings.Join(parts, ",")
}

type dailyAtTrigger struct {
	hour, minute int
}

// DailyAt fires once a day at the given local time.
func DailyAt(hour, minute int) Trigger {
	return dailyAtTrigger{hour: hour, minute: minute}
}

func (t dailyAtTrigger) Next(after time.Time) time.Time {
	candidate := time.Date(after.Year(), after.Month(), after.Day(),
		t.hour, t.minute, 0, 0, after.Location())
	if candidate.After(after) {
		return candidate
	}
	return candidate.AddDate(0, 0, 1)
}

func (t dailyAtTrigger) String() string {
	return fmt.Sprintf("daily at %02d:%02d", t.hour, t.minute)
}
