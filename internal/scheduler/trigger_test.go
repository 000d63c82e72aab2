package scheduler

import (
	"testing"
	"time"
)

func at(hour, minute, second int) time.Time {
	return time.Date(2026, 8, 26, hour, minute, second, 0, time.UTC)
}

func TestEveryNext(t *testing.T) {
	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{name: "mid interval", after: at(12, 2, 30), want: at(12, 5, 0)},
		{name: "on the mark", after: at(12, 5, 0), want: at(12, 10, 0)},
		{name: "just before mark", after: at(12, 4, 59), want: at(12, 5, 0)},
		{name: "hour rollover", after: at(12, 57, 0), want: at(13, 0, 0)},
	}
	trigger := Every(5)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trigger.Next(tt.after); !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", tt.after, got, tt.want)
			}
		})
	}
}

func TestHourlyAtNext(t *testing.T) {
	trigger := HourlyAt(10, 50)
	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{name: "before first mark", after: at(9, 5, 0), want: at(9, 10, 0)},
		{name: "between marks", after: at(9, 10, 0), want: at(9, 50, 0)},
		{name: "after last mark", after: at(9, 55, 0), want: at(10, 10, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trigger.Next(tt.after); !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", tt.after, got, tt.want)
			}
		})
	}
}

func TestHourlyAtSortsMinutes(t *testing.T) {
	trigger := HourlyAt(50, 10)
	if got, want := trigger.Next(at(9, 5, 0)), at(9, 10, 0); !got.Equal(want) {
		t.Errorf("Next = %v, want %v", got, want)
	}
}

func TestDailyAtNext(t *testing.T) {
	trigger := DailyAt(7, 30)
	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{name: "same day", after: at(6, 0, 0), want: at(7, 30, 0)},
		{name: "already passed", after: at(8, 0, 0), want: at(7, 30, 0).AddDate(0, 0, 1)},
		{name: "exactly on time", after: at(7, 30, 0), want: at(7, 30, 0).AddDate(0, 0, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trigger.Next(tt.after); !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", tt.after, got, tt.want)
			}
		})
	}
}
