package scheduler

import (
	"testing"
	"time"
)

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    string
		wantErr error
	}{
		{name: "five field cron", expr: "*/5 * * * *", want: "every 5m0s"},
		{name: "five field cron daily", expr: "30 7 * * *", want: "daily at 07:30"},
		{name: "param minute", expr: "minute=*/5", want: "every 5m0s"},
		{name: "param hour and minute", expr: "hour=7,minute=30", want: "daily at 07:30"},
		{name: "param hour only", expr: "hour=9", want: "daily at 09:00"},
		{name: "json minute", expr: `{"minute": "*/5"}`, want: "every 5m0s"},
		{name: "json hour and minute", expr: `{"hour": "7", "minute": "30"}`, want: "daily at 07:30"},
		{name: "bare interval", expr: "*/10", want: "every 10m0s"},
		{name: "bare minute", expr: "0", want: "hourly at :00"},
		{name: "bare minute list", expr: "10,50", want: "hourly at :10,:50"},
		{name: "disabled", expr: "disabled", wantErr: ErrDisabled},
		{name: "none", expr: "none", wantErr: ErrDisabled},
		{name: "empty", expr: "", wantErr: ErrDisabled},
		{name: "disabled mixed case", expr: "Disabled", wantErr: ErrDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, err := ParseSchedule(tt.expr)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Fatalf("ParseSchedule(%q) error = %v, want %v", tt.expr, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSchedule(%q) unexpected error: %v", tt.expr, err)
			}
			if got := trigger.String(); got != tt.want {
				t.Errorf("ParseSchedule(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParseScheduleMalformed(t *testing.T) {
	exprs := []string{
		"not a schedule",
		"{bad json",
		"minute=sixty",
		"hour=25,minute=0",
		"minute=*/0",
		"minute=99",
		"1 2 3",
	}
	for _, expr := range exprs {
		if _, err := ParseSchedule(expr); err == nil || err == ErrDisabled {
			t.Errorf("ParseSchedule(%q) = %v, want parse error", expr, err)
		}
	}
}

func TestParsedTriggerFires(t *testing.T) {
	trigger, err := ParseSchedule("*/5 * * * *")
	if err != nil {
		t.Fatal(err)
	}
	after := time.Date(2026, 8, 26, 12, 2, 30, 0, time.UTC)
	want := time.Date(2026, 8, 26, 12, 5, 0, 0, time.UTC)
	if got := trigger.Next(after); !got.Equal(want) {
		t.Errorf("Next(%v) = %v, want %v", after, got, want)
	}
}
