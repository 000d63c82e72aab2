package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrDisabled reports that a schedule expression explicitly disables its
// job. A disabled job is simply never registered.
var ErrDisabled = errors.New("schedule disabled")

var minuteSpecRe = regexp.MustCompile(`^[\d\*/,]+$`)

// ParseSchedule parses a schedule expression into a Trigger.
//
// Accepted formats:
//   - 5-field cron:   "*/5 * * * *"
//   - parameters:     "minute=*/5", "hour=7,minute=30"
//   - JSON object:    {"minute": "*/5"}, {"hour": "7", "minute": "30"}
//   - bare minutes:   "*/5", "0", "10,50"
//   - disabled:       "disabled", "none", ""
//
// Malformed input returns an error; the caller decides whether to fall back
// to the job's default trigger.
func ParseSchedule(expr string) (Trigger, error) {
	expr = strings.TrimSpace(expr)
	switch strings.ToLower(expr) {
	case "", "disabled", "none":
		return nil, ErrDisabled
	}

	if strings.HasPrefix(expr, "{") {
		var params map[string]string
		if err := json.Unmarshal([]byte(expr), &params); err != nil {
			return nil, fmt.Errorf("invalid JSON schedule %q: %w", expr, err)
		}
		return triggerFromParams(params["minute"], params["hour"])
	}

	if fields := strings.Fields(expr); len(fields) == 5 {
		// Only minute and hour fields are honored; day/month/weekday
		// restrictions never appear in the service's schedule tables.
		minute, hour := fields[0], fields[1]
		if minute == "*" {
			minute = ""
		}
		if hour == "*" {
			hour = ""
		}
		return triggerFromParams(minute, hour)
	}

	if strings.Contains(expr, "=") {
		params := map[string]string{}
		for _, part := range strings.Split(expr, ",") {
			key, value, found := strings.Cut(part, "=")
			if !found {
				return nil, fmt.Errorf("invalid schedule parameter %q", part)
			}
			params[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
		return triggerFromParams(params["minute"], params["hour"])
	}

	if minuteSpecRe.MatchString(expr) {
		return triggerFromParams(expr, "")
	}

	return nil, fmt.Errorf("unrecognized schedule expression %q", expr)
}

// triggerFromParams maps cron-style minute/hour specs onto the three
// trigger kinds.
func triggerFromParams(minute, hour string) (Trigger, error) {
	if minute == "" && hour == "" {
		return nil, errors.New("schedule has neither minute nor hour")
	}

	if hour != "" {
		h, err := strconv.Atoi(hour)
		if err != nil || h < 0 || h > 23 {
			return nil, fmt.Errorf("invalid hour spec %q", hour)
		}
		m := 0
		if minute != "" {
			var err error
			m, err = strconv.Atoi(minute)
			if err != nil || m < 0 || m > 59 {
				return nil, fmt.Errorf("invalid minute spec %q for daily schedule", minute)
			}
		}
		return DailyAt(h, m), nil
	}

	if rest, ok := strings.CutPrefix(minute, "*/"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 || n > 59 {
			return nil, fmt.Errorf("invalid interval spec %q", minute)
		}
		return Every(n), nil
	}

	parts := strings.Split(minute, ",")
	minutes := make([]int, 0, len(parts))
	for _, part := range parts {
		m, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || m < 0 || m > 59 {
			return nil, fmt.Errorf("invalid minute spec %q", minute)
		}
		minutes = append(minutes, m)
	}
	return HourlyAt(minutes...), nil
}
