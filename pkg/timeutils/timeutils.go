package timeutils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseWeekdays parses a comma-separated list of weekday numbers (0=Sunday ... 6=Saturday).
func ParseWeekdays(days string) (map[time.Weekday]bool, error) {
	if strings.TrimSpace(days) == "" {
		return nil, fmt.Errorf("at least one weekday is required")
	}
	target := make(map[time.Weekday]bool)
	for _, p := range strings.Split(days, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid day in recurrence: %s", p)
		}
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("day must be between 0 and 6")
		}
		target[time.Weekday(d)] = true
	}
	return target, nil
}

// ParseClock parses "HH:MM" (24h).
func ParseClock(clock string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time format, expected HH:MM")
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour")
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute")
	}
	return hour, minute, nil
}

// LoadLocation resolves an IANA name, falling back to UTC for empty or unknown zones.
func LoadLocation(name string) *time.Location {
	if strings.TrimSpace(name) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NextOccurrence returns the first slot strictly after from. The wall clock is interpreted in loc,
// so a 09:00 slot stays at 09:00 local time across DST changes.
func NextOccurrence(days, clock string, from time.Time, loc *time.Location) (time.Time, error) {
	return scan(days, clock, from, loc, 1)
}

// PreviousOccurrence returns the latest slot at or before at.
func PreviousOccurrence(days, clock string, at time.Time, loc *time.Location) (time.Time, error) {
	return scan(days, clock, at, loc, -1)
}

func scan(days, clock string, ref time.Time, loc *time.Location, step int) (time.Time, error) {
	targetDays, err := ParseWeekdays(days)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}

	local := ref.In(loc)
	for i := 0; i <= 8; i++ {
		offset := i * step
		candidate := time.Date(local.Year(), local.Month(), local.Day()+offset, hour, minute, 0, 0, loc)
		if !targetDays[candidate.Weekday()] {
			continue
		}
		if step > 0 && candidate.After(ref) {
			return candidate, nil
		}
		if step < 0 && !candidate.After(ref) {
			return candidate, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not find occurrence within a week")
}
