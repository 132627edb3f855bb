package scheduler

import (
	"fmt"
	"slices"
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

// ParseClock parses "HH:MM" in 24-hour form. Anything after the minutes is
// rejected.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time %q (expected HH:MM, 00:00-23:59): %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// DailySchedule fires at fixed times of day.
type DailySchedule struct {
	Times []Clock
	// Location the times are read in. Nil means the location of the time
	// passed to Next.
	Location *time.Location
}

// ParseDailySchedule parses a list of "HH:MM" targets.
func ParseDailySchedule(times []string, loc *time.Location) (DailySchedule, error) {
	if len(times) == 0 {
		return DailySchedule{}, fmt.Errorf("daily schedule needs at least one time")
	}
	s := DailySchedule{Location: loc}
	for _, raw := range times {
		c, err := ParseClock(raw)
		if err != nil {
			return DailySchedule{}, err
		}
		s.Times = append(s.Times, c)
	}
	return s, nil
}

// Next returns the first target strictly after t. It returns the zero time
// when the schedule is empty.
func (s DailySchedule) Next(t time.Time) time.Time {
	if len(s.Times) == 0 {
		return time.Time{}
	}
	loc := s.Location
	if loc == nil {
		loc = t.Location()
	}
	local := t.In(loc)

	var candidates []time.Time
	for day := 0; day <= 1; day++ {
		y, m, d := local.AddDate(0, 0, day).Date()
		for _, c := range s.Times {
			at := time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc)
			if at.After(t) {
				candidates = append(candidates, at)
			}
		}
	}
	return slices.MinFunc(candidates, func(a, b time.Time) int { return a.Compare(b) })
}
