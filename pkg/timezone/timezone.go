// Package timezone converts UTC instants into zone-local calendar components
// and exposes the catalogue of IANA zone identifiers the dashboard offers for
// configuration.
package timezone

import (
	"fmt"
	"time"
)

// LocalTime holds the zone-local calendar components of an instant, at the
// granularity scheduling works with. DayOfWeek follows time.Weekday numbering
// (0 = Sunday).
type LocalTime struct {
	DayOfWeek int `json:"dayOfWeek"`
	Hour      int `json:"hour"`
	Minute    int `json:"minute"`
}

// LoadZone validates and loads an IANA zone identifier. An unknown identifier
// is a configuration error and should be rejected where the zone is set, not
// at evaluation time.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("timezone must not be empty")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// Localize converts a UTC instant into the local weekday, hour and minute of
// the given zone, following the zone's rules including DST transitions.
func Localize(t time.Time, loc *time.Location) LocalTime {
	local := t.In(loc)
	return LocalTime{
		DayOfWeek: int(local.Weekday()),
		Hour:      local.Hour(),
		Minute:    local.Minute(),
	}
}

// MinuteOfDay returns the local time as minutes since local midnight.
func (lt LocalTime) MinuteOfDay() int {
	return lt.Hour*60 + lt.Minute
}

// Validate checks that the components are within calendar range.
func (lt LocalTime) Validate() error {
	if lt.DayOfWeek < 0 || lt.DayOfWeek > 6 {
		return fmt.Errorf("dayOfWeek must be in [0,6], got %d", lt.DayOfWeek)
	}
	if lt.Hour < 0 || lt.Hour > 23 {
		return fmt.Errorf("hour must be in [0,23], got %d", lt.Hour)
	}
	if lt.Minute < 0 || lt.Minute > 59 {
		return fmt.Errorf("minute must be in [0,59], got %d", lt.Minute)
	}
	return nil
}
