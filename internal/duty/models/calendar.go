package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	dErrors "parish/pkg/domain-errors"
)

// Date is a civil calendar date with no time zone.
type Date struct {
	t time.Time
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, dErrors.New(dErrors.CodeInvalidInput, "date must be in YYYY-MM-DD format")
	}
	return Date{t: t}, nil
}

// MustDate parses s and panics on failure. Use for literals in tests and seeds.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the civil date of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) IsZero() bool                 { return d.t.IsZero() }
func (d Date) String() string               { return d.t.Format(time.DateOnly) }
func (d Date) Before(other Date) bool       { return d.t.Before(other.t) }
func (d Date) After(other Date) bool        { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool        { return d.t.Equal(other.t) }
func (d Date) AddDays(n int) Date           { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) { return d.String(), nil }

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = Date{t: time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)}
		return nil
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

// ClockTime is a wall-clock time of day stored as minutes since midnight.
type ClockTime int

const minutesPerDay = 24 * 60

// ParseClockTime parses HH:MM. HH:MM:SS is accepted for values read back
// from the database; seconds must be zero.
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	layout := "15:04"
	if len(s) == len("15:04:05") {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil || t.Second() != 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "time must be in HH:MM format")
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

// MustClockTime parses s and panics on failure.
func MustClockTime(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) Minutes() int { return int(c) }

// Sub returns c - other as a duration.
func (c ClockTime) Sub(other ClockTime) time.Duration {
	return time.Duration(int(c)-int(other)) * time.Minute
}

// Add returns c shifted by d. The result may pass midnight; callers comparing
// within one date rely on that.
func (c ClockTime) Add(d time.Duration) ClockTime {
	return c + ClockTime(d/time.Minute)
}

func (c ClockTime) Valid() bool { return c >= 0 && c < minutesPerDay }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c ClockTime) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c ClockTime) Value() (driver.Value, error) { return c.String(), nil }

func (c *ClockTime) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return c.UnmarshalText([]byte(v))
	case []byte:
		return c.UnmarshalText(v)
	case time.Time:
		*c = ClockTime(v.Hour()*60 + v.Minute())
		return nil
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", src)
	}
}
