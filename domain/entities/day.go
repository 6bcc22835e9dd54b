package entities

import (
	"fmt"
	"strconv"
	"time"
)

// Day is a UTC calendar date encoded as YYYYMMDD
type Day int

// DayFromTime returns the UTC calendar day containing t
func DayFromTime(t time.Time) Day {
	t = t.UTC()
	return Day(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

// DayFromUnix returns the UTC calendar day containing the unix timestamp
func DayFromUnix(seconds int64) Day {
	return DayFromTime(time.Unix(seconds, 0))
}

// NewDay builds a day from its parts, normalizing overflow the way time.Date does
func NewDay(year int, month time.Month, day int) Day {
	return DayFromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseDay parses a YYYYMMDD key and rejects dates that do not exist
func ParseDay(s string) (Day, error) {
	if len(s) != 8 {
		return 0, fmt.Errorf("invalid day %q: expected YYYYMMDD", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid day %q: %w", s, err)
	}
	d := Day(n)
	if !d.Valid() {
		return 0, fmt.Errorf("invalid day %q: not a calendar date", s)
	}
	return d, nil
}

// Valid reports whether the key names a real calendar date
func (d Day) Valid() bool {
	year, month, day := int(d)/10000, time.Month(int(d)/100%100), int(d)%100
	if year < 1970 || month < 1 || month > 12 || day < 1 {
		return false
	}
	return NewDay(year, month, day) == d
}

// Time returns midnight UTC of the day
func (d Day) Time() time.Time {
	return time.Date(int(d)/10000, time.Month(int(d)/100%100), int(d)%100, 0, 0, 0, 0, time.UTC)
}

// Next returns the following calendar day
func (d Day) Next() Day {
	return DayFromTime(d.Time().AddDate(0, 0, 1))
}

// Prev returns the preceding calendar day
func (d Day) Prev() Day {
	return DayFromTime(d.Time().AddDate(0, 0, -1))
}

// String formats the day as YYYYMMDD
func (d Day) String() string {
	return strconv.Itoa(int(d))
}

// ISO formats the day as YYYY-MM-DD
func (d Day) ISO() string {
	return d.Time().Format("2006-01-02")
}

// DaysBetween returns the number of calendar days from a to b (negative when b is before a)
func DaysBetween(a, b Day) int {
	return int(b.Time().Sub(a.Time()).Hours() / 24)
}

// DayRange returns every calendar day in [from, to] in ascending order
func DayRange(from, to Day) []Day {
	if to < from {
		return nil
	}
	days := make([]Day, 0, DaysBetween(from, to)+1)
	for d := from; d <= to; d = d.Next() {
		days = append(days, d)
	}
	return days
}
