package convert

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-openapi/strfmt"
)

// Instant is a point on the time line, always held in UTC.
type Instant struct {
	time.Time
}

// ZonedDateTime is a date-time with its time zone.
type ZonedDateTime struct {
	time.Time
}

// LocalDate is a calendar date without a time or zone.
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

const zonedLayout = "2006-01-02T15:04:05.999999999"

func (i Instant) String() string {
	return i.UTC().Format(time.RFC3339Nano)
}

func (i Instant) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (z ZonedDateTime) String() string {
	return z.Format(zonedLayout) + " " + z.Location().String()
}

func (z ZonedDateTime) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

func (d LocalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d LocalDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// zoneAliases maps the short zone names accepted in date strings to IANA
// locations.
var zoneAliases = map[string]string{
	"UTC": "UTC",
	"Z":   "UTC",
	"ET":  "America/New_York",
	"CT":  "America/Chicago",
	"MT":  "America/Denver",
	"PT":  "America/Los_Angeles",
	"BT":  "America/Sao_Paulo",
	"KT":  "Asia/Seoul",
	"JT":  "Asia/Tokyo",
	"LON": "Europe/London",
	"SYD": "Australia/Sydney",
}

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseZoned parses "<date>[T<time>] <zone>".
func parseZoned(s string) (time.Time, error) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return time.Time{}, fmt.Errorf("date-time %q has no time zone", s)
	}
	stamp, zone := s[:i], s[i+1:]
	if alias, ok := zoneAliases[zone]; ok {
		zone = alias
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("date-time %q: %w", s, err)
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, stamp, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date-time %q is not in a supported layout", s)
}

// hasOffset reports whether s is a date-time ending in a UTC designator
// or a numeric offset, as in RFC 3339.
func hasOffset(s string) bool {
	t := strings.IndexByte(s, 'T')
	if t < 0 || strings.ContainsRune(s, ' ') {
		return false
	}
	clock := s[t+1:]
	return strings.HasSuffix(clock, "Z") || strings.ContainsAny(clock, "+-")
}

// ToInstant converts times, epoch nanoseconds, RFC 3339
// strings and "<date-time> <zone>" strings to an Instant.
func ToInstant(value any) (Instant, error) {
	switch v := value.(type) {
	case Instant:
		return v, nil
	case time.Time:
		return Instant{v.UTC()}, nil
	case int64:
		return Instant{time.Unix(0, v).UTC()}, nil
	case int:
		return Instant{time.Unix(0, int64(v)).UTC()}, nil
	case string:
		if hasOffset(v) {
			dt, err := strfmt.ParseDateTime(v)
			if err != nil {
				return Instant{}, fmt.Errorf("instant %q: %w", v, err)
			}
			return Instant{time.Time(dt).UTC()}, nil
		}
		t, err := parseZoned(v)
		if err != nil {
			return Instant{}, err
		}
		return Instant{t.UTC()}, nil
	}
	return Instant{}, fmt.Errorf("cannot convert %T to an instant", value)
}

// ToZonedDateTime converts times, instants and "<date-time> <zone>"
// strings to a ZonedDateTime.
func ToZonedDateTime(value any) (ZonedDateTime, error) {
	switch v := value.(type) {
	case ZonedDateTime:
		return v, nil
	case Instant:
		return ZonedDateTime{v.UTC()}, nil
	case time.Time:
		return ZonedDateTime{v}, nil
	case string:
		t, err := parseZoned(v)
		if err != nil {
			return ZonedDateTime{}, err
		}
		return ZonedDateTime{t}, nil
	}
	return ZonedDateTime{}, fmt.Errorf("cannot convert %T to a zoned date-time", value)
}

// ToLocalDate converts dates, times and "YYYY-MM-DD" strings to a
// LocalDate.
func ToLocalDate(value any) (LocalDate, error) {
	switch v := value.(type) {
	case LocalDate:
		return v, nil
	case ZonedDateTime:
		return localDateOf(v.Time), nil
	case time.Time:
		return localDateOf(v), nil
	case string:
		var d strfmt.Date
		if err := d.UnmarshalText([]byte(v)); err != nil {
			return LocalDate{}, fmt.Errorf("local date %q: %w", v, err)
		}
		return localDateOf(time.Time(d)), nil
	}
	return LocalDate{}, fmt.Errorf("cannot convert %T to a local date", value)
}

func localDateOf(t time.Time) LocalDate {
	y, m, d := t.Date()
	return LocalDate{Year: y, Month: m, Day: d}
}

var dateAttempts = []Attempt[any]{
	As("Instant", ToInstant),
	As("ZonedDateTime", ToZonedDateTime),
	As("LocalDate", ToLocalDate),
}

// ToDate converts value to an Instant, a ZonedDateTime or a LocalDate,
// preferring them in that order.
func ToDate(value any) (any, error) {
	return First(value, dateAttempts...)
}

// converterFor returns the converter producing values of the same kind as
// date.
func converterFor(date any) (func(any) (any, error), bool) {
	switch date.(type) {
	case Instant:
		return As("Instant", ToInstant).Convert, true
	case ZonedDateTime:
		return As("ZonedDateTime", ToZonedDateTime).Convert, true
	case LocalDate:
		return As("LocalDate", ToLocalDate).Convert, true
	}
	return nil, false
}
