package domain

import (
	"fmt"
	"time"
)

// MinuteLayout is the fixed-width YYYYMMDDHHMM wire encoding of a Minute.
const MinuteLayout = "200601021504"

// Minute is an absolute UTC timestamp truncated to minute resolution,
// stored as minutes since the Unix epoch. Ordering of Minute values is
// chronological ordering.
type Minute int64

// MinuteOf truncates t to the minute.
func MinuteOf(t time.Time) Minute {
	return Minute(t.Unix() / 60)
}

// ParseMinute decodes a YYYYMMDDHHMM string. The value is read as UTC.
func ParseMinute(s string) (Minute, error) {
	if len(s) != len(MinuteLayout) {
		return 0, fmt.Errorf("%w: time %q must be %d digits (YYYYMMDDHHMM)", ErrValidation, s, len(MinuteLayout))
	}
	t, err := time.ParseInLocation(MinuteLayout, s, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q is not a valid YYYYMMDDHHMM value", ErrValidation, s)
	}
	return MinuteOf(t), nil
}

// MustParseMinute is ParseMinute for literals known to be valid. It panics otherwise.
func MustParseMinute(s string) Minute {
	m, err := ParseMinute(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Time returns the instant as a UTC time.Time.
func (m Minute) Time() time.Time {
	return time.Unix(int64(m)*60, 0).UTC()
}

// String encodes the minute as YYYYMMDDHHMM.
func (m Minute) String() string {
	return m.Time().Format(MinuteLayout)
}

func (m Minute) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Minute) UnmarshalText(b []byte) error {
	v, err := ParseMinute(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
