package configs

import (
	"fmt"
	"time"
)

// Duration .
type Duration time.Duration

// Duration .
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalText .
func (d *Duration) UnmarshalText(text []byte) error {
	var dur, err = time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalText .
func (d Duration) MarshalText() ([]byte, error) {
	if d == 0 {
		return []byte("0s"), nil
	}

	var dur = time.Duration(d)
	var sign string
	if dur < 0 {
		dur = -dur
		sign = "-"
	}

	switch {
	case dur%time.Hour == 0:
		return []byte(fmt.Sprintf("%s%dh", sign, dur/time.Hour)), nil
	case dur%time.Minute == 0:
		return []byte(fmt.Sprintf("%s%dm", sign, dur/time.Minute)), nil
	case dur%time.Second == 0:
		return []byte(fmt.Sprintf("%s%ds", sign, dur/time.Second)), nil
	case dur%time.Millisecond == 0:
		return []byte(fmt.Sprintf("%s%dms", sign, dur/time.Millisecond)), nil
	default:
		return []byte(sign + dur.String()), nil
	}
}
