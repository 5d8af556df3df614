// Package hhmm converts between HH:MM wall-clock strings and minute offsets.
// All functions are pure; the engine stores and compares times as minutes.
package hhmm

import (
	"fmt"

	"consulat-booking/pkg/response"
)

const MinutesPerDay = 24 * 60

// ToMinutes parses an HH:MM string into a minute offset from midnight.
func ToMinutes(s string) (int, error) {
	const op = "hhmm.ToMinutes"

	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%s: %q: %w", op, s, response.ErrInvalidTimeFormat)
	}

	h, ok := twoDigits(s[0], s[1])
	if !ok {
		return 0, fmt.Errorf("%s: %q: %w", op, s, response.ErrInvalidTimeFormat)
	}

	m, ok := twoDigits(s[3], s[4])
	if !ok {
		return 0, fmt.Errorf("%s: %q: %w", op, s, response.ErrInvalidTimeFormat)
	}

	if h > 23 || m > 59 {
		return 0, fmt.Errorf("%s: %q: %w", op, s, response.ErrInvalidTimeFormat)
	}

	return h*60 + m, nil
}

// ToHHMM formats a minute offset as a zero-padded HH:MM string.
// minutes must be in [0, MinutesPerDay).
func ToHHMM(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Range parses a start/end pair and checks start < end.
func Range(start, end string) (int, int, error) {
	const op = "hhmm.Range"

	s, err := ToMinutes(start)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	e, err := ToMinutes(end)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	if s >= e {
		return 0, 0, fmt.Errorf("%s: %w", op, response.ErrInvalidRange)
	}

	return s, e, nil
}

// Overlaps reports whether the closed-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}
