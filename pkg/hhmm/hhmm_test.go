package hhmm

import (
	"errors"
	"testing"

	"consulat-booking/pkg/response"
)

func TestToMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"09:00", 540},
		{"09:30", 570},
		{"23:59", 1439},
	}

	for _, c := range cases {
		got, err := ToMinutes(c.in)
		if err != nil {
			t.Fatalf("ToMinutes(%q): unexpected error %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ToMinutes(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestToMinutes_Invalid(t *testing.T) {
	for _, in := range []string{"", "9:00", "09:0", "24:00", "12:60", "ab:cd", "12-30", "12:300"} {
		_, err := ToMinutes(in)
		if !errors.Is(err, response.ErrInvalidTimeFormat) {
			t.Fatalf("ToMinutes(%q): expected ErrInvalidTimeFormat, got %v", in, err)
		}
	}
}

func TestToHHMM(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "00:00"},
		{540, "09:00"},
		{575, "09:35"},
		{1439, "23:59"},
	}

	for _, c := range cases {
		if got := ToHHMM(c.in); got != c.want {
			t.Fatalf("ToHHMM(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRange(t *testing.T) {
	s, e, err := Range("09:00", "10:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != 540 || e != 600 {
		t.Fatalf("Range = (%d, %d), want (540, 600)", s, e)
	}

	_, _, err = Range("10:00", "10:00")
	if !errors.Is(err, response.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for equal times, got %v", err)
	}

	_, _, err = Range("11:00", "10:00")
	if !errors.Is(err, response.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for inverted times, got %v", err)
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                   string
		aStart, aEnd           string
		bStart, bEnd           string
		want                   bool
	}{
		{"touching boundary is not an overlap", "10:00", "10:30", "10:30", "11:00", false},
		{"partial overlap", "10:15", "10:45", "10:30", "11:00", true},
		{"candidate inside existing", "10:35", "10:55", "10:30", "11:00", true},
		{"candidate contains existing", "10:00", "12:00", "10:30", "11:00", true},
		{"identical intervals", "10:30", "11:00", "10:30", "11:00", true},
		{"disjoint", "08:00", "09:00", "10:30", "11:00", false},
		{"touching on the left", "09:30", "10:30", "10:30", "11:00", false},
	}

	for _, c := range cases {
		as, ae, err := Range(c.aStart, c.aEnd)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		bs, be, err := Range(c.bStart, c.bEnd)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got := Overlaps(as, ae, bs, be); got != c.want {
			t.Fatalf("%s: Overlaps = %v, want %v", c.name, got, c.want)
		}
	}
}
