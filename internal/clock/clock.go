package clock

import "time"

// Clock abstracts "now" so availability windows can be tested with a fixed day.
type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant. Test helper.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }
