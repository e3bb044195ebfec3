package compose

import (
	"image/color"
	"time"
)

// Status is the state of a time window relative to now.
type Status int

const (
	NotStarted Status = iota
	InProgress
	Ended
)

// Classify reports where now falls relative to [start, end).
func Classify(start, end, now time.Time) Status {
	switch {
	case now.Before(start):
		return NotStarted
	case now.Before(end):
		return InProgress
	default:
		return Ended
	}
}

// Label is the message key for s.
func (s Status) Label() string {
	switch s {
	case NotStarted:
		return "Not started"
	case InProgress:
		return "In progress"
	default:
		return "Ended"
	}
}

// Color is the label fill for s.
func (s Status) Color() color.RGBA {
	switch s {
	case NotStarted:
		return color.RGBA{243, 254, 176, 255}
	case InProgress:
		return color.RGBA{144, 203, 251, 255}
	default:
		return color.RGBA{165, 170, 163, 255}
	}
}

func (s Status) String() string { return s.Label() }
