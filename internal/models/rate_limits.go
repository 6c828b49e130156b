package models

import "time"

// Default ceilings applied when a key is created without explicit limits.
const (
	DefaultPerMinute = 60
	DefaultPerHour   = 1000
	DefaultPerDay    = 10000
)

type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

// Windows in the order they are enforced.
var Windows = []Window{WindowMinute, WindowHour, WindowDay}

// Duration returns the trailing span of w, or false for an unknown window.
func (w Window) Duration() (time.Duration, bool) {
	switch w {
	case WindowMinute:
		return time.Minute, true
	case WindowHour:
		return time.Hour, true
	case WindowDay:
		return 24 * time.Hour, true
	default:
		return 0, false
	}
}

// RateLimits holds per-key request ceilings for each window.
type RateLimits struct {
	PerMinute int `gorm:"column:per_minute;not null;default:60" json:"per_minute"`
	PerHour   int `gorm:"column:per_hour;not null;default:1000" json:"per_hour"`
	PerDay    int `gorm:"column:per_day;not null;default:10000" json:"per_day"`
}

func DefaultRateLimits() RateLimits {
	return RateLimits{
		PerMinute: DefaultPerMinute,
		PerHour:   DefaultPerHour,
		PerDay:    DefaultPerDay,
	}
}

// Ceiling returns the limit configured for w.
func (r RateLimits) Ceiling(w Window) (int, bool) {
	switch w {
	case WindowMinute:
		return r.PerMinute, true
	case WindowHour:
		return r.PerHour, true
	case WindowDay:
		return r.PerDay, true
	default:
		return 0, false
	}
}
