package model

import "time"

// RawCapture is a single text submission waiting in the Inbox tab.
type RawCapture struct {
	ID         string
	Text       string
	CapturedAt time.Time
	Processed  bool
	// LastError is the failure marker left by the last unsuccessful cycle.
	LastError string
}

// Stale reports whether the capture has been waiting longer than age.
func (c RawCapture) Stale(now time.Time, age time.Duration) bool {
	return !c.Processed && c.CapturedAt.Before(now.Add(-age))
}
