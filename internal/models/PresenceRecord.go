package models

import "time"

// PresenceRecord is one liveness row. Identity is the key; Name is the display
// name, equal to Identity unless callers are authenticated by a stable user key.
type PresenceRecord struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
	LastSeen int64  `json:"lastSeen"`
}

// IsOnline reports whether the record was seen within window of now (inclusive).
func (p *PresenceRecord) IsOnline(now time.Time, window time.Duration) bool {
	return Millis(now)-p.LastSeen <= window.Milliseconds()
}

// Heartbeat is a presence refresh request.
type Heartbeat struct {
	Identity         string
	PreviousIdentity string
	// Key overrides Identity as the record key when the caller is authenticated.
	Key string
}
