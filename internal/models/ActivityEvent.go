package models

import "time"

const ActionIncremented = "incremented counter"

type ActivityEvent struct {
	ID            int64  `json:"-"`
	EventID       string `json:"eventId"`
	ActorIdentity string `json:"actorIdentity"`
	Action        string `json:"action"`
	Timestamp     int64  `json:"timestamp"`
}

// RecentQuery selects events with Timestamp > Since, newest first, at most Limit.
type RecentQuery struct {
	Limit int
	Since time.Time
}
