package models

import "time"

// CounterKey is the logical key of the singleton counter row.
const CounterKey = "global"

const dayLayout = "2006-01-02"

// Counter is the persisted singleton. A nil *Counter means the row does not exist yet
// and reads as {0, 0}.
type Counter struct {
	DailyCount    int64  `json:"dailyCount"`
	TotalCount    int64  `json:"totalCount"`
	LastResetDate string `json:"lastResetDate"`
}

type CounterSnapshot struct {
	DailyCount int64 `json:"dailyCount"`
	TotalCount int64 `json:"totalCount"`
}

// DayKey returns the calendar date of t in loc, e.g. "2024-03-09".
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dayLayout)
}

// IsCurrent reports whether the stored daily count belongs to day.
func (c *Counter) IsCurrent(day string) bool {
	return c != nil && c.LastResetDate == day
}

// Project is the read-side view of the counter for day. It never changes c.
func (c *Counter) Project(day string) CounterSnapshot {
	if c == nil {
		return CounterSnapshot{}
	}
	if !c.IsCurrent(day) {
		return CounterSnapshot{DailyCount: 0, TotalCount: c.TotalCount}
	}
	return CounterSnapshot{DailyCount: c.DailyCount, TotalCount: c.TotalCount}
}

// Advance returns the state after one increment on day, rolling the daily count
// over when day differs from the stored date.
func (c *Counter) Advance(day string) *Counter {
	if c == nil {
		return &Counter{DailyCount: 1, TotalCount: 1, LastResetDate: day}
	}
	daily := int64(1)
	if c.IsCurrent(day) {
		daily = c.DailyCount + 1
	}
	return &Counter{
		DailyCount:    daily,
		TotalCount:    c.TotalCount + 1,
		LastResetDate: day,
	}
}
