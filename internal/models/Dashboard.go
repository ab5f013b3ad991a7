package models

// Dashboard is the combined read model served to clients.
type Dashboard struct {
	Counter CounterSnapshot  `json:"counter"`
	Online  []PresenceRecord `json:"online"`
	Recent  []ActivityEvent  `json:"recent"`
}
