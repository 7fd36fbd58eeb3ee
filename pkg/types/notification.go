package types

// Notification is the typed view of a single entry in the notification
// snapshot. Uptime Kuma keeps most provider settings inside the Config blob;
// the bridge never interprets it, only passes it back on test commands.
type Notification struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Active    bool   `json:"active"`
	IsDefault bool   `json:"isDefault,omitempty"`
	Config    string `json:"config,omitempty"`
}
