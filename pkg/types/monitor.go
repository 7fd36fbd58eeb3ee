package types

// MonitorTypeGroup is the container kind: other monitors reference a group
// through their Parent field and carry no checks of their own.
const MonitorTypeGroup = "group"

// Monitor is the typed view of a single entry in the monitor snapshot
// broadcast by Uptime Kuma. The broadcast carries more fields than listed
// here; mutating operations work on the raw document so unknown fields
// survive a round trip (see kuma.Client.MonitorDocument).
type Monitor struct {
	ID                  int64           `json:"id"`
	Name                string          `json:"name"`
	Type                string          `json:"type"`
	URL                 string          `json:"url,omitempty"`
	Method              string          `json:"method,omitempty"`
	Interval            int             `json:"interval"`
	RetryInterval       int             `json:"retryInterval"`
	MaxRetries          int             `json:"maxretries"`
	Timeout             int             `json:"timeout"`
	Active              bool            `json:"active"`
	Parent              *int64          `json:"parent,omitempty"`
	Tags                []Tag           `json:"tags,omitempty"`
	NotificationIDList  map[string]bool `json:"notificationIDList,omitempty"`
	AcceptedStatusCodes []string        `json:"accepted_statuscodes,omitempty"`
}

// IsGroup reports whether the monitor is a group container.
func (m Monitor) IsGroup() bool {
	return m.Type == MonitorTypeGroup
}

// HasTag reports whether the monitor carries a tag with the given name.
func (m Monitor) HasTag(name string) bool {
	for _, tag := range m.Tags {
		if tag.Name == name {
			return true
		}
	}
	return false
}

// Tag is a name/value label attached to a monitor.
type Tag struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}
