package events

import "time"

// Event is one bus message. Data is a HostEvent on the host topics and a
// *config.Config on TopicConfigChanged.
type Event struct {
	ID        string
	Type      string
	Timestamp time.Time
	Source    string
	Data      any
}
