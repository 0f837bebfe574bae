package events

import "github.com/veesix-networks/dhcprelay/pkg/models"

type HostEventType string

const (
	HostAdded   HostEventType = "added"
	HostUpdated HostEventType = "updated"
	HostRemoved HostEventType = "removed"
)

// HostEvent is published by host discovery when a binding changes.
type HostEvent struct {
	Type     HostEventType
	Host     *models.Host
	Previous *models.Host
}

func TopicFor(t HostEventType) string {
	switch t {
	case HostAdded:
		return TopicHostAdded
	case HostUpdated:
		return TopicHostUpdated
	default:
		return TopicHostRemoved
	}
}
