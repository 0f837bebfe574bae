package events

const (
	TopicHostAdded     = "dhcprelay:events:host:added"
	TopicHostUpdated   = "dhcprelay:events:host:updated"
	TopicHostRemoved   = "dhcprelay:events:host:removed"
	TopicConfigChanged = "dhcprelay:events:config:changed"
)

// HostTopics lists every host lifecycle topic.
var HostTopics = []string{TopicHostAdded, TopicHostUpdated, TopicHostRemoved}
