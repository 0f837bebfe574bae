package events

type Handler func(Event)

type Subscription interface {
	Unsubscribe()
}

type TopicStats struct {
	Topic       string `json:"topic"`
	Subscribers int    `json:"subscribers"`
}

// Stats is a point-in-time view of the bus. Pending counts events queued
// across every subscriber but not yet handled.
type Stats struct {
	Topics    []TopicStats `json:"topics"`
	Global    int          `json:"global_subscribers"`
	Pending   int          `json:"pending"`
	Published uint64       `json:"published"`
	Dropped   uint64       `json:"dropped"`
}

// Bus fans events out to subscribers. Each subscriber sees events in the
// order they were published.
type Bus interface {
	Publish(topic string, event Event)
	Subscribe(topic string, handler Handler) Subscription
	SubscribeAll(handler Handler) Subscription
	Stats() Stats
	Close() error
}
