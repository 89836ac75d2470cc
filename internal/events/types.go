package events

import "time"

// Action is the kind of registry mutation a ChangeEvent reports.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionRemove Action = "remove"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionAdd, ActionUpdate, ActionRemove:
		return true
	}
	return false
}

// ChangeEvent announces that the registry entry APIID changed.
type ChangeEvent struct {
	APIID     string    `json:"apiId"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// Listener receives change events. It runs on the publisher's goroutine.
type Listener func(ChangeEvent)

// Publisher is the sending half of the bus.
type Publisher interface {
	Publish(ChangeEvent)
}

// Subscriber is the receiving half of the bus.
type Subscriber interface {
	Subscribe(Listener) *Subscription
}
