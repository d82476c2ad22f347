package event_bus

import "time"

const (
	SlotClaimedType        EventType = "slot.claimed"
	CalendarConnectedType  EventType = "calendar.connected"
	SubscriberDisabledType EventType = "subscriber.disabled"
)

// SlotClaimed is published after a public booking was written to the remote calendar.
type SlotClaimed struct {
	AppointmentId int
	SlotId        int
	CalendarId    int
	OwnerId       int
	AttendeeEmail string
	AttendeeName  string
	Start         time.Time
	Duration      time.Duration
}

type CalendarConnected struct {
	CalendarId int
	OwnerId    int
	Provider   string
}

type SubscriberDisabled struct {
	SubscriberId int
}
