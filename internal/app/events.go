package app

import (
	"github.com/bookslot/bookslot/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

func registerEventHandlers(deps *Dependencies) {
	event_bus.SubscribeTyped(deps.EventBus, event_bus.SlotClaimedType,
		func(e event_bus.EventT[event_bus.SlotClaimed]) error {
			log.WithFields(log.Fields{
				"appointment": e.Data.AppointmentId,
				"slot":        e.Data.SlotId,
				"owner":       e.Data.OwnerId,
				"start":       e.Data.Start,
			}).Infof("slot booked by %s", e.Data.AttendeeEmail)
			return nil
		})

	event_bus.SubscribeTyped(deps.EventBus, event_bus.CalendarConnectedType,
		func(e event_bus.EventT[event_bus.CalendarConnected]) error {
			log.WithFields(log.Fields{
				"calendar": e.Data.CalendarId,
				"owner":    e.Data.OwnerId,
			}).Infof("%s calendar connected", e.Data.Provider)
			return nil
		})

	// Disabled subscribers keep their rows, but not their Google grant.
	event_bus.SubscribeTyped(deps.EventBus, event_bus.SubscriberDisabledType,
		func(e event_bus.EventT[event_bus.SubscriberDisabled]) error {
			return deps.GoogleAuth.Forget(e.Context(), e.Data.SubscriberId)
		})
}
