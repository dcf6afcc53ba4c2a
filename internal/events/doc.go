// Package events decouples the services that produce state changes from the
// components that react to them. A service emits an Event (graph changed,
// progress recorded) without knowing who listens; cache invalidation and
// background cohort refresh subscribe as EventHandlers.
//
// Events carry their payload as marshaled JSON so handlers and persisted
// task rows share one encoding.
package events
