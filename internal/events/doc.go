// Package events is the in-process notification hub for pipeline progress.
//
// Components publish typed events (batch lifecycle, operation results, queue
// capacity) to a Bus; subscribers receive them over bounded channels. The bus
// never blocks a publisher: a subscriber that falls behind loses events, and
// the loss is counted rather than silent. UI surfaces, push notifiers, and
// the event log all attach here instead of being called directly by pipeline
// code.
package events
