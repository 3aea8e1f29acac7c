// Package events defines the run progress events emitted on the event bus.
//
// Available event types:
//   - RunStarted: a scenario was loaded and its model is being built
//   - RunFinished: the run ended, successfully or not
package events
