// Package events decouples the components that request background work from
// the components that perform it.
//
// A service emits a TaskRequestEvent naming a task type, the identifier the
// task must carry and a JSON payload. Handlers registered with an
// EventEmitter turn the event into a runnable task.
package events
