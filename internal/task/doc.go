// Package task manages background job queuing, processing, and lifecycle.
// Tasks are persisted before they are queued so that work interrupted by a
// restart is found again by TaskRunner.Recover and resumed through the
// factory registered for its type.
package task
