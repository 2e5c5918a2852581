// Package progress publishes job progress and failure notifications to named
// channels. Delivery is best-effort: publishers never block the pipeline and
// publish failures are logged, not propagated.
//
// The Hub is an in-process implementation of Publisher; WSHandler exposes a
// hub channel to remote subscribers over a websocket.
package progress
