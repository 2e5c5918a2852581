// Package summary drives the summarization of a document as a durable job.
//
// A Pipeline runs the job's steps in order (cache check, text fetch,
// chunking, one summary per chunk, reduction, persistence) and checkpoints
// each step's result so that a job resumed after a crash skips the work it
// already did. The Service is the entry point used by the API: it answers
// from the result store when it can and otherwise starts or joins the
// document's active job, which the task runner executes in the background.
package summary
