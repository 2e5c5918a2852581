// Package domain contains the core entities of the summarization service:
// documents, summary records, summarization jobs and the progress arithmetic
// shared by the pipeline and its observers. It is independent of any specific
// infrastructure or delivery mechanism.
package domain
