// Package memory keeps long conversations inside the model's context
// window. The Compactor decides when the oldest portion of a transcript
// should be folded into a running summary, the Summarizer produces that
// summary through a provider, and the Journal records every compaction for
// later inspection.
package memory
