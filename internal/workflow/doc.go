// Package workflow drives work items through the production pipeline.
//
// The Manager claims candidates from the selector and runs the media stages
// in order (background, speech, alignment, subtitles, composition), each
// inside its own stage.Lease. A stage failure marks the item failed and stops
// the pipeline for that item only; batches and retries keep going and report
// a summary. Ready items are published through the Uploader, either directly
// or via the deferred upload schedule, after which the storage housekeeper
// archives or prunes their artifacts.
package workflow
