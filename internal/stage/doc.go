// Package stage defines the contracts between the orchestrator and the media
// stages, the scoped Lease used to hold stage resources, and the word timings
// file shared by alignment and subtitles.
package stage
