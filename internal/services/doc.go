// Package services holds the small shared vocabulary used by the pipeline and
// its external integrations: context annotations (item id, stage, job and
// correlation id) and the sentinel error markers callers classify with
// errors.Is.
//
// Stage adapters wrap their failures with Wrap so the orchestrator can record
// a readable message on the work item while the marker survives for
// classification.
package services
