// Package stageexec runs a single pipeline stage for a work item: it holds
// the stage lease, persists the artifact path and emits the stage lifecycle
// log events.
package stageexec
