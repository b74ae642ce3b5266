// Package main hosts the versereel CLI entrypoint and command graph.
//
// Commands resolve the configuration once, open the ledger and workflow
// runtime through daemonrun, and render results as tables. The schedule
// command runs the long-lived scheduler in the foreground.
package main
