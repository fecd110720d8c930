// Package cmd implements the prbalcheck CLI commands using Cobra.
//
// Available commands:
//   - run: Replay transcripts against the rule catalog
//   - validate: Parse rule files and transcripts without evaluating them
//   - rules: List the rules in the catalog
//   - store: Show, reset or export the persisted variable store
//   - version: Show prbalcheck version information
//
// A run can persist its variable store to SQLite and a later run can resume
// from it, so one journey may be split across several transcripts.
package cmd
