// Package runner replays recorded transcripts against the rule catalog.
//
// A transcript is an ordered list of request/response exchanges, each
// naming the rule that judges it. The runner:
//   - resolves {{variable}} placeholders in recorded requests through one
//     variable store per run
//   - evaluates exchanges strictly in order, so captures written by one
//     exchange are visible to the next
//   - filters exchanges by name pattern or rule group
//   - stops early on the first failure when Bail is set
//   - summarizes recorded response latency with an HDR histogram
package runner
