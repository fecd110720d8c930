// Package assertions evaluates response rules and propagates captured state.
//
// A Rule combines a status expectation, a list of checks and a list of
// captures. Evaluate runs every check (no short-circuit), records one
// Outcome per individual assertion and, when nothing failed, writes the
// captured values into the run's variable store.
//
// Failure kinds:
//   - StatusMismatch: hard status expectation not met
//   - MissingField: a required path did not resolve
//   - UnexpectedType: a path resolved to the wrong kind (e.g. not a sequence)
//   - ValueMismatch: a path resolved to the wrong value
//   - SchemaMismatch: the body violates the rule's JSON schema
//
// Soft status expectations skip the whole rule instead of failing, and a
// request body that is not JSON only skips the checks that read it.
package assertions
