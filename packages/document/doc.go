// Package document is a small tagged-union view over JSON response bodies.
//
// A Value resolves dotted paths ("user.id", "results[0].category.id") and
// reports its Kind, so checks can tell a missing field from a field of the
// wrong shape instead of silently reading a zero value.
package document
