// Package rules is the catalog of response rules for the Prbal API.
//
// Default returns the built-in rules, one per endpoint scenario, keyed by
// ids such as "auth.login" or "services.search". Additional or overriding
// rules can be declared in YAML rule files and merged into a catalog.
package rules
