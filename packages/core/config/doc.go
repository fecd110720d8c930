// Package config loads prbalcheck settings.
//
// Values are layered with koanf: built-in defaults, then the first config
// file found (.prbalcheck.json, prbalcheck.config.json, .prbalcheck.yaml or
// .prbalcheck.yml), then PRBALCHECK_* environment variables. Command line
// flags are applied last by the CLI through Merge.
package config
