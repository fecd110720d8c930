// Package output provides formatters for displaying replay results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration
//   - TAP: Test Anything Protocol format
//
// Every formatter has FormatResult, FormatError and FormatHeader. JSON,
// JUnit and TAP accumulate results and write them on Flush.
package output
