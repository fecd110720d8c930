// Package http holds the recorded side of an HTTP exchange: the response a
// rule is evaluated against and the descriptor of the request that produced
// it.
//
// Nothing here performs network I/O. Requests are described, not sent.
package http
