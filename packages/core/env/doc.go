// Package env holds the variable store shared by every exchange of a run.
//
// Rules write captured values (tokens, user ids, resource ids) into the
// store; later request descriptors read them back through {{name}}
// placeholders. The store also loads seed values from .env files and from
// the configured environment, and renders itself as a Postman environment.
package env
