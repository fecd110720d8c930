// Package capture extracts values from response documents for use in
// subsequent requests.
//
// A Capture copies one field into a named variable when its condition
// holds. A RoleCapture reads a discriminator (user.user_type on auth
// responses) and writes a group of fields under a role-specific prefix:
// customer_* for CUSTOMER, provider_* for PROVIDER. Any other tag writes
// nothing.
package capture
