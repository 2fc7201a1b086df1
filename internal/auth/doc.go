// Package auth issues and validates the bearer tokens that guard the
// gateway's host API.
//
// Only the desktop host calls the device endpoints, so there are no users
// or roles: a token is an HS256 JWT signed with the configured secret and
// carrying the host scope. Mint one with `scanlink token` and send it as
//
//	Authorization: Bearer <token>
package auth
